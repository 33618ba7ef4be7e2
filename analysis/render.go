package analysis

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/bankloan/config"
	"github.com/YuminosukeSato/bankloan/dataset"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/log"
	"github.com/YuminosukeSato/bankloan/pkg/store"
	"github.com/YuminosukeSato/bankloan/report"
)

// Output file names inside out_dir; plots take the configured extension.
const (
	PredictionsFile = "predictions.csv"
	SummaryFile     = "summary.yaml"
	ImportancePlot  = "importance"
	ConfusionPlot   = "confusion_matrix"
	ROCPlotFile     = "roc_curve"
	TuningPlotFile  = "tuning"
)

func render(ctx context.Context, cfg *config.Config, res *Result, logger log.Logger) error {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", cfg.OutDir)
	}
	path := func(name string) string { return filepath.Join(cfg.OutDir, name) }
	plotPath := func(name string) string { return path(name + "." + cfg.PlotFormat) }

	withPred, err := res.Test.WithPredictions(res.ProbYes, res.Classes)
	if err != nil {
		return err
	}
	if err := writeFile(path(PredictionsFile), withPred.WriteCSV); err != nil {
		return err
	}
	res.Files = append(res.Files, path(PredictionsFile))

	names := make([]string, len(res.Importance))
	gains := make([]float64, len(res.Importance))
	for i, imp := range res.Importance {
		names[i], gains[i] = imp.Feature, imp.Gain
	}
	vip, err := report.VariableImportancePlot(names, gains, cfg.TopFeatures)
	if err != nil {
		return err
	}
	if err := report.Save(vip, report.Width, report.Height, plotPath(ImportancePlot)); err != nil {
		return err
	}

	cmPlot, err := report.ConfusionMatrixPlot(res.Confusion, [2]string{dataset.LevelNo, dataset.LevelYes})
	if err != nil {
		return err
	}
	if err := report.Save(cmPlot, report.Width, report.Height, plotPath(ConfusionPlot)); err != nil {
		return err
	}

	rocPlot, err := report.ROCPlot(res.ROC, res.ROC.Area())
	if err != nil {
		return err
	}
	if err := report.Save(rocPlot, report.Width, report.Width, plotPath(ROCPlotFile)); err != nil {
		return err
	}

	panels, err := report.TuningPlots(res.Tuning.CollectMetrics(), res.Space, cfg.Metric)
	if err != nil {
		return err
	}
	if err := report.SavePanels(panels, 3, report.PanelWidth, report.PanelHeight, plotPath(TuningPlotFile)); err != nil {
		return err
	}
	res.Files = append(res.Files,
		plotPath(ImportancePlot), plotPath(ConfusionPlot), plotPath(ROCPlotFile), plotPath(TuningPlotFile))

	if err := writeFile(path(SummaryFile), func(w io.Writer) error {
		return report.WriteSummary(w, res.Summary)
	}); err != nil {
		return err
	}
	res.Files = append(res.Files, path(SummaryFile))

	if cfg.ModelOut != "" {
		if err := res.Model.Model.SaveToFile(cfg.ModelOut); err != nil {
			return err
		}
		res.Files = append(res.Files, cfg.ModelOut)
	}

	if cfg.ResultsDB != "" {
		if err := saveResults(ctx, cfg, res); err != nil {
			return err
		}
		res.Files = append(res.Files, cfg.ResultsDB)
	}

	for _, f := range res.Files {
		logger.Debug("Output written", log.PathKey, f)
	}
	return nil
}

func saveResults(ctx context.Context, cfg *config.Config, res *Result) error {
	db, err := store.Open(ctx, cfg.ResultsDB)
	if err != nil {
		return err
	}
	run := store.Run{
		ID:         res.RunID,
		StartedAt:  res.StartedAt,
		Data:       cfg.Data,
		Seed:       cfg.Seed,
		Metric:     cfg.Metric,
		BestConfig: res.Best.ID,
	}
	if err := db.SaveRun(ctx, run, res.Tuning); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

func writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", name)
}
