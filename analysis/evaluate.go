package analysis

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankloan/config"
	"github.com/YuminosukeSato/bankloan/dataset"
	"github.com/YuminosukeSato/bankloan/metrics"
	"github.com/YuminosukeSato/bankloan/pkg/log"
	"github.com/YuminosukeSato/bankloan/report"
	"github.com/YuminosukeSato/bankloan/sklearn/lightgbm"
)

// holdoutMetrics are scored from P(Yes) at the default 0.5 cut.
var holdoutMetrics = []string{metrics.AccuracyM, metrics.RocAUC, metrics.MnLogLoss}

// levelCode maps a label level to its 0/1 code.
func levelCode(level string) int {
	if level == dataset.LevelYes {
		return 1
	}
	return 0
}

func levelName(code float64) string {
	if code == 1 {
		return dataset.LevelYes
	}
	return dataset.LevelNo
}

func evaluate(cfg *config.Config, res *Result, X *mat.Dense, y []float64, logger log.Logger) error {
	proba, err := res.Model.PredictProba(X)
	if err != nil {
		return err
	}
	n := len(y)
	res.ProbYes = make([]float64, n)
	for i := range res.ProbYes {
		res.ProbYes[i] = proba.At(i, 1)
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	pv := mat.NewVecDense(n, append([]float64(nil), res.ProbYes...))

	res.TestMetrics = res.TestMetrics[:0]
	for _, name := range holdoutMetrics {
		v, err := metrics.Compute(name, yv, pv)
		if err != nil {
			return err
		}
		res.TestMetrics = append(res.TestMetrics, report.MetricRow{Metric: name, Estimator: "binary", Estimate: v})
	}

	// hard labels under the manual threshold
	event := levelCode(cfg.ThresholdClass)
	labels, err := res.Model.PredictWithThreshold(X, cfg.Threshold, event)
	if err != nil {
		return err
	}
	pred := mat.NewVecDense(n, nil)
	res.Classes = make([]string, n)
	for i := 0; i < n; i++ {
		pred.SetVec(i, labels.At(i, 0))
		res.Classes[i] = levelName(labels.At(i, 0))
	}

	if res.Confusion, err = metrics.NewConfusionMatrix(yv, pred, 1); err != nil {
		return err
	}
	cm, err := metrics.NewConfusionMatrix(yv, pred, float64(event))
	if err != nil {
		return err
	}
	res.ClassifiedMetrics = []report.MetricRow{
		{Metric: "accuracy", Estimator: "binary", Estimate: cm.Accuracy()},
		{Metric: "sens", Estimator: "binary", Estimate: cm.Sensitivity()},
		{Metric: "spec", Estimator: "binary", Estimate: cm.Specificity()},
		{Metric: "precision", Estimator: "binary", Estimate: cm.Precision()},
		{Metric: "f_meas", Estimator: "binary", Estimate: cm.F1()},
		{Metric: "kap", Estimator: "binary", Estimate: cm.Kappa()},
		{Metric: "mcc", Estimator: "binary", Estimate: cm.MCC()},
	}

	if res.ROC, err = metrics.ROCCurve(yv, pv); err != nil {
		return err
	}

	// Youden's J for the same class the manual threshold applies to
	yc := mat.NewVecDense(n, nil)
	sc := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if int(y[i]) == event {
			yc.SetVec(i, 1)
		}
		sc.SetVec(i, proba.At(i, event))
	}
	if res.Youden, res.YoudenJ, err = metrics.YoudenThreshold(yc, sc); err != nil {
		return err
	}

	names := res.Encoder.FeatureNames()
	gain := res.Model.GetFeatureImportance(lightgbm.ImportanceGain)
	res.Importance = make([]report.Importance, len(names))
	for j, name := range names {
		res.Importance[j] = report.Importance{Feature: name, Gain: gain[j]}
	}
	sort.SliceStable(res.Importance, func(a, b int) bool { return res.Importance[a].Gain > res.Importance[b].Gain })

	logger.Info("Holdout evaluated",
		log.SamplesKey, n,
		log.AUCKey, res.TestMetrics[1].Estimate,
		log.AccuracyKey, res.TestMetrics[0].Estimate,
		log.ThresholdKey, cfg.Threshold,
		"youden_threshold", res.Youden,
	)
	return nil
}

// summarize collects the run into its YAML record.
func summarize(cfg *config.Config, res *Result) *report.Summary {
	top, _ := res.Tuning.ShowBest(cfg.Metric, 5)
	d := res.Confusion.Dense()
	counts := map[string]int{}
	for truth := 0; truth < 2; truth++ {
		for pred := 0; pred < 2; pred++ {
			key := levelName(float64(truth)) + "/" + levelName(float64(pred))
			counts[key] = int(d.At(truth, pred))
		}
	}
	return &report.Summary{
		RunID:      res.RunID,
		StartedAt:  res.StartedAt,
		Data:       cfg.Data,
		Seed:       cfg.Seed,
		TrainRows:  len(res.Split.Train),
		TestRows:   len(res.Split.Test),
		Resamples:  len(res.Resamples),
		Candidates: res.Grid.Len(),
		Trees:      cfg.Trees,
		BestConfig: res.Best.ID,
		BestParams: res.Best.Values,
		Tuning:     top,
		Test:       res.TestMetrics,
		Threshold: report.ThresholdSummary{
			Value:   cfg.Threshold,
			Class:   cfg.ThresholdClass,
			Youden:  res.Youden,
			YoudenJ: res.YoudenJ,
		},
		Classified: res.ClassifiedMetrics,
		Confusion: report.ConfusionSummary{
			Levels: []string{dataset.LevelNo, dataset.LevelYes},
			Counts: counts,
		},
		Importance: res.Importance,
	}
}
