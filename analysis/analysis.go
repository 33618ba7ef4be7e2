// Package analysis runs the personal-loan study end to end: ingest and
// recode, stratified split, Latin-hypercube tuning over bootstrap
// resamples, refit of the best candidate and evaluation on the holdout.
// Stages run once each and in order.
package analysis

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankloan/config"
	"github.com/YuminosukeSato/bankloan/core/model"
	"github.com/YuminosukeSato/bankloan/dataset"
	"github.com/YuminosukeSato/bankloan/metrics"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/log"
	"github.com/YuminosukeSato/bankloan/preprocessing"
	"github.com/YuminosukeSato/bankloan/report"
	"github.com/YuminosukeSato/bankloan/sklearn/lightgbm"
	"github.com/YuminosukeSato/bankloan/sklearn/model_selection"
)

// Stage names used in logs.
const (
	StageIngest   = "ingest"
	StageSplit    = "split"
	StageGrid     = "grid"
	StageTune     = "tune"
	StageFinalize = "finalize"
	StageEvaluate = "evaluate"
	StageRender   = "render"
)

// evalLogPeriod is the boosting-iteration interval logged during the refit.
const evalLogPeriod = 100

// Result carries everything the run produced.
type Result struct {
	RunID     string
	StartedAt time.Time

	Train, Test *dataset.Frame
	Split       model_selection.Split
	Encoder     *preprocessing.OrdinalEncoder
	Space       model_selection.ParamSpace
	Grid        model_selection.Grid
	Resamples   []model_selection.Resample
	Tuning      *model_selection.TuneResult
	Best        model_selection.ParamSet
	Model       *lightgbm.LGBMClassifier

	// holdout
	ProbYes           []float64
	Classes           []string
	ROC               *metrics.ROC
	Confusion         *metrics.ConfusionMatrix
	TestMetrics       []report.MetricRow
	ClassifiedMetrics []report.MetricRow
	Youden            float64
	YoudenJ           float64
	Importance        []report.Importance

	Summary *report.Summary
	Files   []string
}

// stage logs the start and end of fn with its duration.
func stage(logger log.Logger, name string, fn func() error) error {
	logger.Info("Stage started", log.StageKey, name)
	start := time.Now()
	if err := fn(); err != nil {
		logger.Error("Stage failed", err, log.StageKey, name)
		return errors.Wrapf(err, "stage %s", name)
	}
	logger.Info("Stage finished", log.StageKey, name, log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// BaseClassifier returns the boosted-tree classifier with every setting
// that is not tuned: the number of trees, the seed, unbounded leaves so
// that depth is governed by tree_depth, and native categorical columns.
func BaseClassifier(cfg *config.Config, enc *preprocessing.OrdinalEncoder) *lightgbm.LGBMClassifier {
	clf := lightgbm.NewLGBMClassifier().
		WithNumIterations(cfg.Trees).
		WithNumLeaves(0).
		WithMinChildSamples(1).
		WithRandomState(int(cfg.Seed)).
		WithCategoricalFeatures(enc.CategoricalIndices()).
		WithFeatureNames(enc.FeatureNames()).
		WithNumThreads(cfg.Workers)
	clf.RegLambda = 1
	return clf
}

// Run executes every stage. Cancelling ctx aborts tuning and refitting.
func Run(ctx context.Context, cfg *config.Config, logger log.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.GetLoggerWithName("analysis")
	}
	res := &Result{RunID: report.NewRunID(), StartedAt: time.Now().UTC()}
	logger = logger.With("run_id", res.RunID)

	var (
		frame        *dataset.Frame
		y            []float64
		Xtrain, Xtst *mat.Dense
		ytrain, ytst []float64
	)

	err := stage(logger, StageIngest, func() error {
		raw, err := dataset.LoadCSV(cfg.Data)
		if err != nil {
			return err
		}
		if frame, err = dataset.Recode(raw); err != nil {
			return err
		}
		if y, err = frame.Label(); err != nil {
			return err
		}
		logger.Info("Data loaded",
			log.PathKey, cfg.Data,
			log.SamplesKey, frame.Nrow(),
			log.PositiveRateKey, positiveRate(y),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = stage(logger, StageSplit, func() error {
		split, err := model_selection.TrainTestSplit(y, cfg.TrainProp, cfg.Seed, true)
		if err != nil {
			return err
		}
		res.Split = split
		if res.Train, err = frame.Subset(split.Train); err != nil {
			return err
		}
		if res.Test, err = frame.Subset(split.Test); err != nil {
			return err
		}
		ytrain = model_selection.Take(y, split.Train)
		ytst = model_selection.Take(y, split.Test)

		res.Encoder = preprocessing.NewOrdinalEncoder()
		if Xtrain, err = res.Encoder.FitTransform(res.Train); err != nil {
			return err
		}
		if Xtst, err = res.Encoder.Transform(res.Test); err != nil {
			return err
		}
		logger.Info("Data split",
			"train_rows", len(split.Train),
			"test_rows", len(split.Test),
			log.FeaturesKey, len(res.Encoder.FeatureNames()),
			log.CategoricalKey, len(res.Encoder.CategoricalIndices()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = stage(logger, StageGrid, func() error {
		res.Space = model_selection.DefaultSpace().Finalize(len(res.Encoder.FeatureNames()))
		grid, err := model_selection.LatinHypercube(res.Space, cfg.GridSize, cfg.Seed)
		if err != nil {
			return err
		}
		res.Grid = grid
		res.Resamples, err = model_selection.Bootstraps(ytrain, cfg.Bootstraps, cfg.Seed, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	base := BaseClassifier(cfg, res.Encoder)

	err = stage(logger, StageTune, func() error {
		tuning, err := model_selection.TuneGrid(ctx, model_selection.TuneConfig{
			X:         Xtrain,
			Y:         ytrain,
			Resamples: res.Resamples,
			Grid:      res.Grid,
			NewModel:  func() model.Tunable { return base.Clone() },
			Workers:   cfg.Workers,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		res.Tuning = tuning
		res.Best, err = tuning.SelectBest(cfg.Metric)
		if err != nil {
			return err
		}
		logger.Info("Best candidate selected",
			log.TuneConfigKey, res.Best.ID,
			log.TuneMetricKey, cfg.Metric,
			log.HyperParamsKey, res.Best.Values,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = stage(logger, StageFinalize, func() error {
		final := base.Clone().WithCallbacks(lightgbm.LogEvaluation(logger, evalLogPeriod))
		if _, err := model_selection.FinalizeParams(final, res.Space, res.Best); err != nil {
			return err
		}
		if err := final.FitContext(ctx, Xtrain, mat.NewDense(len(ytrain), 1, ytrain)); err != nil {
			return err
		}
		res.Model = final
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = stage(logger, StageEvaluate, func() error {
		return evaluate(cfg, res, Xtst, ytst, logger)
	})
	if err != nil {
		return nil, err
	}

	res.Summary = summarize(cfg, res)

	err = stage(logger, StageRender, func() error {
		return render(ctx, cfg, res, logger)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func positiveRate(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var pos float64
	for _, v := range y {
		pos += v
	}
	return pos / float64(len(y))
}
