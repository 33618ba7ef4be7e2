package model_selection

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/bankloan/core/model"
	"github.com/YuminosukeSato/bankloan/core/parallel"
	"github.com/YuminosukeSato/bankloan/metrics"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// DefaultMetrics is the metric set scored on every assessment set.
var DefaultMetrics = []string{metrics.RocAUC, metrics.AccuracyM, metrics.MnLogLoss}

// TuneConfig describes a grid search over bootstrap resamples.
type TuneConfig struct {
	X         mat.Matrix
	Y         []float64
	Resamples []Resample
	Grid      Grid

	// NewModel returns a fresh, unfitted classifier carrying the fixed
	// (non-tuned) hyperparameters.
	NewModel func() model.Tunable

	Metrics []string
	Workers int // <= 0 means runtime.NumCPU()
	Logger  log.Logger
}

func (c *TuneConfig) validate() error {
	if c.X == nil || c.NewModel == nil {
		return errors.NewValueError("TuneGrid", "X and NewModel are required")
	}
	rows, _ := c.X.Dims()
	if rows != len(c.Y) {
		return errors.NewDimensionError("TuneGrid", rows, len(c.Y), 0)
	}
	if len(c.Resamples) == 0 {
		return errors.NewValueError("TuneGrid", "no resamples")
	}
	if c.Grid.Len() == 0 {
		return errors.NewValueError("TuneGrid", "empty grid")
	}
	for _, r := range c.Resamples {
		for _, idx := range [][]int{r.Analysis, r.Assessment} {
			for _, i := range idx {
				if i < 0 || i >= rows {
					return errors.NewValueError("TuneGrid", "resample "+r.ID+" indexes outside X")
				}
			}
		}
	}
	if len(c.Metrics) == 0 {
		c.Metrics = DefaultMetrics
	}
	for _, m := range c.Metrics {
		if !metrics.Known(m) {
			return errors.NewValidationError("metric", "unknown metric", m)
		}
	}
	if c.Logger == nil {
		c.Logger = log.GetLoggerWithName("tune")
	}
	return nil
}

// ResampleMetric is one metric of one configuration on one resample.
type ResampleMetric struct {
	Config   string
	Resample string
	Metric   string
	Estimate float64
}

// TuneResult holds every per-resample estimate of a grid search.
type TuneResult struct {
	Grid      Grid
	Resamples []string
	Metrics   []string
	Estimates []ResampleMetric
	Elapsed   time.Duration
}

// contextFitter is implemented by classifiers whose Fit can be cancelled.
type contextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

// TuneGrid fits one classifier per (candidate, resample) pair on the
// analysis rows and scores the assessment rows. Tasks run in a bounded
// worker pool; the first error or a cancelled ctx stops the search.
//
// A metric that needs both classes (roc_auc, pr_auc) is NaN for a resample
// whose assessment set holds a single class, and an UndefinedMetricWarning
// is raised. NaN estimates are excluded from CollectMetrics.
func TuneGrid(ctx context.Context, cfg TuneConfig) (res *TuneResult, err error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	nConfigs, nResamples := cfg.Grid.Len(), len(cfg.Resamples)
	nMetrics := len(cfg.Metrics)
	estimates := make([]ResampleMetric, nConfigs*nResamples*nMetrics)

	cfg.Logger.Info("Tuning started",
		log.TuneCandidatesKey, nConfigs,
		"resamples", nResamples,
		log.WorkersKey, cfg.Workers,
	)

	// split each resample once; tasks only read these
	type resampleData struct {
		Xa, Xb *mat.Dense
		ya, yb []float64
		single bool
	}
	data := make([]resampleData, nResamples)
	for j, r := range cfg.Resamples {
		yb := Take(cfg.Y, r.Assessment)
		data[j] = resampleData{
			Xa:     takeRows(cfg.X, r.Analysis),
			Xb:     takeRows(cfg.X, r.Assessment),
			ya:     Take(cfg.Y, r.Analysis),
			yb:     yb,
			single: singleClass(yb),
		}
	}

	task := func(ctx context.Context, k int) (err error) {
		i, j := k/nResamples, k%nResamples
		set := cfg.Grid.Sets[i]
		rs := cfg.Resamples[j]
		d := data[j]
		defer errors.Recover(&err, "TuneGrid "+set.ID+"/"+rs.ID)

		scores := make([]float64, nMetrics)
		if len(d.yb) == 0 {
			for m := range scores {
				scores[m] = math.NaN()
			}
		} else {
			prob, err := fitAndScore(ctx, cfg, set, d.Xa, d.ya, d.Xb)
			if err != nil {
				return errors.Wrapf(err, "%s on %s", set.ID, rs.ID)
			}
			yb := mat.NewVecDense(len(d.yb), d.yb)
			for m, name := range cfg.Metrics {
				if d.single && needsBothClasses(name) {
					errors.Warn(errors.NewUndefinedMetricWarning(name,
						"assessment set of "+rs.ID+" has a single class", math.NaN()))
					scores[m] = math.NaN()
					continue
				}
				v, err := metrics.Compute(name, yb, prob)
				if err != nil {
					return errors.Wrapf(err, "%s on %s: %s", set.ID, rs.ID, name)
				}
				scores[m] = v
			}
		}

		base := (i*nResamples + j) * nMetrics
		for m, name := range cfg.Metrics {
			estimates[base+m] = ResampleMetric{Config: set.ID, Resample: rs.ID, Metric: name, Estimate: scores[m]}
		}
		fields := []any{log.TuneConfigKey, set.ID, log.TuneResampleKey, rs.ID}
		for m, name := range cfg.Metrics {
			key := name
			if name == metrics.RocAUC {
				key = log.AUCKey
			}
			fields = append(fields, key, scores[m])
		}
		cfg.Logger.Debug("Resample scored", fields...)
		return nil
	}

	if err := parallel.ForEach(ctx, nConfigs*nResamples, cfg.Workers, task); err != nil {
		return nil, err
	}

	resampleIDs := make([]string, nResamples)
	for j, r := range cfg.Resamples {
		resampleIDs[j] = r.ID
	}
	res = &TuneResult{
		Grid:      cfg.Grid,
		Resamples: resampleIDs,
		Metrics:   append([]string(nil), cfg.Metrics...),
		Estimates: estimates,
		Elapsed:   time.Since(start),
	}
	cfg.Logger.Info("Tuning finished",
		log.TuneCandidatesKey, nConfigs,
		log.DurationMsKey, res.Elapsed.Milliseconds(),
	)
	return res, nil
}

func fitAndScore(ctx context.Context, cfg TuneConfig, set ParamSet, Xa *mat.Dense, ya []float64, Xb *mat.Dense) (*mat.VecDense, error) {
	clf, err := FinalizeParams(cfg.NewModel(), cfg.Grid.Space, set)
	if err != nil {
		return nil, err
	}
	// the pool already saturates the CPUs
	if err := clf.SetParams(map[string]interface{}{"n_jobs": 1}); err != nil {
		return nil, err
	}

	yMat := mat.NewDense(len(ya), 1, ya)
	if cf, ok := clf.(contextFitter); ok {
		err = cf.FitContext(ctx, Xa, yMat)
	} else {
		err = clf.Fit(Xa, yMat)
	}
	if err != nil {
		return nil, err
	}

	proba, err := clf.PredictProba(Xb)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	prob := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		prob.SetVec(r, proba.At(r, 1))
	}
	return prob, nil
}

// FinalizeParams applies a candidate's values to an unfitted classifier.
func FinalizeParams(m model.Tunable, space ParamSpace, set ParamSet) (model.Tunable, error) {
	if err := m.SetParams(set.Params(space)); err != nil {
		return nil, errors.Wrapf(err, "finalize %s", set.ID)
	}
	return m, nil
}

func needsBothClasses(metric string) bool {
	return metric == metrics.RocAUC || metric == metrics.PrAUC
}

func singleClass(y []float64) bool {
	for _, v := range y[min(1, len(y)):] {
		if v != y[0] {
			return false
		}
	}
	return true
}

func takeRows(X mat.Matrix, idx []int) *mat.Dense {
	_, cols := X.Dims()
	if len(idx) == 0 {
		return nil
	}
	out := mat.NewDense(len(idx), cols, nil)
	row := make([]float64, cols)
	for i, r := range idx {
		mat.Row(row, r, X)
		out.SetRow(i, row)
	}
	return out
}
