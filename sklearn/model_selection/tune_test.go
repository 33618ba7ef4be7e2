package model_selection

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankloan/core/model"
	"github.com/YuminosukeSato/bankloan/metrics"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/log"
	"github.com/YuminosukeSato/bankloan/sklearn/lightgbm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubClassifier scores rows by their first column scaled by "gain".
type stubClassifier struct {
	model.BaseEstimator
	gain    float64
	jobs    int
	fitErr  error
	fitRows *int64
}

func (s *stubClassifier) Fit(X, y mat.Matrix) error {
	if s.fitErr != nil {
		return s.fitErr
	}
	if s.fitRows != nil {
		r, _ := X.Dims()
		atomic.AddInt64(s.fitRows, int64(r))
	}
	s.SetFitted()
	return nil
}

func (s *stubClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		p := errors.Sigmoid(s.gain * X.At(i, 0))
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

func (s *stubClassifier) Predict(X mat.Matrix) (mat.Matrix, error) { return s.PredictProba(X) }
func (s *stubClassifier) Score(X, y mat.Matrix) (float64, error)  { return 0, nil }
func (s *stubClassifier) Classes() []int                          { return []int{0, 1} }
func (s *stubClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{"gain": s.gain, "n_jobs": s.jobs}
}

func (s *stubClassifier) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		switch k {
		case "gain":
			s.gain = v.(float64)
		case "n_jobs":
			s.jobs = v.(int)
		default:
			return errors.NewValidationError(k, "unknown parameter", v)
		}
	}
	return nil
}

// informativeData has a label that is 1 exactly when x0 > 0.
func informativeData(n int) (*mat.Dense, []float64) {
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i%20) - 9.5
		X.Set(i, 0, x)
		X.Set(i, 1, float64(i%3))
		if x > 0 {
			y[i] = 1
		}
	}
	return X, y
}

func gainGrid(gains ...float64) Grid {
	space := ParamSpace{{Name: "gain", Lower: -1, Upper: 1}}
	g := Grid{Space: space}
	for i, v := range gains {
		g.Sets = append(g.Sets, ParamSet{ID: configID(i, len(gains)), Values: map[string]float64{"gain": v}})
	}
	return g
}

func TestTuneGrid_LogsEachMetricByName(t *testing.T) {
	X, y := informativeData(100)
	rs, err := Bootstraps(y, 2, 123, true)
	require.NoError(t, err)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	// roc_auc is not the first metric
	_, err = TuneGrid(context.Background(), TuneConfig{
		X: X, Y: y,
		Resamples: rs,
		Grid:      gainGrid(-1),
		NewModel:  func() model.Tunable { return &stubClassifier{} },
		Metrics:   []string{metrics.MnLogLoss, metrics.RocAUC},
		Workers:   1,
		Logger:    logger,
	})
	require.NoError(t, err)

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	var scored int
	for _, e := range entries {
		if e["message"] != "Resample scored" {
			continue
		}
		scored++
		assert.Equal(t, 0.0, e[log.AUCKey])
		loss, ok := e[metrics.MnLogLoss].(float64)
		require.True(t, ok, "entry %v", e)
		assert.Greater(t, loss, 0.5)
	}
	assert.Equal(t, 2, scored)
}

func TestTuneGrid(t *testing.T) {
	X, y := informativeData(100)
	rs, err := Bootstraps(y, 5, 123, true)
	require.NoError(t, err)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	res, err := TuneGrid(context.Background(), TuneConfig{
		X: X, Y: y,
		Resamples: rs,
		Grid:      gainGrid(1, -1, 0),
		NewModel:  func() model.Tunable { return &stubClassifier{} },
		Workers:   3,
		Logger:    logger,
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultMetrics, res.Metrics)
	assert.Len(t, res.Estimates, 3*5*3)
	assert.Len(t, res.Resamples, 5)
	assert.True(t, logger.ContainsMessage("Tuning finished"))

	summary := res.CollectMetrics()
	require.Len(t, summary, 9)
	byConfig := map[string]MetricSummary{}
	for _, s := range summary {
		assert.Equal(t, 5, s.N)
		assert.Equal(t, "binary", s.Estimator)
		if s.Metric == metrics.RocAUC {
			byConfig[s.Config] = s
		}
	}
	assert.InDelta(t, 1.0, byConfig["Preprocessor1_Model1"].Mean, 1e-12)
	assert.InDelta(t, 0.0, byConfig["Preprocessor1_Model2"].Mean, 1e-12)
	assert.InDelta(t, 0.5, byConfig["Preprocessor1_Model3"].Mean, 1e-12)
	assert.InDelta(t, 0.0, byConfig["Preprocessor1_Model1"].StdErr, 1e-12)

	best, err := res.SelectBest(metrics.RocAUC)
	require.NoError(t, err)
	assert.Equal(t, "Preprocessor1_Model1", best.ID)

	bestLoss, err := res.ShowBest(metrics.MnLogLoss, 2)
	require.NoError(t, err)
	require.Len(t, bestLoss, 2)
	assert.Equal(t, "Preprocessor1_Model1", bestLoss[0].Config)
	assert.Equal(t, "Preprocessor1_Model3", bestLoss[1].Config)
}

func TestTuneGrid_SingleClassAssessment(t *testing.T) {
	X, y := informativeData(20)
	var warned int32
	errors.SetWarningHandler(func(w error) {
		var um *errors.UndefinedMetricWarning
		if errors.As(w, &um) {
			atomic.AddInt32(&warned, 1)
		}
	})
	t.Cleanup(func() { errors.SetWarningHandler(nil) })

	// out-of-bag rows are all negative
	neg := []int{}
	for i, v := range y {
		if v == 0 {
			neg = append(neg, i)
		}
	}
	rs := []Resample{
		{ID: "Bootstrap1", Analysis: []int{0, 1, 18, 19}, Assessment: neg},
		{ID: "Bootstrap2", Analysis: []int{0, 19}, Assessment: []int{1, 2, 15, 16}},
	}

	res, err := TuneGrid(context.Background(), TuneConfig{
		X: X, Y: y,
		Resamples: rs,
		Grid:      gainGrid(1),
		NewModel:  func() model.Tunable { return &stubClassifier{} },
		Metrics:   []string{metrics.RocAUC, metrics.AccuracyM},
		Workers:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&warned))

	for _, e := range res.Estimates {
		if e.Resample == "Bootstrap1" && e.Metric == metrics.RocAUC {
			assert.True(t, math.IsNaN(e.Estimate))
		}
	}
	for _, s := range res.CollectMetrics() {
		if s.Metric == metrics.RocAUC {
			assert.Equal(t, 1, s.N)
			assert.InDelta(t, 1.0, s.Mean, 1e-12)
			assert.True(t, math.IsNaN(s.StdErr))
		} else {
			assert.Equal(t, 2, s.N)
		}
	}
}

func TestTuneGrid_UsesAnalysisRowsAndSingleThread(t *testing.T) {
	X, y := informativeData(40)
	rs, err := Bootstraps(y, 4, 1, true)
	require.NoError(t, err)

	var (
		rows   int64
		mu     sync.Mutex
		models []*stubClassifier
	)
	_, err = TuneGrid(context.Background(), TuneConfig{
		X: X, Y: y,
		Resamples: rs,
		Grid:      gainGrid(1, 2),
		NewModel: func() model.Tunable {
			m := &stubClassifier{fitRows: &rows, jobs: -1}
			mu.Lock()
			models = append(models, m)
			mu.Unlock()
			return m
		},
		Workers: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2*4*40), atomic.LoadInt64(&rows))
	require.Len(t, models, 2*4)
	for _, m := range models {
		assert.Equal(t, 1, m.jobs)
		assert.True(t, m.IsFitted())
	}
}

func TestTuneGrid_FitErrorStopsSearch(t *testing.T) {
	X, y := informativeData(40)
	rs, err := Bootstraps(y, 3, 1, true)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = TuneGrid(context.Background(), TuneConfig{
		X: X, Y: y,
		Resamples: rs,
		Grid:      gainGrid(1, 2),
		NewModel:  func() model.Tunable { return &stubClassifier{fitErr: boom} },
		Workers:   2,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestTuneGrid_Cancelled(t *testing.T) {
	X, y := informativeData(40)
	rs, err := Bootstraps(y, 3, 1, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = TuneGrid(ctx, TuneConfig{
		X: X, Y: y,
		Resamples: rs,
		Grid:      gainGrid(1),
		NewModel:  func() model.Tunable { return &stubClassifier{} },
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTuneGrid_InvalidConfig(t *testing.T) {
	X, y := informativeData(10)
	rs, err := Bootstraps(y, 2, 1, true)
	require.NoError(t, err)
	newModel := func() model.Tunable { return &stubClassifier{} }

	tests := []struct {
		name string
		cfg  TuneConfig
	}{
		{"no model", TuneConfig{X: X, Y: y, Resamples: rs, Grid: gainGrid(1)}},
		{"label length", TuneConfig{X: X, Y: y[:5], Resamples: rs, Grid: gainGrid(1), NewModel: newModel}},
		{"no resamples", TuneConfig{X: X, Y: y, Grid: gainGrid(1), NewModel: newModel}},
		{"empty grid", TuneConfig{X: X, Y: y, Resamples: rs, NewModel: newModel}},
		{"unknown metric", TuneConfig{X: X, Y: y, Resamples: rs, Grid: gainGrid(1), NewModel: newModel, Metrics: []string{"kappa"}}},
		{"row out of range", TuneConfig{X: X, Y: y, Resamples: []Resample{{ID: "b", Analysis: []int{0, 99}, Assessment: []int{1}}}, Grid: gainGrid(1), NewModel: newModel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TuneGrid(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestTuneGrid_BoostedTrees(t *testing.T) {
	X, y := informativeData(120)
	rs, err := Bootstraps(y, 3, 123, true)
	require.NoError(t, err)

	space := DefaultSpace().Finalize(2)
	grid, err := LatinHypercube(space, 3, 123)
	require.NoError(t, err)

	res, err := TuneGrid(context.Background(), TuneConfig{
		X: X, Y: y,
		Resamples: rs,
		Grid:      grid,
		NewModel: func() model.Tunable {
			return lightgbm.NewLGBMClassifier().
				WithNumIterations(10).
				WithMinChildSamples(1).
				WithRandomState(123)
		},
		Workers: 2,
	})
	require.NoError(t, err)

	for _, e := range res.Estimates {
		assert.False(t, math.IsNaN(e.Estimate), "%s %s %s", e.Config, e.Resample, e.Metric)
	}
	best, err := res.SelectBest(metrics.RocAUC)
	require.NoError(t, err)

	final, err := FinalizeParams(lightgbm.NewLGBMClassifier().WithNumIterations(10).WithMinChildSamples(1), grid.Space, best)
	require.NoError(t, err)
	params := final.GetParams()
	assert.Equal(t, int(best.Values[ParamTreeDepth]), params["max_depth"])
}
