package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bankloan/sklearn/model_selection"
)

func tuneResult() *model_selection.TuneResult {
	return &model_selection.TuneResult{
		Grid: model_selection.Grid{Sets: []model_selection.ParamSet{
			{ID: "Preprocessor1_Model1", Values: map[string]float64{"mtry": 3, "learn_rate": 0.01}},
			{ID: "Preprocessor1_Model2", Values: map[string]float64{"mtry": 5, "learn_rate": 0.1}},
		}},
		Resamples: []string{"Bootstrap1", "Bootstrap2"},
		Metrics:   []string{"roc_auc"},
		Estimates: []model_selection.ResampleMetric{
			{Config: "Preprocessor1_Model1", Resample: "Bootstrap1", Metric: "roc_auc", Estimate: 0.91},
			{Config: "Preprocessor1_Model1", Resample: "Bootstrap2", Metric: "roc_auc", Estimate: math.NaN()},
			{Config: "Preprocessor1_Model2", Resample: "Bootstrap1", Metric: "roc_auc", Estimate: 0.95},
			{Config: "Preprocessor1_Model2", Resample: "Bootstrap2", Metric: "roc_auc", Estimate: 0.97},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	run := Run{
		ID:         "run-1",
		StartedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Data:       "UniversalBank.csv",
		Seed:       123,
		Metric:     "roc_auc",
		BestConfig: "Preprocessor1_Model2",
	}
	require.NoError(t, s.SaveRun(ctx, run, tuneResult()))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run, runs[0])

	est, err := s.Estimates(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, est, 4)
	assert.Equal(t, 0.91, est[0].Estimate)
	assert.True(t, math.IsNaN(est[1].Estimate))
	assert.Equal(t, "Bootstrap2", est[3].Resample)

	sets, err := s.Candidates(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, 5.0, sets[1].Values["mtry"])
	assert.Equal(t, 0.01, sets[0].Values["learn_rate"])
}

func TestStore_DuplicateRunRollsBack(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	run := Run{ID: "run-1", StartedAt: time.Now(), Data: "d", Metric: "roc_auc", BestConfig: "c"}
	require.NoError(t, s.SaveRun(ctx, run, tuneResult()))
	assert.Error(t, s.SaveRun(ctx, run, tuneResult()))

	est, err := s.Estimates(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, est, 4)
}

func TestStore_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "results.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, Run{ID: "a", StartedAt: time.Now(), Metric: "roc_auc"}, tuneResult()))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_Validation(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.SaveRun(ctx, Run{}, tuneResult()))
	assert.Error(t, s.SaveRun(ctx, Run{ID: "x"}, nil))
}
