package model_selection

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bankloan/metrics"
)

func resultOf(estimates map[string][]float64, metric string) *TuneResult {
	grid := Grid{}
	res := &TuneResult{Metrics: []string{metric}}
	for i := 1; i <= len(estimates); i++ {
		id := configID(i-1, len(estimates))
		grid.Sets = append(grid.Sets, ParamSet{ID: id, Values: map[string]float64{"x": float64(i)}})
		for j, v := range estimates[id] {
			res.Estimates = append(res.Estimates, ResampleMetric{
				Config: id, Resample: fmt.Sprintf("Bootstrap%d", j+1), Metric: metric, Estimate: v,
			})
		}
	}
	res.Grid = grid
	return res
}

func TestCollectMetrics(t *testing.T) {
	res := resultOf(map[string][]float64{
		"Preprocessor1_Model1": {0.8, 0.9, math.NaN()},
		"Preprocessor1_Model2": {math.NaN(), math.NaN()},
	}, metrics.RocAUC)

	summary := res.CollectMetrics()
	require.Len(t, summary, 2)

	s := summary[0]
	assert.Equal(t, "Preprocessor1_Model1", s.Config)
	assert.Equal(t, 2, s.N)
	assert.InDelta(t, 0.85, s.Mean, 1e-12)
	// sample sd of {0.8, 0.9} is 0.0707..., divided by sqrt(2)
	assert.InDelta(t, 0.05, s.StdErr, 1e-12)
	assert.Equal(t, 1.0, s.Params["x"])

	assert.Equal(t, 0, summary[1].N)
	assert.True(t, math.IsNaN(summary[1].Mean))
}

func TestShowBest(t *testing.T) {
	res := resultOf(map[string][]float64{
		"Preprocessor1_Model1": {0.7},
		"Preprocessor1_Model2": {math.NaN()},
		"Preprocessor1_Model3": {0.9},
		"Preprocessor1_Model4": {0.9},
	}, metrics.RocAUC)

	rows, err := res.ShowBest(metrics.RocAUC, 0)
	require.NoError(t, err)
	got := []string{}
	for _, r := range rows {
		got = append(got, r.Config)
	}
	assert.Equal(t, []string{
		"Preprocessor1_Model3", "Preprocessor1_Model4", "Preprocessor1_Model1", "Preprocessor1_Model2",
	}, got)

	best, err := res.SelectBest(metrics.RocAUC)
	require.NoError(t, err)
	assert.Equal(t, "Preprocessor1_Model3", best.ID, "ties go to the earlier candidate")

	_, err = res.ShowBest(metrics.MnLogLoss, 1)
	assert.Error(t, err)
}

func TestShowBest_LowerIsBetter(t *testing.T) {
	res := resultOf(map[string][]float64{
		"Preprocessor1_Model1": {0.4},
		"Preprocessor1_Model2": {0.2},
	}, metrics.MnLogLoss)

	rows, err := res.ShowBest(metrics.MnLogLoss, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Preprocessor1_Model2", rows[0].Config)
}

func TestSelectBest_NoFiniteMean(t *testing.T) {
	res := resultOf(map[string][]float64{
		"Preprocessor1_Model1": {math.NaN()},
	}, metrics.RocAUC)
	_, err := res.SelectBest(metrics.RocAUC)
	assert.Error(t, err)
}
