package lightgbm

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleCount(t *testing.T) {
	tests := []struct {
		n    int
		frac float64
		want int
	}{
		{12, 7.0 / 12.0, 7},
		{12, 1.0 / 12.0, 1},
		{12, 0.01, 1},
		{100, 0.5, 50},
		{10, 1.0, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sampleCount(tt.n, tt.frac), "n=%d frac=%v", tt.n, tt.frac)
	}
}

func TestSamplingStrategy(t *testing.T) {
	t.Run("feature sampling", func(t *testing.T) {
		s := NewSamplingStrategy(TrainingParams{FeatureFraction: 0.5, Seed: 7})
		features := s.SampleFeatures(12)
		assert.Len(t, features, 6)
		assert.True(t, sort.IntsAreSorted(features))
		seen := map[int]bool{}
		for _, f := range features {
			assert.False(t, seen[f], "duplicate feature %d", f)
			seen[f] = true
		}
	})

	t.Run("no bagging uses every row", func(t *testing.T) {
		s := NewSamplingStrategy(TrainingParams{BaggingFraction: 1, FeatureFraction: 1})
		assert.Equal(t, []int{0, 1, 2, 3}, s.SampleInstances(4, 0))
		assert.Equal(t, []int{0, 1, 2}, s.SampleFeatures(3))
	})

	t.Run("bag is redrawn every freq iterations", func(t *testing.T) {
		s := NewSamplingStrategy(TrainingParams{BaggingFraction: 0.5, BaggingFreq: 2, FeatureFraction: 1, Seed: 1})
		b0 := append([]int(nil), s.SampleInstances(100, 0)...)
		b1 := append([]int(nil), s.SampleInstances(100, 1)...)
		assert.Len(t, b0, 50)
		assert.Equal(t, b0, b1)
	})

	t.Run("same seed same draws", func(t *testing.T) {
		a := NewSamplingStrategy(TrainingParams{BaggingFraction: 0.3, BaggingFreq: 1, FeatureFraction: 0.5, Seed: 123})
		b := NewSamplingStrategy(TrainingParams{BaggingFraction: 0.3, BaggingFreq: 1, FeatureFraction: 0.5, Seed: 123})
		for iter := 0; iter < 3; iter++ {
			assert.Equal(t, a.SampleInstances(50, iter), b.SampleInstances(50, iter))
			assert.Equal(t, a.SampleFeatures(12), b.SampleFeatures(12))
		}
	})
}
