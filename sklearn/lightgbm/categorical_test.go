package lightgbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoricalHistogram(stats map[int]HistogramBin, numBins int) (FeatureHistogram, HistogramBin) {
	hist := FeatureHistogram{FeatureIndex: 0, Bins: make([]HistogramBin, numBins)}
	var total HistogramBin
	for code, b := range stats {
		hist.Bins[code] = b
		total.Count += b.Count
		total.SumGrad += b.SumGrad
		total.SumHess += b.SumHess
	}
	return hist, total
}

func TestFindBestCategoricalSplit(t *testing.T) {
	reg := NewRegularizationStrategy(TrainingParams{})
	cons := splitConstraints{minDataInLeaf: 1}

	t.Run("one-vs-rest for few categories", func(t *testing.T) {
		hist, total := categoricalHistogram(map[int]HistogramBin{
			0: {Count: 2, SumGrad: 2, SumHess: 2},
			1: {Count: 2, SumGrad: -4, SumHess: 2},
			2: {Count: 2, SumGrad: 2, SumHess: 2},
		}, 3)
		params := TrainingParams{MaxCatToOnehot: 4, MaxCatThreshold: 32}

		s := findBestCategoricalSplit(hist, total, params, reg, cons)
		require.True(t, s.Valid())
		assert.True(t, s.Categorical)
		assert.Equal(t, []int{1}, s.Categories)
		assert.InDelta(t, 6.0, s.Gain, 1e-9) // 0.5*(16/2 + 16/4)
	})

	t.Run("many-vs-many groups categories by gradient ratio", func(t *testing.T) {
		stats := map[int]HistogramBin{}
		for code := 0; code < 6; code++ {
			g := 1.0
			if code%2 == 1 {
				g = -1.0
			}
			stats[code] = HistogramBin{Count: 1, SumGrad: g, SumHess: 1}
		}
		hist, total := categoricalHistogram(stats, 6)
		params := TrainingParams{MaxCatToOnehot: 4, MaxCatThreshold: 32}

		s := findBestCategoricalSplit(hist, total, params, reg, cons)
		require.True(t, s.Valid())
		assert.Equal(t, []int{1, 3, 5}, s.Categories)
		assert.Equal(t, 3, s.LeftCount)
		assert.Equal(t, 3, s.RightCount)
	})

	t.Run("single observed category cannot split", func(t *testing.T) {
		hist, total := categoricalHistogram(map[int]HistogramBin{
			2: {Count: 5, SumGrad: 1, SumHess: 5},
		}, 3)
		s := findBestCategoricalSplit(hist, total, TrainingParams{MaxCatToOnehot: 4}, reg, cons)
		assert.False(t, s.Valid())
	})
}
