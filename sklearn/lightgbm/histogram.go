package lightgbm

import (
	"math"
	"sort"
)

// BinMapper maps raw feature values to histogram bins.
//
// Numerical features: bin i holds values in (UpperBounds[i-1], UpperBounds[i]]
// and the last bound is +Inf. NaN goes to the last bin, which is never on
// the left side of a split, so training and prediction agree on "NaN goes
// right".
//
// Categorical features: the bin is the category code itself.
type BinMapper struct {
	Categorical bool
	UpperBounds []float64
	NumBins     int
}

// NewBinMapper builds the bin boundaries for one feature column.
func NewBinMapper(values []float64, maxBin int, categorical bool) BinMapper {
	if categorical {
		maxCode := 0
		for _, v := range values {
			if !math.IsNaN(v) && v >= 0 && int(v) > maxCode {
				maxCode = int(v)
			}
		}
		return BinMapper{Categorical: true, NumBins: maxCode + 1}
	}

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)

	// distinct values with their counts
	var distinct []float64
	var counts []int
	for _, v := range sorted {
		if len(distinct) > 0 && distinct[len(distinct)-1] == v {
			counts[len(counts)-1]++
			continue
		}
		distinct = append(distinct, v)
		counts = append(counts, 1)
	}

	var bounds []float64
	if len(distinct) <= maxBin {
		for i := 0; i+1 < len(distinct); i++ {
			bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
		}
	} else {
		// equal-frequency bins, cutting only between distinct values
		perBin := float64(len(sorted)) / float64(maxBin)
		acc := 0
		for i := 0; i+1 < len(distinct) && len(bounds) < maxBin-1; i++ {
			acc += counts[i]
			if float64(acc) >= perBin*float64(len(bounds)+1) {
				bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
			}
		}
	}
	bounds = append(bounds, math.Inf(1))
	return BinMapper{UpperBounds: bounds, NumBins: len(bounds)}
}

// ValueToBin returns the bin index of v.
func (b BinMapper) ValueToBin(v float64) int {
	if b.Categorical {
		if math.IsNaN(v) || v < 0 || int(v) >= b.NumBins {
			return 0
		}
		return int(v)
	}
	if math.IsNaN(v) {
		return b.NumBins - 1
	}
	return sort.SearchFloat64s(b.UpperBounds, v)
}

// HistogramBin accumulates gradient statistics of one bin
type HistogramBin struct {
	Count   int
	SumGrad float64
	SumHess float64
}

// FeatureHistogram represents histogram for a single feature
type FeatureHistogram struct {
	FeatureIndex int
	Bins         []HistogramBin
}

// buildHistogram accumulates grad/hess of rows into bins of one feature.
func buildHistogram(feature int, numBins int, bins []int32, rows []int, grad, hess []float64) FeatureHistogram {
	h := FeatureHistogram{FeatureIndex: feature, Bins: make([]HistogramBin, numBins)}
	for _, r := range rows {
		b := &h.Bins[bins[r]]
		b.Count++
		b.SumGrad += grad[r]
		b.SumHess += hess[r]
	}
	return h
}

// subtractHistogram returns parent - child, the histogram of the sibling.
func subtractHistogram(parent, child FeatureHistogram) FeatureHistogram {
	out := FeatureHistogram{FeatureIndex: parent.FeatureIndex, Bins: make([]HistogramBin, len(parent.Bins))}
	for i := range parent.Bins {
		out.Bins[i] = HistogramBin{
			Count:   parent.Bins[i].Count - child.Bins[i].Count,
			SumGrad: parent.Bins[i].SumGrad - child.Bins[i].SumGrad,
			SumHess: parent.Bins[i].SumHess - child.Bins[i].SumHess,
		}
	}
	return out
}

// SplitInfo describes the best split found for a leaf.
type SplitInfo struct {
	Feature     int
	Bin         int // numerical: rows with bin <= Bin go left
	Threshold   float64
	Categorical bool
	Categories  []int // categorical: codes that go left
	Gain        float64

	LeftGrad, LeftHess   float64
	RightGrad, RightHess float64
	LeftCount            int
	RightCount           int
}

// Valid reports whether a split was found.
func (s SplitInfo) Valid() bool {
	return s.Feature >= 0 && s.Gain > 0
}

func noSplit() SplitInfo {
	return SplitInfo{Feature: -1, Gain: math.Inf(-1)}
}

// splitConstraints bundles the per-leaf limits checked for every candidate.
type splitConstraints struct {
	minDataInLeaf       int
	minSumHessianInLeaf float64
	minGainToSplit      float64
}

func (c splitConstraints) allows(leftCount, rightCount int, leftHess, rightHess float64) bool {
	return leftCount >= c.minDataInLeaf && rightCount >= c.minDataInLeaf &&
		leftHess >= c.minSumHessianInLeaf && rightHess >= c.minSumHessianInLeaf
}

// findBestNumericalSplit scans bin boundaries left to right.
func findBestNumericalSplit(hist FeatureHistogram, mapper BinMapper, total HistogramBin,
	reg *RegularizationStrategy, cons splitConstraints) SplitInfo {

	best := noSplit()
	var left HistogramBin
	for b := 0; b < len(hist.Bins)-1; b++ {
		left.Count += hist.Bins[b].Count
		left.SumGrad += hist.Bins[b].SumGrad
		left.SumHess += hist.Bins[b].SumHess
		if hist.Bins[b].Count == 0 {
			continue
		}

		rightCount := total.Count - left.Count
		rightGrad := total.SumGrad - left.SumGrad
		rightHess := total.SumHess - left.SumHess
		if !cons.allows(left.Count, rightCount, left.SumHess, rightHess) {
			continue
		}

		gain := reg.SplitGain(left.SumGrad, left.SumHess, rightGrad, rightHess, total.SumGrad, total.SumHess)
		if gain <= cons.minGainToSplit || gain <= best.Gain {
			continue
		}
		best = SplitInfo{
			Feature:    hist.FeatureIndex,
			Bin:        b,
			Threshold:  mapper.UpperBounds[b],
			Gain:       gain,
			LeftGrad:   left.SumGrad,
			LeftHess:   left.SumHess,
			RightGrad:  rightGrad,
			RightHess:  rightHess,
			LeftCount:  left.Count,
			RightCount: rightCount,
		}
	}
	return best
}
