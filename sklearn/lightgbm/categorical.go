package lightgbm

import (
	"sort"
)

// CategoryInfo stores information about a category
type CategoryInfo struct {
	Category int
	Count    int
	SumGrad  float64
	SumHess  float64
}

// findBestCategoricalSplit finds the best left-set of categories for one
// categorical feature.
//
// Up to maxCatToOnehot observed categories every one-vs-rest partition is
// tried. Above that the categories are ordered by SumGrad/(SumHess+catSmooth)
// and prefixes of that order (from both ends, at most maxCatThreshold
// categories) are tried with cat_l2 added to the regularization.
func findBestCategoricalSplit(hist FeatureHistogram, total HistogramBin, params TrainingParams,
	reg *RegularizationStrategy, cons splitConstraints) SplitInfo {

	cats := make([]CategoryInfo, 0, len(hist.Bins))
	for code, b := range hist.Bins {
		if b.Count > 0 {
			cats = append(cats, CategoryInfo{Category: code, Count: b.Count, SumGrad: b.SumGrad, SumHess: b.SumHess})
		}
	}
	if len(cats) < 2 {
		return noSplit()
	}

	best := noSplit()
	consider := func(left []CategoryInfo, extraL2 float64) {
		var l HistogramBin
		for _, c := range left {
			l.Count += c.Count
			l.SumGrad += c.SumGrad
			l.SumHess += c.SumHess
		}
		rightCount := total.Count - l.Count
		rightGrad := total.SumGrad - l.SumGrad
		rightHess := total.SumHess - l.SumHess
		if !cons.allows(l.Count, rightCount, l.SumHess, rightHess) {
			return
		}
		gain := reg.score(l.SumGrad, l.SumHess, extraL2) + reg.score(rightGrad, rightHess, extraL2) -
			reg.score(total.SumGrad, total.SumHess, extraL2)
		if gain <= cons.minGainToSplit || gain <= best.Gain {
			return
		}
		codes := make([]int, len(left))
		for i, c := range left {
			codes[i] = c.Category
		}
		sort.Ints(codes)
		best = SplitInfo{
			Feature:     hist.FeatureIndex,
			Categorical: true,
			Categories:  codes,
			Gain:        gain,
			LeftGrad:    l.SumGrad,
			LeftHess:    l.SumHess,
			RightGrad:   rightGrad,
			RightHess:   rightHess,
			LeftCount:   l.Count,
			RightCount:  rightCount,
		}
	}

	if len(cats) <= params.MaxCatToOnehot {
		for i := range cats {
			consider(cats[i:i+1], 0)
		}
		return best
	}

	sort.SliceStable(cats, func(i, j int) bool {
		ri := cats[i].SumGrad / (cats[i].SumHess + params.CatSmooth)
		rj := cats[j].SumGrad / (cats[j].SumHess + params.CatSmooth)
		return ri < rj
	})

	maxLeft := params.MaxCatThreshold
	if maxLeft > len(cats)-1 {
		maxLeft = len(cats) - 1
	}
	reversed := make([]CategoryInfo, len(cats))
	for i := range cats {
		reversed[i] = cats[len(cats)-1-i]
	}
	for k := 1; k <= maxLeft; k++ {
		consider(cats[:k], params.CatL2)
		consider(reversed[:k], params.CatL2)
	}
	return best
}
