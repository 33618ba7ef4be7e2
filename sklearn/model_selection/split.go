package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// Split holds row indices of the training and test partitions, each sorted.
type Split struct {
	Train []int
	Test  []int
}

// newRand returns the PCG stream used by every sampler in this package.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// strata groups row indices by label value, in ascending label order.
func strata(y []float64, stratify bool) [][]int {
	if !stratify {
		all := make([]int, len(y))
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}
	groups := map[float64][]int{}
	for i, v := range y {
		groups[v] = append(groups[v], i)
	}
	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	out := make([][]int, len(keys))
	for i, k := range keys {
		out[i] = groups[k]
	}
	return out
}

// TrainTestSplit partitions rows into training and test sets. With stratify
// each label class contributes floor(prop*n_class) rows to training; the
// rest go to test. The draw depends only on seed and y.
func TrainTestSplit(y []float64, prop float64, seed uint64, stratify bool) (Split, error) {
	if len(y) < 2 {
		return Split{}, errors.NewValueError("TrainTestSplit", "need at least two rows")
	}
	if !(prop > 0 && prop < 1) {
		return Split{}, errors.NewValidationError("train_prop", "must be in (0, 1)", prop)
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return Split{}, errors.NewValueError("TrainTestSplit", fmt.Sprintf("label is NaN at row %d", i))
		}
	}

	rng := newRand(seed)
	var split Split
	for _, group := range strata(y, stratify) {
		idx := append([]int(nil), group...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTrain := trainCount(len(idx), prop)
		split.Train = append(split.Train, idx[:nTrain]...)
		split.Test = append(split.Test, idx[nTrain:]...)
	}
	if len(split.Train) == 0 || len(split.Test) == 0 {
		return Split{}, errors.NewValueError("TrainTestSplit", "a partition is empty; increase data or adjust train_prop")
	}
	sort.Ints(split.Train)
	sort.Ints(split.Test)
	return split, nil
}

// trainCount returns floor(n*prop). The tolerance keeps products such as
// 0.7*90 (62.999...) from losing a row.
func trainCount(n int, prop float64) int {
	return int(math.Floor(prop*float64(n) + 1e-9))
}

// Take returns y at the given indices.
func Take(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}
