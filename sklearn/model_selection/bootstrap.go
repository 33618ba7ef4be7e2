package model_selection

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// Resample is one bootstrap replicate. Analysis rows are drawn with
// replacement; Assessment holds the out-of-bag rows.
type Resample struct {
	ID         string
	Analysis   []int
	Assessment []int
}

// Bootstraps draws times bootstrap replicates of len(y) rows. With stratify
// the draw happens within each label class so every analysis set keeps the
// class proportions of y.
func Bootstraps(y []float64, times int, seed uint64, stratify bool) ([]Resample, error) {
	if times < 1 {
		return nil, errors.NewValidationError("bootstraps", "must be >= 1", times)
	}
	if len(y) < 2 {
		return nil, errors.NewValueError("Bootstraps", "need at least two rows")
	}

	rng := newRand(seed)
	groups := strata(y, stratify)
	width := len(fmt.Sprint(times))
	out := make([]Resample, times)
	inBag := make([]bool, len(y))

	for b := 0; b < times; b++ {
		for i := range inBag {
			inBag[i] = false
		}
		analysis := make([]int, 0, len(y))
		for _, group := range groups {
			for range group {
				r := group[rng.IntN(len(group))]
				analysis = append(analysis, r)
				inBag[r] = true
			}
		}
		sort.Ints(analysis)

		var assessment []int
		for i, in := range inBag {
			if !in {
				assessment = append(assessment, i)
			}
		}

		out[b] = Resample{
			ID:         fmt.Sprintf("Bootstrap%0*d", width, b+1),
			Analysis:   analysis,
			Assessment: assessment,
		}
	}
	return out, nil
}
