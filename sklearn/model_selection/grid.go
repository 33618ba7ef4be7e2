package model_selection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// ParamSet is one candidate configuration.
type ParamSet struct {
	ID     string
	Values map[string]float64
}

// Params returns the values as SetParams input; integer parameters are
// passed as int.
func (ps ParamSet) Params(space ParamSpace) map[string]interface{} {
	out := make(map[string]interface{}, len(ps.Values))
	for name, v := range ps.Values {
		if p, ok := space.Lookup(name); ok && p.Integer {
			out[name] = int(v)
			continue
		}
		out[name] = v
	}
	return out
}

// Grid is the set of candidates evaluated by TuneGrid.
type Grid struct {
	Space ParamSpace
	Sets  []ParamSet
}

// Len returns the number of candidates.
func (g Grid) Len() int { return len(g.Sets) }

// configID formats "Preprocessor1_ModelNN" padded to the grid width.
func configID(i, n int) string {
	return fmt.Sprintf("Preprocessor1_Model%0*d", len(strconv.Itoa(n)), i+1)
}

// LatinHypercube draws size points: each parameter's [0, 1] range is cut
// into size strata, one uniform point is drawn inside every stratum and
// the strata are paired across parameters by independent permutations.
// Points that coincide after rounding are dropped, so the grid may be
// smaller than size.
func LatinHypercube(space ParamSpace, size int, seed uint64) (Grid, error) {
	if size < 1 {
		return Grid{}, errors.NewValidationError("grid_size", "must be >= 1", size)
	}
	if err := space.Validate(); err != nil {
		return Grid{}, err
	}

	rng := newRand(seed)
	unit := make([][]float64, len(space)) // unit[param][row]
	for j := range space {
		perm := rng.Perm(size)
		unit[j] = make([]float64, size)
		for i := 0; i < size; i++ {
			unit[j][i] = (float64(perm[i]) + rng.Float64()) / float64(size)
		}
	}

	seen := map[string]bool{}
	var sets []ParamSet
	for i := 0; i < size; i++ {
		values := make(map[string]float64, len(space))
		var key strings.Builder
		for j, p := range space {
			v := p.Value(unit[j][i])
			values[p.Name] = v
			fmt.Fprintf(&key, "%v|", v)
		}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		sets = append(sets, ParamSet{Values: values})
	}

	for i := range sets {
		sets[i].ID = configID(i, len(sets))
	}
	return Grid{Space: space, Sets: sets}, nil
}
