package model_selection

import (
	"math"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// Transform maps a parameter between its search scale and its value.
type Transform int

const (
	// Identity searches the value directly.
	Identity Transform = iota
	// Log10 searches log10(value); Lower and Upper are exponents.
	Log10
)

func (t Transform) String() string {
	if t == Log10 {
		return "log-10"
	}
	return "identity"
}

// Param is one tunable hyperparameter. Lower and Upper are on the search
// scale (exponents for Log10). An Unknown upper bound must be finalised from
// the data before a grid can be built.
type Param struct {
	Name      string
	Label     string
	Lower     float64
	Upper     float64
	Integer   bool
	Transform Transform
	Unknown   bool
}

// Finalize returns p with its upper bound set.
func (p Param) Finalize(upper float64) Param {
	p.Upper = upper
	p.Unknown = false
	return p
}

// Value maps u in [0, 1] onto the parameter: linear on the search scale,
// then inverse-transformed and rounded for integer parameters.
func (p Param) Value(u float64) float64 {
	x := p.Lower + u*(p.Upper-p.Lower)
	if p.Transform == Log10 {
		x = math.Pow(10, x)
	}
	if p.Integer {
		x = math.Round(x)
	}
	return x
}

// Range returns the bounds in value units.
func (p Param) Range() (lo, hi float64) {
	if p.Transform == Log10 {
		return math.Pow(10, p.Lower), math.Pow(10, p.Upper)
	}
	return p.Lower, p.Upper
}

// Hyperparameter names of the boosted-tree model.
const (
	ParamTreeDepth     = "tree_depth"
	ParamMinN          = "min_n"
	ParamLossReduction = "loss_reduction"
	ParamSampleSize    = "sample_size"
	ParamMtry          = "mtry"
	ParamLearnRate     = "learn_rate"
)

// ParamSpace is an ordered set of parameters.
type ParamSpace []Param

// DefaultSpace returns the six tunable boosted-tree parameters with their
// standard ranges. mtry is unknown until finalised with the predictor count.
func DefaultSpace() ParamSpace {
	return ParamSpace{
		{Name: ParamMtry, Label: "# Randomly Selected Predictors", Lower: 1, Integer: true, Unknown: true},
		{Name: ParamMinN, Label: "Minimal Node Size", Lower: 2, Upper: 40, Integer: true},
		{Name: ParamTreeDepth, Label: "Tree Depth", Lower: 1, Upper: 15, Integer: true},
		{Name: ParamLearnRate, Label: "Learning Rate", Lower: -10, Upper: -1, Transform: Log10},
		{Name: ParamLossReduction, Label: "Minimum Loss Reduction", Lower: -10, Upper: 1.5, Transform: Log10},
		{Name: ParamSampleSize, Label: "Proportion Observations Sampled", Lower: 0.1, Upper: 1},
	}
}

// Finalize fills the mtry upper bound with the number of predictors.
func (s ParamSpace) Finalize(nPredictors int) ParamSpace {
	out := make(ParamSpace, len(s))
	for i, p := range s {
		if p.Name == ParamMtry && p.Unknown {
			p = p.Finalize(float64(nPredictors))
		}
		out[i] = p
	}
	return out
}

// Names returns parameter names in order.
func (s ParamSpace) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// Lookup returns the parameter called name.
func (s ParamSpace) Lookup(name string) (Param, bool) {
	for _, p := range s {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Validate checks that every bound is known and ordered.
func (s ParamSpace) Validate() error {
	if len(s) == 0 {
		return errors.NewValidationError("param_space", "is empty", 0)
	}
	seen := map[string]bool{}
	for _, p := range s {
		if seen[p.Name] {
			return errors.NewValidationError(p.Name, "duplicate parameter", p.Name)
		}
		seen[p.Name] = true
		if p.Unknown {
			return errors.NewValidationError(p.Name, "range has an unknown bound; finalize it first", p.Upper)
		}
		if math.IsNaN(p.Lower) || math.IsNaN(p.Upper) || p.Lower > p.Upper {
			return errors.NewValidationError(p.Name, "lower bound exceeds upper bound", [2]float64{p.Lower, p.Upper})
		}
	}
	return nil
}
