package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"` // 0 means no limit
	MaxDepth      int     `json:"max_depth"`  // <= 0 means no limit
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	MinSumHessianInLeaf float64 `json:"min_sum_hessian_in_leaf"`
	Lambda              float64 `json:"lambda_l2"`
	Alpha               float64 `json:"lambda_l1"`
	MinGainToSplit      float64 `json:"min_gain_to_split"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction"`
	BaggingFreq     int     `json:"bagging_freq"`
	FeatureFraction float64 `json:"feature_fraction"`

	// Histogram parameters
	MaxBin int `json:"max_bin"`

	// Objective
	Objective string `json:"objective"`

	// Categorical features
	CategoricalFeatures []int   `json:"categorical_features"` // Indices of categorical features
	MaxCatToOnehot      int     `json:"max_cat_to_onehot"`    // One-vs-rest splits up to this many categories
	MaxCatThreshold     int     `json:"max_cat_threshold"`    // Max categories sent left by a many-vs-many split
	CatSmooth           float64 `json:"cat_smooth"`           // Smoothing when ordering categories
	CatL2               float64 `json:"cat_l2"`               // Extra L2 for categorical splits

	// Other
	Seed          uint64 `json:"seed"`
	Deterministic bool   `json:"deterministic"`
	Verbosity     int    `json:"verbosity"`
}

// DefaultTrainingParams returns LightGBM's documented defaults for the
// binary objective.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:       100,
		LearningRate:        0.1,
		NumLeaves:           31,
		MaxDepth:            -1,
		MinDataInLeaf:       20,
		MinSumHessianInLeaf: 1e-3,
		BaggingFraction:     1.0,
		FeatureFraction:     1.0,
		MaxBin:              255,
		Objective:           string(BinaryLogistic),
		MaxCatToOnehot:      4,
		MaxCatThreshold:     32,
		CatSmooth:           10,
		CatL2:               10,
	}
}

// withDefaults fills zero values so a partially specified struct behaves
// like DefaultTrainingParams.
func (p TrainingParams) withDefaults() TrainingParams {
	d := DefaultTrainingParams()
	if p.NumIterations == 0 {
		p.NumIterations = d.NumIterations
	}
	if p.LearningRate == 0 {
		p.LearningRate = d.LearningRate
	}
	if p.MaxBin == 0 {
		p.MaxBin = d.MaxBin
	}
	if p.MinDataInLeaf == 0 {
		p.MinDataInLeaf = 1
	}
	if p.BaggingFraction == 0 {
		p.BaggingFraction = d.BaggingFraction
	}
	if p.FeatureFraction == 0 {
		p.FeatureFraction = d.FeatureFraction
	}
	if p.Objective == "" {
		p.Objective = d.Objective
	}
	if p.MaxCatToOnehot == 0 {
		p.MaxCatToOnehot = d.MaxCatToOnehot
	}
	if p.MaxCatThreshold == 0 {
		p.MaxCatThreshold = d.MaxCatThreshold
	}
	return p
}

// Validate checks ranges. It is called by the trainer after defaults are applied.
func (p TrainingParams) Validate() error {
	switch {
	case p.NumIterations < 1:
		return errors.NewValidationError("num_iterations", "must be >= 1", p.NumIterations)
	case !(p.LearningRate > 0) || math.IsInf(p.LearningRate, 0):
		return errors.NewValidationError("learning_rate", "must be > 0", p.LearningRate)
	case p.NumLeaves < 0 || p.NumLeaves == 1:
		return errors.NewValidationError("num_leaves", "must be 0 (unbounded) or >= 2", p.NumLeaves)
	case p.MinDataInLeaf < 1:
		return errors.NewValidationError("min_data_in_leaf", "must be >= 1", p.MinDataInLeaf)
	case p.MinSumHessianInLeaf < 0:
		return errors.NewValidationError("min_sum_hessian_in_leaf", "must be >= 0", p.MinSumHessianInLeaf)
	case p.Lambda < 0:
		return errors.NewValidationError("lambda_l2", "must be >= 0", p.Lambda)
	case p.Alpha < 0:
		return errors.NewValidationError("lambda_l1", "must be >= 0", p.Alpha)
	case p.MinGainToSplit < 0:
		return errors.NewValidationError("min_gain_to_split", "must be >= 0", p.MinGainToSplit)
	case p.BaggingFraction <= 0 || p.BaggingFraction > 1:
		return errors.NewValidationError("bagging_fraction", "must be in (0, 1]", p.BaggingFraction)
	case p.BaggingFreq < 0:
		return errors.NewValidationError("bagging_freq", "must be >= 0", p.BaggingFreq)
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return errors.NewValidationError("feature_fraction", "must be in (0, 1]", p.FeatureFraction)
	case p.MaxBin < 2:
		return errors.NewValidationError("max_bin", "must be >= 2", p.MaxBin)
	}
	return nil
}

func (p TrainingParams) isCategorical(feature int) bool {
	for _, c := range p.CategoricalFeatures {
		if c == feature {
			return true
		}
	}
	return false
}
