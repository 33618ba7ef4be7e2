package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// ObjectiveFunction defines the interface for different objective functions.
// prediction is always the raw (untransformed) ensemble score.
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the initial score for this objective
	GetInitScore(targets []float64) float64

	// Name returns the name of the objective
	Name() string
}

// L2Objective implements L2 (Mean Squared Error) loss
type L2Objective struct{}

func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Name() string {
	return string(RegressionL2)
}

// BinaryLoglossObjective is the logistic loss for targets in {0, 1}.
// With p = sigmoid(score): gradient p - y, hessian p(1-p).
type BinaryLoglossObjective struct {
	// minHessian keeps leaves finite when every row is predicted with certainty
	minHessian float64
}

func NewBinaryLoglossObjective() *BinaryLoglossObjective {
	return &BinaryLoglossObjective{minHessian: 1e-16}
}

func (o *BinaryLoglossObjective) CalculateGradient(prediction, target float64) float64 {
	return errors.Sigmoid(prediction) - target
}

func (o *BinaryLoglossObjective) CalculateHessian(prediction, target float64) float64 {
	p := errors.Sigmoid(prediction)
	return math.Max(p*(1-p), o.minHessian)
}

// CalculateLoss is log(1+exp(s)) - y*s written to avoid overflow.
func (o *BinaryLoglossObjective) CalculateLoss(prediction, target float64) float64 {
	var softplus float64
	if prediction > 0 {
		softplus = prediction + math.Log1p(math.Exp(-prediction))
	} else {
		softplus = math.Log1p(math.Exp(prediction))
	}
	return softplus - target*prediction
}

// GetInitScore returns the log-odds of the positive rate (boost from average).
func (o *BinaryLoglossObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	pos := 0.0
	for _, t := range targets {
		pos += t
	}
	return errors.Logit(pos / float64(len(targets)))
}

func (o *BinaryLoglossObjective) Name() string {
	return string(BinaryLogistic)
}

// CreateObjectiveFunction creates an objective function based on the objective name
func CreateObjectiveFunction(objective string) (ObjectiveFunction, error) {
	switch objective {
	case "regression", "regression_l2", "l2", "mse":
		return NewL2Objective(), nil
	case "binary", "binary_logloss":
		return NewBinaryLoglossObjective(), nil
	default:
		return nil, errors.NewValidationError("objective", "unsupported objective", objective)
	}
}
