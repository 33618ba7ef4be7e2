package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// Metric names understood by Compute. They follow the yardstick naming the
// analysis reports use.
const (
	RocAUC     = "roc_auc"
	AccuracyM  = "accuracy"
	MnLogLoss  = "mn_log_loss"
	PrAUC      = "pr_auc"
	defaultCut = 0.5
)

type probMetric struct {
	fn             func(yTrue, prob *mat.VecDense) (float64, error)
	higherIsBetter bool
}

var registry = map[string]probMetric{
	RocAUC:    {fn: AUC, higherIsBetter: true},
	MnLogLoss: {fn: BinaryLogLoss, higherIsBetter: false},
	PrAUC:     {fn: AveragePrecision, higherIsBetter: true},
	AccuracyM: {fn: accuracyAtHalf, higherIsBetter: true},
}

func accuracyAtHalf(yTrue, prob *mat.VecDense) (float64, error) {
	if _, err := validatePair("accuracy", yTrue, prob); err != nil {
		return 0, err
	}
	return Accuracy(yTrue, Classify(prob, defaultCut))
}

// Names returns the registered metric names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a registered metric.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// HigherIsBetter reports the optimisation direction of a metric.
func HigherIsBetter(name string) bool {
	return registry[name].higherIsBetter
}

// Compute evaluates a named metric from 0/1 labels and P(Yes).
func Compute(name string, yTrue, prob *mat.VecDense) (float64, error) {
	m, ok := registry[name]
	if !ok {
		return 0, errors.NewValueError("metrics.Compute", "unknown metric "+name)
	}
	return m.fn(yTrue, prob)
}

// Classify turns probabilities into 0/1 labels: 1 when prob >= threshold.
func Classify(prob *mat.VecDense, threshold float64) *mat.VecDense {
	out := mat.NewVecDense(prob.Len(), nil)
	for i := 0; i < prob.Len(); i++ {
		if prob.AtVec(i) >= threshold {
			out.SetVec(i, 1)
		}
	}
	return out
}
