package lightgbm

import (
	"github.com/YuminosukeSato/bankloan/core/parallel"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// parallelThreshold is the row count below which prediction stays on the
// calling goroutine.
const parallelThreshold = 512

// Predictor scores batches of samples with a trained model.
type Predictor struct {
	model      *Model
	numThreads int
}

// NewPredictor creates a new predictor with the given model
func NewPredictor(model *Model) *Predictor {
	return &Predictor{model: model}
}

// SetNumThreads sets the degree of parallelism. 1 forces sequential
// prediction; <= 0 uses all CPUs.
func (p *Predictor) SetNumThreads(n int) {
	p.numThreads = n
}

// numIteration honours BestIteration recorded by early stopping.
func (p *Predictor) numIteration() int {
	n := len(p.model.Trees)
	if p.model.BestIteration > 0 && p.model.BestIteration < n {
		n = p.model.BestIteration
	}
	return n
}

// Predict returns transformed predictions (positive-class probability for
// the binary objective) as an n×1 matrix.
func (p *Predictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return p.predict(X, p.model.PredictSingle)
}

// PredictRaw returns untransformed ensemble scores as an n×1 matrix.
func (p *Predictor) PredictRaw(X mat.Matrix) (mat.Matrix, error) {
	return p.predict(X, p.model.PredictRawSingle)
}

func (p *Predictor) predict(X mat.Matrix, score func([]float64, int) float64) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("Predictor.Predict", p.model.NumFeatures, cols, 1)
	}
	out := mat.NewDense(rows, 1, nil)
	numIteration := p.numIteration()

	work := func(start, end int) {
		features := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(features, i, X)
			out.Set(i, 0, score(features, numIteration))
		}
	}

	if p.numThreads == 1 {
		work(0, rows)
	} else {
		parallel.ParallelizeWithThreshold(rows, parallelThreshold, work)
	}
	return out, nil
}
