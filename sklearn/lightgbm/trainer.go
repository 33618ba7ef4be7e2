package lightgbm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/bankloan/metrics"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Trainer implements gradient boosting over histogram-binned features with
// leaf-wise tree growth.
type Trainer struct {
	// Training parameters
	params TrainingParams

	// Data
	X         *mat.Dense
	y         []float64
	nSamples  int
	nFeatures int

	// Histogram data structures
	mappers []BinMapper
	bins    [][]int32 // bins[feature][row]

	// Gradient and Hessian
	gradients []float64
	hessians  []float64

	// scores caches the raw ensemble output of every training row
	scores []float64

	// Trees
	trees []Tree
	model *Model

	objective ObjectiveFunction
	initScore float64
	sampler   *SamplingStrategy
	reg       *RegularizationStrategy
	cons      splitConstraints

	// Optional held-out data for callbacks
	valid       *ValidationData
	validScores []float64

	// Callbacks
	callbacks *CallbackList

	logger log.Logger
}

// ValidationData is evaluated after every iteration when callbacks are set.
type ValidationData struct {
	X mat.Matrix
	y []float64
}

// NewValidationData wraps a held-out feature matrix and target vector.
func NewValidationData(X mat.Matrix, y []float64) *ValidationData {
	return &ValidationData{X: X, y: y}
}

// NewTrainer creates a trainer. Zero fields of params take their defaults.
func NewTrainer(params TrainingParams) *Trainer {
	return &Trainer{
		params:    params.withDefaults(),
		callbacks: NewCallbackList(),
		logger:    log.GetLoggerWithName("lightgbm.trainer"),
	}
}

// WithCallbacks adds callbacks to the trainer
func (t *Trainer) WithCallbacks(callbacks ...Callback) *Trainer {
	t.callbacks = NewCallbackList(callbacks...)
	return t
}

// WithValidation sets held-out data reported to callbacks.
func (t *Trainer) WithValidation(valid *ValidationData) *Trainer {
	t.valid = valid
	return t
}

// Params returns the effective training parameters.
func (t *Trainer) Params() TrainingParams {
	return t.params
}

// Fit trains the model on X (n×p) and y (n×1).
func (t *Trainer) Fit(X, y mat.Matrix) error {
	return t.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation checked between iterations.
func (t *Trainer) FitContext(ctx context.Context, X, y mat.Matrix) error {
	start := time.Now()
	if err := t.initialize(X, y); err != nil {
		return err
	}

	for iter := 0; iter < t.params.NumIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "training cancelled at iteration %d", iter)
		}

		model := t.GetModel()
		if err := t.callbacks.BeforeIteration(iter, model); err != nil {
			return errors.Wrapf(err, "callback error at iteration %d", iter)
		}
		if t.callbacks.ShouldStop() {
			break
		}

		t.calculateGradients()

		rows := t.sampler.SampleInstances(t.nSamples, iter)
		features := t.sampler.SampleFeatures(t.nFeatures)
		tree := t.buildTree(iter, rows, features)
		if tree.NumLeaves < 2 {
			errors.Warn(errors.NewConvergenceWarning("GBDT", iter,
				"stopped training because no leaf meets the split requirements"))
			break
		}

		t.trees = append(t.trees, tree)
		t.updateScores(&t.trees[len(t.trees)-1])

		if t.callbacks.Len() > 0 {
			evalResults := t.evaluate()
			if err := t.callbacks.AfterIteration(iter, t.GetModel(), evalResults); err != nil {
				return errors.Wrapf(err, "callback error at iteration %d", iter)
			}
			if t.callbacks.ShouldStop() {
				break
			}
		}

		if t.params.Verbosity > 0 && (iter+1)%100 == 0 {
			t.logger.Debug("Training progress",
				log.IterationKey, iter+1,
				"num_leaves", tree.NumLeaves,
			)
		}
	}

	t.logger.Debug("Boosting finished",
		log.IterationKey, len(t.trees),
		log.SamplesKey, t.nSamples,
		log.FeaturesKey, t.nFeatures,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// initialize validates inputs, bins features and sets the initial scores.
func (t *Trainer) initialize(X, y mat.Matrix) error {
	if err := t.params.Validate(); err != nil {
		return err
	}

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}
	yRows, _ := y.Dims()
	if yRows != rows {
		return errors.NewDimensionError("Trainer.Fit", rows, yRows, 0)
	}
	for _, f := range t.params.CategoricalFeatures {
		if f < 0 || f >= cols {
			return errors.NewValidationError("categorical_features", "index out of range", f)
		}
	}

	objective, err := CreateObjectiveFunction(t.params.Objective)
	if err != nil {
		return err
	}
	t.objective = objective

	t.X = mat.DenseCopyOf(X)
	t.nSamples, t.nFeatures = rows, cols
	t.y = make([]float64, rows)
	for i := range t.y {
		t.y[i] = y.At(i, 0)
		if math.IsNaN(t.y[i]) || math.IsInf(t.y[i], 0) {
			return errors.NewValueError("Trainer.Fit", "target contains NaN or Inf")
		}
	}

	t.mappers = make([]BinMapper, cols)
	t.bins = make([][]int32, cols)
	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(column, j, t.X)
		categorical := t.params.isCategorical(j)
		if categorical {
			for i, v := range column {
				if math.IsNaN(v) || v < 0 || v != math.Trunc(v) {
					return errors.NewValueError("Trainer.Fit",
						fmt.Sprintf("categorical feature %d row %d is not a non-negative code: %v", j, i, v))
				}
			}
		}
		t.mappers[j] = NewBinMapper(column, t.params.MaxBin, categorical)
		t.bins[j] = make([]int32, rows)
		for i, v := range column {
			t.bins[j][i] = int32(t.mappers[j].ValueToBin(v))
		}
	}

	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.initScore = t.objective.GetInitScore(t.y)
	t.scores = make([]float64, rows)
	for i := range t.scores {
		t.scores[i] = t.initScore
	}
	t.trees = nil
	t.model = NewModel()

	if t.valid != nil {
		vr, vc := t.valid.X.Dims()
		if vc != cols || len(t.valid.y) != vr {
			return errors.NewDimensionError("Trainer.Fit validation", cols, vc, 1)
		}
		t.validScores = make([]float64, vr)
		for i := range t.validScores {
			t.validScores[i] = t.initScore
		}
	}

	t.sampler = NewSamplingStrategy(t.params)
	t.reg = NewRegularizationStrategy(t.params)
	t.cons = splitConstraints{
		minDataInLeaf:       t.params.MinDataInLeaf,
		minSumHessianInLeaf: t.params.MinSumHessianInLeaf,
		minGainToSplit:      t.params.MinGainToSplit,
	}
	return nil
}

// calculateGradients computes gradients and hessians from the cached scores
func (t *Trainer) calculateGradients() {
	for i := 0; i < t.nSamples; i++ {
		t.gradients[i] = t.objective.CalculateGradient(t.scores[i], t.y[i])
		t.hessians[i] = t.objective.CalculateHessian(t.scores[i], t.y[i])
	}
}

// leafState is a growable leaf during tree construction.
type leafState struct {
	node  int
	rows  []int
	depth int
	sum   HistogramBin
	hists map[int]FeatureHistogram
	split SplitInfo
}

// buildTree grows one tree best-first: the leaf with the largest gain is
// split until NumLeaves is reached or no leaf has a valid split.
func (t *Trainer) buildTree(iter int, rows []int, features []int) Tree {
	tree := Tree{TreeIndex: iter, ShrinkageRate: t.params.LearningRate}

	root := &leafState{node: 0, rows: rows, sum: t.sumStats(rows)}
	tree.Nodes = append(tree.Nodes, t.newLeaf(0, -1, 0, root.sum))
	root.hists = t.buildHists(rows, features)
	t.findSplit(root, features)

	leaves := []*leafState{root}
	for t.params.NumLeaves <= 0 || len(leaves) < t.params.NumLeaves {
		bestIdx := -1
		for i, l := range leaves {
			if l.split.Valid() && (bestIdx < 0 || l.split.Gain > leaves[bestIdx].split.Gain) {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		left, right := t.splitLeaf(&tree, leaves[bestIdx], features)
		leaves[bestIdx] = left
		leaves = append(leaves, right)
		if left.depth > tree.MaxDepth {
			tree.MaxDepth = left.depth
		}
	}
	tree.NumLeaves = len(leaves)
	return tree
}

func (t *Trainer) sumStats(rows []int) HistogramBin {
	var s HistogramBin
	for _, r := range rows {
		s.Count++
		s.SumGrad += t.gradients[r]
		s.SumHess += t.hessians[r]
	}
	return s
}

func (t *Trainer) newLeaf(id, parent, depth int, sum HistogramBin) Node {
	return Node{
		NodeID:     id,
		ParentID:   parent,
		LeftChild:  -1,
		RightChild: -1,
		NodeType:   LeafNode,
		Depth:      depth,
		LeafValue:  t.reg.LeafOutput(sum.SumGrad, sum.SumHess),
		LeafCount:  sum.Count,
		SumHessian: sum.SumHess,
	}
}

func (t *Trainer) buildHists(rows []int, features []int) map[int]FeatureHistogram {
	hists := make(map[int]FeatureHistogram, len(features))
	for _, f := range features {
		hists[f] = buildHistogram(f, t.mappers[f].NumBins, t.bins[f], rows, t.gradients, t.hessians)
	}
	return hists
}

// findSplit stores the best split of a leaf; leaves that cannot split drop
// their histograms.
func (t *Trainer) findSplit(leaf *leafState, features []int) {
	leaf.split = noSplit()
	if t.params.MaxDepth > 0 && leaf.depth >= t.params.MaxDepth {
		leaf.hists = nil
		return
	}
	if leaf.sum.Count < 2*t.params.MinDataInLeaf || leaf.sum.SumHess < 2*t.params.MinSumHessianInLeaf {
		leaf.hists = nil
		return
	}

	for _, f := range features {
		hist := leaf.hists[f]
		var s SplitInfo
		if t.mappers[f].Categorical {
			s = findBestCategoricalSplit(hist, leaf.sum, t.params, t.reg, t.cons)
		} else {
			s = findBestNumericalSplit(hist, t.mappers[f], leaf.sum, t.reg, t.cons)
		}
		if s.Valid() && s.Gain > leaf.split.Gain {
			leaf.split = s
		}
	}
	if !leaf.split.Valid() {
		leaf.hists = nil
	}
}

// splitLeaf turns the leaf into an internal node and returns its children.
func (t *Trainer) splitLeaf(tree *Tree, leaf *leafState, features []int) (*leafState, *leafState) {
	s := leaf.split
	leftRows, rightRows := t.partition(leaf.rows, s)

	leftID := len(tree.Nodes)
	rightID := leftID + 1
	node := &tree.Nodes[leaf.node]
	node.LeftChild = leftID
	node.RightChild = rightID
	node.SplitFeature = s.Feature
	node.Gain = s.Gain
	node.InternalCount = node.LeafCount
	if s.Categorical {
		node.NodeType = CategoricalNode
		node.Categories = s.Categories
	} else {
		node.NodeType = NumericalNode
		node.Threshold = s.Threshold
	}

	leftSum := HistogramBin{Count: len(leftRows), SumGrad: s.LeftGrad, SumHess: s.LeftHess}
	rightSum := HistogramBin{Count: len(rightRows), SumGrad: s.RightGrad, SumHess: s.RightHess}
	tree.Nodes = append(tree.Nodes,
		t.newLeaf(leftID, leaf.node, leaf.depth+1, leftSum),
		t.newLeaf(rightID, leaf.node, leaf.depth+1, rightSum),
	)

	left := &leafState{node: leftID, rows: leftRows, depth: leaf.depth + 1, sum: leftSum}
	right := &leafState{node: rightID, rows: rightRows, depth: leaf.depth + 1, sum: rightSum}

	// build the smaller child directly and derive the larger by subtraction
	small, large := left, right
	if len(rightRows) < len(leftRows) {
		small, large = right, left
	}
	small.hists = t.buildHists(small.rows, features)
	large.hists = make(map[int]FeatureHistogram, len(features))
	for _, f := range features {
		large.hists[f] = subtractHistogram(leaf.hists[f], small.hists[f])
	}
	leaf.hists = nil

	t.findSplit(left, features)
	t.findSplit(right, features)
	return left, right
}

func (t *Trainer) partition(rows []int, s SplitInfo) (left, right []int) {
	bins := t.bins[s.Feature]
	left = make([]int, 0, s.LeftCount)
	right = make([]int, 0, s.RightCount)

	if s.Categorical {
		inLeft := make([]bool, t.mappers[s.Feature].NumBins)
		for _, c := range s.Categories {
			inLeft[c] = true
		}
		for _, r := range rows {
			if inLeft[bins[r]] {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		return left, right
	}

	for _, r := range rows {
		if int(bins[r]) <= s.Bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

// updateScores adds the new tree's output to every cached score,
// including out-of-bag rows.
func (t *Trainer) updateScores(tree *Tree) {
	for i := 0; i < t.nSamples; i++ {
		t.scores[i] += tree.Predict(t.X.RawRowView(i))
	}
	if t.valid != nil {
		_, cols := t.valid.X.Dims()
		row := make([]float64, cols)
		for i := range t.validScores {
			mat.Row(row, i, t.valid.X)
			t.validScores[i] += tree.Predict(row)
		}
	}
}

// evaluate computes the metrics passed to AfterIteration callbacks.
func (t *Trainer) evaluate() map[string]float64 {
	results := map[string]float64{EvalTrainLoss: t.meanLoss(t.scores, t.y)}
	if t.valid == nil {
		return results
	}
	results[EvalValidLoss] = t.meanLoss(t.validScores, t.valid.y)
	if t.objective.Name() == string(BinaryLogistic) {
		prob := make([]float64, len(t.validScores))
		for i, s := range t.validScores {
			prob[i] = errors.Sigmoid(s)
		}
		auc, err := metrics.AUC(mat.NewVecDense(len(t.valid.y), t.valid.y), mat.NewVecDense(len(prob), prob))
		if err == nil {
			results[EvalValidAUC] = auc
		}
	}
	return results
}

func (t *Trainer) meanLoss(scores, y []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := range y {
		sum += t.objective.CalculateLoss(scores[i], y[i])
	}
	return sum / float64(len(y))
}

// TrainingScores returns a copy of the cached raw scores of the training rows.
func (t *Trainer) TrainingScores() []float64 {
	out := make([]float64, len(t.scores))
	copy(out, t.scores)
	return out
}

// GetModel returns the trained model. The same *Model is returned on every
// call so callbacks can record BestIteration on it.
func (t *Trainer) GetModel() *Model {
	if t.model == nil {
		t.model = NewModel()
	}
	m := t.model
	if t.objective != nil {
		m.Objective = ObjectiveType(t.objective.Name())
	}
	m.NumIteration = len(t.trees)
	m.LearningRate = t.params.LearningRate
	m.NumLeaves = t.params.NumLeaves
	m.MaxDepth = t.params.MaxDepth
	m.Trees = t.trees
	m.NumFeatures = t.nFeatures
	m.CategoricalFeatures = append([]int(nil), t.params.CategoricalFeatures...)
	m.InitScore = t.initScore
	m.Parameters = map[string]interface{}{
		"num_iterations":          t.params.NumIterations,
		"learning_rate":           t.params.LearningRate,
		"num_leaves":              t.params.NumLeaves,
		"max_depth":               t.params.MaxDepth,
		"min_data_in_leaf":        t.params.MinDataInLeaf,
		"min_sum_hessian_in_leaf": t.params.MinSumHessianInLeaf,
		"min_gain_to_split":       t.params.MinGainToSplit,
		"bagging_fraction":        t.params.BaggingFraction,
		"bagging_freq":            t.params.BaggingFreq,
		"feature_fraction":        t.params.FeatureFraction,
		"lambda_l1":               t.params.Alpha,
		"lambda_l2":               t.params.Lambda,
		"max_bin":                 t.params.MaxBin,
		"seed":                    t.params.Seed,
	}
	return m
}
