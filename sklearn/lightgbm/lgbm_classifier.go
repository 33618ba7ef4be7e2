package lightgbm

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/bankloan/core/model"
	"github.com/YuminosukeSato/bankloan/metrics"
	lgbmErrors "github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// LGBMClassifier implements a binary gradient-boosted tree classifier with a
// scikit-learn style API. Labels must be 0 and 1.
type LGBMClassifier struct {
	model.BaseEstimator

	// Model
	Model     *Model
	Predictor *Predictor

	// Hyperparameters (matching Python LightGBM)
	NumLeaves       int     // Maximum leaves per tree, 0 for no limit
	MaxDepth        int     // Maximum tree depth, <= 0 for no limit
	LearningRate    float64 // Boosting learning rate
	NumIterations   int     // Number of boosting iterations
	MinChildSamples int     // Minimum number of data in one leaf
	MinChildWeight  float64 // Minimum sum of hessians in one leaf
	MinSplitGain    float64 // Minimum loss reduction to make a split
	Subsample       float64 // Subsample ratio of training data
	SubsampleFreq   int     // Frequency of subsample
	ColsampleBytree float64 // Subsample ratio of columns when constructing tree
	Mtry            int     // Columns per tree; overrides ColsampleBytree when > 0
	RegAlpha        float64 // L1 regularization
	RegLambda       float64 // L2 regularization
	MaxBin          int     // Maximum histogram bins per feature
	RandomState     int     // Random seed
	NumThreads      int     // Number of threads for prediction
	Verbosity       int     // Verbosity level

	CategoricalFeatures []int    // Indices of categorical features
	FeatureNames        []string // Optional names stored in the model
	Callbacks           []Callback

	// Internal state
	classes_   []int
	nFeatures_ int
	nSamples_  int
}

// NewLGBMClassifier creates a new classifier with LightGBM's default parameters
func NewLGBMClassifier() *LGBMClassifier {
	return &LGBMClassifier{
		NumLeaves:       31,
		MaxDepth:        -1,
		LearningRate:    0.1,
		NumIterations:   100,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		MaxBin:          255,
		RandomState:     42,
		NumThreads:      -1,
		Verbosity:       -1,
	}
}

// WithNumLeaves sets the number of leaves
func (lgb *LGBMClassifier) WithNumLeaves(n int) *LGBMClassifier {
	lgb.NumLeaves = n
	return lgb
}

// WithMaxDepth sets the maximum depth
func (lgb *LGBMClassifier) WithMaxDepth(d int) *LGBMClassifier {
	lgb.MaxDepth = d
	return lgb
}

// WithLearningRate sets the learning rate
func (lgb *LGBMClassifier) WithLearningRate(lr float64) *LGBMClassifier {
	lgb.LearningRate = lr
	return lgb
}

// WithNumIterations sets the number of iterations
func (lgb *LGBMClassifier) WithNumIterations(n int) *LGBMClassifier {
	lgb.NumIterations = n
	return lgb
}

// WithMinChildSamples sets the minimum number of rows per leaf
func (lgb *LGBMClassifier) WithMinChildSamples(n int) *LGBMClassifier {
	lgb.MinChildSamples = n
	return lgb
}

// WithMinChildWeight sets the minimum hessian sum per leaf
func (lgb *LGBMClassifier) WithMinChildWeight(w float64) *LGBMClassifier {
	lgb.MinChildWeight = w
	return lgb
}

// WithMinSplitGain sets the minimum loss reduction for a split
func (lgb *LGBMClassifier) WithMinSplitGain(g float64) *LGBMClassifier {
	lgb.MinSplitGain = g
	return lgb
}

// WithSubsample sets row bagging; freq 0 disables it
func (lgb *LGBMClassifier) WithSubsample(frac float64, freq int) *LGBMClassifier {
	lgb.Subsample = frac
	lgb.SubsampleFreq = freq
	return lgb
}

// WithColsampleBytree sets the share of columns offered to each tree
func (lgb *LGBMClassifier) WithColsampleBytree(frac float64) *LGBMClassifier {
	lgb.ColsampleBytree = frac
	return lgb
}

// WithRandomState sets the random seed
func (lgb *LGBMClassifier) WithRandomState(seed int) *LGBMClassifier {
	lgb.RandomState = seed
	return lgb
}

// WithCategoricalFeatures marks columns that hold integer category codes
func (lgb *LGBMClassifier) WithCategoricalFeatures(idx []int) *LGBMClassifier {
	lgb.CategoricalFeatures = append([]int(nil), idx...)
	return lgb
}

// WithFeatureNames records column names in the trained model
func (lgb *LGBMClassifier) WithFeatureNames(names []string) *LGBMClassifier {
	lgb.FeatureNames = append([]string(nil), names...)
	return lgb
}

// WithNumThreads sets prediction parallelism
func (lgb *LGBMClassifier) WithNumThreads(n int) *LGBMClassifier {
	lgb.NumThreads = n
	return lgb
}

// WithCallbacks sets training callbacks
func (lgb *LGBMClassifier) WithCallbacks(cbs ...Callback) *LGBMClassifier {
	lgb.Callbacks = cbs
	return lgb
}

// Clone returns an unfitted copy with the same hyperparameters.
func (lgb *LGBMClassifier) Clone() *LGBMClassifier {
	c := *lgb
	c.BaseEstimator = model.BaseEstimator{}
	c.Model = nil
	c.Predictor = nil
	c.classes_ = nil
	c.nFeatures_ = 0
	c.nSamples_ = 0
	c.CategoricalFeatures = append([]int(nil), lgb.CategoricalFeatures...)
	c.FeatureNames = append([]string(nil), lgb.FeatureNames...)
	c.Callbacks = append([]Callback(nil), lgb.Callbacks...)
	return &c
}

// trainingParams translates the sklearn-style fields for the trainer.
func (lgb *LGBMClassifier) trainingParams(nFeatures int) TrainingParams {
	featureFraction := lgb.ColsampleBytree
	if lgb.Mtry > 0 {
		featureFraction = math.Min(1, float64(lgb.Mtry)/float64(nFeatures))
	}
	return TrainingParams{
		NumIterations:       lgb.NumIterations,
		LearningRate:        lgb.LearningRate,
		NumLeaves:           lgb.NumLeaves,
		MaxDepth:            lgb.MaxDepth,
		MinDataInLeaf:       lgb.MinChildSamples,
		MinSumHessianInLeaf: lgb.MinChildWeight,
		MinGainToSplit:      lgb.MinSplitGain,
		Lambda:              lgb.RegLambda,
		Alpha:               lgb.RegAlpha,
		BaggingFraction:     lgb.Subsample,
		BaggingFreq:         lgb.SubsampleFreq,
		FeatureFraction:     featureFraction,
		MaxBin:              lgb.MaxBin,
		Objective:           string(BinaryLogistic),
		CategoricalFeatures: lgb.CategoricalFeatures,
		CatSmooth:           10,
		CatL2:               10,
		Seed:                uint64(lgb.RandomState),
		Verbosity:           lgb.Verbosity,
	}
}

// Fit trains the classifier
func (lgb *LGBMClassifier) Fit(X, y mat.Matrix) (err error) {
	return lgb.FitContext(context.Background(), X, y)
}

// FitContext trains the classifier and stops early when ctx is cancelled.
func (lgb *LGBMClassifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer lgbmErrors.Recover(&err, "LGBMClassifier.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return lgbmErrors.NewDimensionError("Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return lgbmErrors.NewDimensionError("Fit", 1, yCols, 1)
	}
	if len(lgb.FeatureNames) > 0 && len(lgb.FeatureNames) != cols {
		return lgbmErrors.NewDimensionError("Fit", len(lgb.FeatureNames), cols, 1)
	}

	seen := [2]bool{}
	for i := 0; i < rows; i++ {
		switch y.At(i, 0) {
		case 0:
			seen[0] = true
		case 1:
			seen[1] = true
		default:
			return lgbmErrors.NewValueError("LGBMClassifier.Fit", "labels must be 0 or 1")
		}
	}
	if !seen[0] || !seen[1] {
		return lgbmErrors.Wrap(lgbmErrors.ErrSingleClass, "LGBMClassifier.Fit")
	}

	lgb.Reset()
	lgb.nFeatures_ = cols
	lgb.nSamples_ = rows
	lgb.classes_ = []int{0, 1}

	logger := log.GetLoggerWithName("lightgbm.classifier")
	start := time.Now()

	trainer := NewTrainer(lgb.trainingParams(cols)).WithCallbacks(lgb.Callbacks...)
	if err := trainer.FitContext(ctx, X, y); err != nil {
		return lgbmErrors.Wrap(err, "training failed")
	}

	lgb.Model = trainer.GetModel()
	lgb.Model.FeatureNames = append([]string(nil), lgb.FeatureNames...)
	lgb.Predictor = NewPredictor(lgb.Model)
	lgb.Predictor.SetNumThreads(lgb.NumThreads)
	lgb.SetFitted()

	logger.Debug("LGBMClassifier fitted",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, len(lgb.Model.Trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// PredictProba returns class probabilities as an n×2 matrix: column 0 is
// P(label 0), column 1 is P(label 1).
func (lgb *LGBMClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !lgb.IsFitted() {
		return nil, lgbmErrors.NewNotFittedError("LGBMClassifier", "PredictProba")
	}
	_, cols := X.Dims()
	if cols != lgb.nFeatures_ {
		return nil, lgbmErrors.NewDimensionError("PredictProba", lgb.nFeatures_, cols, 1)
	}

	pos, err := lgb.Predictor.Predict(X)
	if err != nil {
		return nil, err
	}
	rows, _ := pos.Dims()
	proba := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := pos.At(i, 0)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns hard labels using a 0.5 cut on P(label 1).
func (lgb *LGBMClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	return lgb.PredictWithThreshold(X, 0.5, 1)
}

// PredictWithThreshold labels a row as class when P(class) >= threshold and
// as the other class otherwise.
func (lgb *LGBMClassifier) PredictWithThreshold(X mat.Matrix, threshold float64, class int) (mat.Matrix, error) {
	if class != 0 && class != 1 {
		return nil, lgbmErrors.NewValidationError("class", "must be 0 or 1", class)
	}
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		return nil, lgbmErrors.NewValidationError("threshold", "must be in [0, 1]", threshold)
	}
	proba, err := lgb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	labels := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		if proba.At(i, class) >= threshold {
			labels.Set(i, 0, float64(class))
		} else {
			labels.Set(i, 0, float64(1-class))
		}
	}
	return labels, nil
}

// Score returns the mean accuracy at the 0.5 threshold
func (lgb *LGBMClassifier) Score(X, y mat.Matrix) (float64, error) {
	if !lgb.IsFitted() {
		return 0, lgbmErrors.NewNotFittedError("LGBMClassifier", "Score")
	}
	predictions, err := lgb.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}
	return metrics.Accuracy(yVec, predVec)
}

// Classes returns the class labels seen during Fit.
func (lgb *LGBMClassifier) Classes() []int {
	return append([]int(nil), lgb.classes_...)
}

// GetFeatureImportance returns normalised "gain" or "split" importance.
func (lgb *LGBMClassifier) GetFeatureImportance(importanceType string) []float64 {
	if !lgb.IsFitted() || lgb.Model == nil {
		return nil
	}
	return lgb.Model.GetFeatureImportance(importanceType)
}

// GetParams returns the parameters of the classifier
func (lgb *LGBMClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_leaves":        lgb.NumLeaves,
		"max_depth":         lgb.MaxDepth,
		"learning_rate":     lgb.LearningRate,
		"n_estimators":      lgb.NumIterations,
		"min_child_samples": lgb.MinChildSamples,
		"min_child_weight":  lgb.MinChildWeight,
		"min_split_gain":    lgb.MinSplitGain,
		"subsample":         lgb.Subsample,
		"subsample_freq":    lgb.SubsampleFreq,
		"colsample_bytree":  lgb.ColsampleBytree,
		"mtry":              lgb.Mtry,
		"reg_alpha":         lgb.RegAlpha,
		"reg_lambda":        lgb.RegLambda,
		"max_bin":           lgb.MaxBin,
		"random_state":      lgb.RandomState,
		"n_jobs":            lgb.NumThreads,
		"verbosity":         lgb.Verbosity,
	}
}

// SetParams sets parameters by LightGBM name or by the boosted-tree tuning
// names (trees, tree_depth, min_n, loss_reduction, sample_size, mtry,
// learn_rate). Numbers may be passed as int or float64.
func (lgb *LGBMClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "num_leaves", "n_leaves":
			lgb.NumLeaves, err = toInt(key, value)
		case "max_depth", "tree_depth":
			lgb.MaxDepth, err = toInt(key, value)
		case "learning_rate", "learn_rate":
			lgb.LearningRate, err = toFloat(key, value)
		case "n_estimators", "num_iterations", "trees":
			lgb.NumIterations, err = toInt(key, value)
		case "min_child_samples":
			lgb.MinChildSamples, err = toInt(key, value)
		case "min_child_weight", "min_n":
			lgb.MinChildWeight, err = toFloat(key, value)
		case "min_split_gain", "loss_reduction":
			lgb.MinSplitGain, err = toFloat(key, value)
		case "subsample", "sample_size":
			lgb.Subsample, err = toFloat(key, value)
			if err == nil && key == "sample_size" && lgb.SubsampleFreq == 0 {
				lgb.SubsampleFreq = 1
			}
		case "subsample_freq":
			lgb.SubsampleFreq, err = toInt(key, value)
		case "colsample_bytree":
			lgb.ColsampleBytree, err = toFloat(key, value)
		case "mtry":
			lgb.Mtry, err = toInt(key, value)
		case "reg_alpha":
			lgb.RegAlpha, err = toFloat(key, value)
		case "reg_lambda":
			lgb.RegLambda, err = toFloat(key, value)
		case "max_bin":
			lgb.MaxBin, err = toInt(key, value)
		case "random_state":
			lgb.RandomState, err = toInt(key, value)
		case "n_jobs":
			lgb.NumThreads, err = toInt(key, value)
		case "verbosity":
			lgb.Verbosity, err = toInt(key, value)
		default:
			return lgbmErrors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func toInt(key string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, lgbmErrors.NewValidationError(key, "must be an integer", v)
		}
		return int(x), nil
	}
	return 0, lgbmErrors.NewValidationError(key, "must be a number", v)
}

func toFloat(key string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, lgbmErrors.NewValidationError(key, "must be a number", v)
}
