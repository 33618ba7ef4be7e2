// Package log defines standard attribute keys for machine learning operations.
//
// Using these keys keeps log lines from the trainer, the tuning loop and the
// analysis driver queryable with the same field names. Keys follow a
// hierarchical naming convention ("model.name", "data.samples", "tune.config").

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or transformer.
	// Examples: "LGBMClassifier", "OrdinalEncoder"
	ModelNameKey = "model.name"

	// EstimatorIDKey distinguishes instances of the same model type.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "lightgbm", "tune", "analysis"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the analysis.
	PhaseKey = "ml.phase"

	// StageKey names a pipeline stage ("ingest", "split", "grid", "tune",
	// "finalize", "render").
	StageKey = "pipeline.stage"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of predictor columns.
	FeaturesKey = "data.features"

	// CategoricalKey indicates the number of categorical predictor columns.
	CategoricalKey = "data.categorical"

	// PositiveRateKey records the share of the positive class.
	PositiveRateKey = "data.positive_rate"

	// PathKey records a file path read or written.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy.
	AccuracyKey = "metrics.accuracy"

	// AUCKey records area under the ROC curve.
	AUCKey = "metrics.roc_auc"

	// LossKey records a loss value (binary logloss for the classifier).
	LossKey = "metrics.loss"

	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"
)

// Prediction Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// ThresholdKey records the decision threshold used for classification.
	ThresholdKey = "preds.threshold"
)

// Tuning Context
const (
	// TuneConfigKey identifies a grid candidate, e.g. "Preprocessor1_Model07".
	TuneConfigKey = "tune.config"

	// TuneResampleKey identifies a resample, e.g. "Bootstrap03".
	TuneResampleKey = "tune.resample"

	// TuneMetricKey names the metric used to rank candidates.
	TuneMetricKey = "tune.metric"

	// TuneCandidatesKey records the grid size.
	TuneCandidatesKey = "tune.candidates"

	// WorkersKey records the size of a worker pool.
	WorkersKey = "infra.workers"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// LearningRateKey records the learning rate.
	LearningRateKey = "hyperparams.learning_rate"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorSchema            = "SCHEMA"
)
