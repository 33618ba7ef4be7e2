package lightgbm

import (
	"math"
	"sort"
	"time"

	"github.com/YuminosukeSato/bankloan/pkg/log"
)

// Evaluation result names reported to callbacks.
const (
	EvalTrainLoss = "training_loss"
	EvalValidLoss = "valid_loss"
	EvalValidAUC  = "valid_auc"
)

// CallbackEnv contains the environment for callbacks
type CallbackEnv struct {
	Model        *Model
	Iteration    int
	BeginTime    time.Time
	EndTime      time.Time
	EvalResults  map[string]float64
	StopTraining bool
}

// Callback is a function that can be called during training
type Callback func(env *CallbackEnv) error

// LogEvaluation logs evaluation results every period iterations at debug level.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period <= 0 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.EndTime.IsZero() || (env.Iteration+1)%period != 0 {
			return nil
		}
		names := make([]string, 0, len(env.EvalResults))
		for name := range env.EvalResults {
			names = append(names, name)
		}
		sort.Strings(names)
		fields := []any{log.IterationKey, env.Iteration + 1}
		for _, name := range names {
			fields = append(fields, name, env.EvalResults[name])
		}
		logger.Debug("Boosting iteration", fields...)
		return nil
	}
}

// RecordEvaluation records evaluation history
func RecordEvaluation(history map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if env.EndTime.IsZero() {
			return nil
		}
		for name, value := range env.EvalResults {
			history[name] = append(history[name], value)
		}
		return nil
	}
}

// EarlyStoppingCallback stops training when metric has not improved for
// rounds iterations and records the best iteration on the model.
func EarlyStoppingCallback(rounds int, metric string, minimize bool) Callback {
	bestScore := math.Inf(1)
	if !minimize {
		bestScore = math.Inf(-1)
	}
	bestIteration := 0
	roundsNoImprove := 0

	return func(env *CallbackEnv) error {
		if env.EndTime.IsZero() {
			return nil
		}
		value, exists := env.EvalResults[metric]
		if !exists || math.IsNaN(value) {
			return nil
		}

		improved := value > bestScore
		if minimize {
			improved = value < bestScore
		}
		if improved {
			bestScore = value
			bestIteration = env.Iteration + 1
			roundsNoImprove = 0
		} else {
			roundsNoImprove++
		}
		env.Model.BestIteration = bestIteration

		if roundsNoImprove >= rounds {
			log.GetLoggerWithName("lightgbm").Info("Early stopping",
				log.IterationKey, env.Iteration+1,
				"best_iteration", bestIteration,
				"metric", metric,
				"best_score", bestScore,
			)
			env.StopTraining = true
		}
		return nil
	}
}

// TimeLimit stops training after a specified duration
func TimeLimit(maxDuration time.Duration) Callback {
	startTime := time.Now()
	return func(env *CallbackEnv) error {
		if time.Since(startTime) > maxDuration {
			env.StopTraining = true
		}
		return nil
	}
}

// CallbackList manages multiple callbacks
type CallbackList struct {
	callbacks []Callback
	env       *CallbackEnv
}

// NewCallbackList creates a new callback list
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{
		callbacks: callbacks,
		env: &CallbackEnv{
			EvalResults: make(map[string]float64),
		},
	}
}

// Len returns the number of registered callbacks.
func (cl *CallbackList) Len() int {
	return len(cl.callbacks)
}

// BeforeIteration calls callbacks before each iteration. EndTime is zero
// while callbacks run in this phase.
func (cl *CallbackList) BeforeIteration(iteration int, model *Model) error {
	cl.env.Iteration = iteration
	cl.env.Model = model
	cl.env.BeginTime = time.Now()
	cl.env.EndTime = time.Time{}
	return cl.run()
}

// AfterIteration calls callbacks after each iteration with its evaluation results
func (cl *CallbackList) AfterIteration(iteration int, model *Model, evalResults map[string]float64) error {
	cl.env.Iteration = iteration
	cl.env.Model = model
	cl.env.EndTime = time.Now()
	cl.env.EvalResults = evalResults
	return cl.run()
}

func (cl *CallbackList) run() error {
	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
		if cl.env.StopTraining {
			break
		}
	}
	return nil
}

// ShouldStop returns true if any callback requested to stop training
func (cl *CallbackList) ShouldStop() bool {
	return cl.env.StopTraining
}
