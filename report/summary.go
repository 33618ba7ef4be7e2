package report

import (
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/sklearn/model_selection"
)

// Summary is the machine-readable record of one analysis run.
type Summary struct {
	RunID      string                          `yaml:"run_id"`
	StartedAt  time.Time                       `yaml:"started_at"`
	Data       string                          `yaml:"data"`
	Seed       uint64                          `yaml:"seed"`
	TrainRows  int                             `yaml:"train_rows"`
	TestRows   int                             `yaml:"test_rows"`
	Resamples  int                             `yaml:"resamples"`
	Candidates int                             `yaml:"candidates"`
	Trees      int                             `yaml:"trees"`
	BestConfig string                          `yaml:"best_config"`
	BestParams map[string]float64              `yaml:"best_params"`
	Tuning     []model_selection.MetricSummary `yaml:"tuning"`
	Test       []MetricRow                     `yaml:"test_metrics"`
	Threshold  ThresholdSummary                `yaml:"threshold"`
	Classified []MetricRow                     `yaml:"threshold_metrics"`
	Confusion  ConfusionSummary                `yaml:"confusion_matrix"`
	Importance []Importance                    `yaml:"importance"`
}

// ThresholdSummary records the applied cut-off and the Youden
// alternative, which is reported only.
type ThresholdSummary struct {
	Value   float64 `yaml:"value"`
	Class   string  `yaml:"class"`
	Youden  float64 `yaml:"youden"`
	YoudenJ float64 `yaml:"youden_j"`
}

// ConfusionSummary holds the holdout counts keyed by truth and prediction.
type ConfusionSummary struct {
	Levels []string       `yaml:"levels"`
	Counts map[string]int `yaml:"counts"`
}

// Importance is one feature's gain importance.
type Importance struct {
	Feature string  `yaml:"feature"`
	Gain    float64 `yaml:"gain"`
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// WriteSummary encodes s as YAML.
func WriteSummary(w io.Writer, s *Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "encode summary")
	}
	return errors.Wrap(enc.Close(), "encode summary")
}

// ReadSummary decodes a summary written by WriteSummary.
func ReadSummary(r io.Reader) (*Summary, error) {
	var s Summary
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode summary")
	}
	return &s, nil
}
