package model_selection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bankloan/metrics"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// MetricSummary aggregates one metric of one candidate over resamples.
type MetricSummary struct {
	Config    string             `yaml:"config" json:"config"`
	Params    map[string]float64 `yaml:"params" json:"params"`
	Metric    string             `yaml:"metric" json:"metric"`
	Estimator string             `yaml:"estimator" json:"estimator"`
	Mean      float64            `yaml:"mean" json:"mean"`
	N         int                `yaml:"n" json:"n"`
	StdErr    float64            `yaml:"std_err" json:"std_err"`
}

// CollectMetrics averages every (candidate, metric) pair over the
// resamples. NaN estimates are skipped; a pair with no finite estimate
// has Mean NaN and N 0. Rows follow grid order, then metric order.
func (r *TuneResult) CollectMetrics() []MetricSummary {
	byKey := make(map[[2]string][]float64, r.Grid.Len()*len(r.Metrics))
	for _, e := range r.Estimates {
		if math.IsNaN(e.Estimate) {
			continue
		}
		k := [2]string{e.Config, e.Metric}
		byKey[k] = append(byKey[k], e.Estimate)
	}

	out := make([]MetricSummary, 0, r.Grid.Len()*len(r.Metrics))
	for _, set := range r.Grid.Sets {
		for _, m := range r.Metrics {
			vals := byKey[[2]string{set.ID, m}]
			s := MetricSummary{
				Config:    set.ID,
				Params:    set.Values,
				Metric:    m,
				Estimator: "binary",
				N:         len(vals),
				Mean:      math.NaN(),
				StdErr:    math.NaN(),
			}
			if len(vals) > 0 {
				s.Mean = stat.Mean(vals, nil)
			}
			if len(vals) > 1 {
				s.StdErr = stat.StdDev(vals, nil) / math.Sqrt(float64(len(vals)))
			}
			out = append(out, s)
		}
	}
	return out
}

// ShowBest returns the n best candidates for metric, best first. Ties keep
// grid order. Candidates whose mean is NaN sort last.
func (r *TuneResult) ShowBest(metric string, n int) ([]MetricSummary, error) {
	if !r.hasMetric(metric) {
		return nil, errors.NewValidationError("metric", "not collected during tuning", metric)
	}
	var rows []MetricSummary
	for _, s := range r.CollectMetrics() {
		if s.Metric == metric {
			rows = append(rows, s)
		}
	}
	higher := metrics.HigherIsBetter(metric)
	sort.SliceStable(rows, func(a, b int) bool {
		x, y := rows[a].Mean, rows[b].Mean
		switch {
		case math.IsNaN(x):
			return false
		case math.IsNaN(y):
			return true
		case higher:
			return x > y
		default:
			return x < y
		}
	})
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows, nil
}

// SelectBest returns the candidate with the best mean for metric.
func (r *TuneResult) SelectBest(metric string) (ParamSet, error) {
	best, err := r.ShowBest(metric, 1)
	if err != nil {
		return ParamSet{}, err
	}
	if len(best) == 0 || math.IsNaN(best[0].Mean) {
		return ParamSet{}, errors.NewValueError("SelectBest", "no candidate has a finite "+metric)
	}
	for _, set := range r.Grid.Sets {
		if set.ID == best[0].Config {
			return set, nil
		}
	}
	return ParamSet{}, errors.NewValueError("SelectBest", "unknown config "+best[0].Config)
}

func (r *TuneResult) hasMetric(metric string) bool {
	for _, m := range r.Metrics {
		if m == metric {
			return true
		}
	}
	return false
}
