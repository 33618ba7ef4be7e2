package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/sklearn/model_selection"
)

// MetricRow is one line of a metrics table.
type MetricRow struct {
	Metric    string  `yaml:"metric" json:"metric"`
	Estimator string  `yaml:"estimator" json:"estimator"`
	Estimate  float64 `yaml:"estimate" json:"estimate"`
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...)
}

// formatFloat prints v with 4 significant digits, NA for NaN.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// MetricsTable writes rows as a .metric/.estimator/.estimate table.
func MetricsTable(w io.Writer, rows []MetricRow) error {
	t := newTable(".metric", ".estimator", ".estimate")
	for _, r := range rows {
		t.Row(r.Metric, r.Estimator, formatFloat(r.Estimate))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return errors.Wrap(err, "write metrics table")
}

// TuningTable writes candidate summaries with one column per parameter
// in params.
func TuningTable(w io.Writer, rows []model_selection.MetricSummary, params []string) error {
	headers := append(append([]string{}, params...), ".metric", ".estimator", "mean", "n", "std_err", ".config")
	t := newTable(headers...)
	for _, r := range rows {
		cells := make([]string, 0, len(headers))
		for _, name := range params {
			v, ok := r.Params[name]
			if !ok {
				v = math.NaN()
			}
			cells = append(cells, formatFloat(v))
		}
		cells = append(cells, r.Metric, r.Estimator, formatFloat(r.Mean),
			strconv.Itoa(r.N), formatFloat(r.StdErr), r.Config)
		t.Row(cells...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return errors.Wrap(err, "write tuning table")
}
