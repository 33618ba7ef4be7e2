// Package report renders the analysis outputs: plots through gonum/plot,
// console tables and the YAML run summary.
package report

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/bankloan/metrics"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/sklearn/model_selection"
)

var (
	barColor  = color.RGBA{R: 0x44, G: 0x77, B: 0xaa, A: 0xff}
	lineColor = color.RGBA{R: 0xcc, G: 0x33, B: 0x11, A: 0xff}
	refColor  = color.Gray{Y: 0x99}
)

// VariableImportancePlot draws the topN features by importance as a
// horizontal bar chart, largest at the top. topN <= 0 keeps every feature.
func VariableImportancePlot(names []string, importance []float64, topN int) (*plot.Plot, error) {
	if len(names) != len(importance) {
		return nil, errors.NewDimensionError("VariableImportancePlot", len(names), len(importance), 0)
	}
	if len(names) == 0 {
		return nil, errors.NewValueError("VariableImportancePlot", "no features")
	}

	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return importance[order[a]] > importance[order[b]] })
	if topN > 0 && topN < len(order) {
		order = order[:topN]
	}

	// NominalY puts the first label at the bottom
	n := len(order)
	values := make(plotter.Values, n)
	labels := make([]string, n)
	for k, i := range order {
		values[n-1-k] = importance[i]
		labels[n-1-k] = names[i]
	}

	p := plot.New()
	p.Title.Text = "Variable importance"
	p.X.Label.Text = "Importance"
	p.X.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return nil, errors.Wrap(err, "importance bars")
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)
	return p, nil
}

// confusionGrid exposes a 2x2 confusion matrix as plotter.GridXYZ:
// columns are the true class and rows the predicted class.
type confusionGrid struct {
	m *mat.Dense
}

func (g confusionGrid) Dims() (c, r int)   { return 2, 2 }
func (g confusionGrid) Z(c, r int) float64 { return g.m.At(c, r) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// colors implements palette.Palette over a fixed color list.
type colors []color.Color

func (c colors) Colors() []color.Color { return c }

// reversePalette returns p with its colors in reverse order, so large
// counts get the dark end of the heat scale.
func reversePalette(p palette.Palette) palette.Palette {
	src := p.Colors()
	out := make(colors, len(src))
	for i, c := range src {
		out[len(src)-1-i] = c
	}
	return out
}

// ConfusionMatrixPlot draws the confusion matrix as a heat map with the
// count printed in each cell. levels names class 0 and class 1.
func ConfusionMatrixPlot(cm *metrics.ConfusionMatrix, levels [2]string) (*plot.Plot, error) {
	if cm == nil || cm.Total() == 0 {
		return nil, errors.NewValueError("ConfusionMatrixPlot", "empty confusion matrix")
	}
	grid := confusionGrid{m: cm.Dense()}

	p := plot.New()
	p.Title.Text = "Confusion matrix"
	p.X.Label.Text = "Truth"
	p.Y.Label.Text = "Prediction"

	heat := plotter.NewHeatMap(grid, reversePalette(palette.Heat(12, 1)))
	p.Add(heat)

	var xys plotter.XYs
	var text []string
	for c := 0; c < 2; c++ {
		for r := 0; r < 2; r++ {
			xys = append(xys, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			text = append(text, fmt.Sprintf("%.0f", grid.Z(c, r)))
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: text})
	if err != nil {
		return nil, errors.Wrap(err, "confusion labels")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
		labels.TextStyle[i].Font.Size = vg.Points(14)
	}
	p.Add(labels)

	ticks := plot.ConstantTicks([]plot.Tick{{Value: 0, Label: levels[0]}, {Value: 1, Label: levels[1]}})
	p.X.Tick.Marker = ticks
	p.Y.Tick.Marker = ticks
	p.X.Min, p.X.Max = -0.5, 1.5
	p.Y.Min, p.Y.Max = -0.5, 1.5
	return p, nil
}

// ROCPlot draws the ROC curve with the chance diagonal.
func ROCPlot(roc *metrics.ROC, auc float64) (*plot.Plot, error) {
	if roc == nil || len(roc.FPR) == 0 {
		return nil, errors.NewValueError("ROCPlot", "empty ROC curve")
	}
	pts := make(plotter.XYs, len(roc.FPR))
	for i := range roc.FPR {
		pts[i] = plotter.XY{X: roc.FPR[i], Y: roc.TPR[i]}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC curve (AUC = %.3f)", auc)
	p.X.Label.Text = "1 - specificity"
	p.Y.Label.Text = "sensitivity"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	curve, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "roc line")
	}
	curve.LineStyle.Width = vg.Points(2)
	curve.LineStyle.Color = lineColor

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, errors.Wrap(err, "roc diagonal")
	}
	diag.LineStyle.Color = refColor
	diag.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(diag, curve)
	return p, nil
}

// TuningPlots returns one panel per hyperparameter showing the resampled
// mean of metric against the parameter value of every candidate.
// Parameters searched on a log10 scale are drawn on a log axis.
func TuningPlots(summary []model_selection.MetricSummary, space model_selection.ParamSpace, metric string) ([]*plot.Plot, error) {
	var rows []model_selection.MetricSummary
	for _, s := range summary {
		if s.Metric == metric && !math.IsNaN(s.Mean) {
			rows = append(rows, s)
		}
	}
	if len(rows) == 0 {
		return nil, errors.NewValueError("TuningPlots", "no finite "+metric+" estimates")
	}

	plots := make([]*plot.Plot, 0, len(space))
	for _, param := range space {
		pts := make(plotter.XYs, 0, len(rows))
		for _, s := range rows {
			v, ok := s.Params[param.Name]
			if !ok {
				continue
			}
			pts = append(pts, plotter.XY{X: v, Y: s.Mean})
		}

		p := plot.New()
		p.Title.Text = param.Label
		if p.Title.Text == "" {
			p.Title.Text = param.Name
		}
		p.Y.Label.Text = metric
		if param.Transform == model_selection.Log10 && logScalable(pts) {
			p.X.Scale = plot.LogScale{}
			p.X.Tick.Marker = plot.LogTicks{Prec: -1}
			p.X.Label.Text = "log-10 scale"
		}

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "tuning panel %s", param.Name)
		}
		sc.GlyphStyle.Color = barColor
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		plots = append(plots, p)
	}
	return plots, nil
}

// logScalable reports whether pts can sit on a log axis: positive values
// with at least two distinct x.
func logScalable(pts plotter.XYs) bool {
	if len(pts) < 2 {
		return false
	}
	distinct := false
	for _, pt := range pts {
		if pt.X <= 0 {
			return false
		}
		if pt.X != pts[0].X {
			distinct = true
		}
	}
	return distinct
}
