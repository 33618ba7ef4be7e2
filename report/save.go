package report

import (
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// Default figure sizes.
const (
	Width      = 6 * vg.Inch
	Height     = 4 * vg.Inch
	PanelWidth = 3 * vg.Inch
	PanelHeight = 2.5 * vg.Inch
)

// Formats accepted by Save and SavePanels.
var Formats = []string{"png", "svg", "pdf", "jpg"}

// Save writes p to path; the format follows the file extension.
func Save(p *plot.Plot, w, h vg.Length, path string) error {
	if _, err := formatOf(path); err != nil {
		return err
	}
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

// SavePanels lays plots out on a grid with cols columns and writes a
// single figure to path. Each panel is w by h.
func SavePanels(plots []*plot.Plot, cols int, w, h vg.Length, path string) error {
	if len(plots) == 0 {
		return errors.NewValueError("SavePanels", "no plots")
	}
	if cols < 1 {
		cols = 1
	}
	if cols > len(plots) {
		cols = len(plots)
	}
	rows := (len(plots) + cols - 1) / cols

	canvas, err := newCanvas(path, vg.Length(cols)*w, vg.Length(rows)*h)
	if err != nil {
		return err
	}
	dc := draw.New(canvas)
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Points(2), PadBottom: vg.Points(2),
		PadLeft: vg.Points(2), PadRight: vg.Points(2),
	}
	for i, p := range plots {
		p.Draw(tiles.At(dc, i%cols, i/cols))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if _, err := canvas.WriteTo(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

func formatOf(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	for _, f := range Formats {
		if f == ext {
			return ext, nil
		}
	}
	return "", errors.NewValidationError("plot_format", "unsupported plot format", ext)
}

func newCanvas(path string, w, h vg.Length) (vg.CanvasWriterTo, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case "svg":
		return vgsvg.New(w, h), nil
	case "pdf":
		return vgpdf.New(w, h), nil
	case "jpg":
		return vgimg.JpegCanvas{Canvas: vgimg.New(w, h)}, nil
	default:
		return vgimg.PngCanvas{Canvas: vgimg.New(w, h)}, nil
	}
}
