// Package render draws classification maps. A fitted scene is rendered as
// a two-panel PNG: the predicted per-pixel classes next to the ground
// truth, on a shared discrete color scale.
package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/gospectral/hyperion/hsi"
	"github.com/gospectral/hyperion/pkg/errors"
	"github.com/gospectral/hyperion/pkg/log"
)

// Renderer writes a visual comparison of predicted and ground truth label
// maps and returns the path of the produced artifact.
type Renderer interface {
	Render(name string, predicted, truth *hsi.LabelMap) (string, error)
}

// PlotRenderer renders label maps as PNG heatmaps under OutputDir.
// Existing files are overwritten.
type PlotRenderer struct {
	OutputDir string
	logger    log.Logger
}

// NewPlotRenderer creates a renderer writing into outputDir.
func NewPlotRenderer(outputDir string) *PlotRenderer {
	return &PlotRenderer{
		OutputDir: outputDir,
		logger:    log.GetLoggerWithName("render"),
	}
}

var _ Renderer = (*PlotRenderer)(nil)

// classGrid adapts a LabelMap to the plotter grid interface. Grid row 0 is
// drawn at the bottom, so rows are flipped to keep image row 0 on top.
type classGrid struct {
	m *hsi.LabelMap
}

func (g classGrid) Dims() (int, int) { return g.m.Width, g.m.Height }

func (g classGrid) Z(c, r int) float64 {
	return float64(g.m.At(g.m.Height-1-r, c))
}

func (g classGrid) X(c int) float64 { return float64(c) }
func (g classGrid) Y(r int) float64 { return float64(r) }

// classPalette is a fixed qualitative palette. Distinct classes get
// visually distinct colors; maps with more classes than colors cycle.
type classPalette struct {
	colors []color.Color
}

func (p classPalette) Colors() []color.Color { return p.colors }

// categorical colors in the style of matplotlib's tab20
var baseColors = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xae, G: 0xc7, B: 0xe8, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0xff, G: 0xbb, B: 0x78, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0x98, G: 0xdf, B: 0x8a, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0xff, G: 0x98, B: 0x96, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0xc5, G: 0xb0, B: 0xd5, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	color.RGBA{R: 0xc4, G: 0x9c, B: 0x94, A: 0xff},
	color.RGBA{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	color.RGBA{R: 0xf7, G: 0xb6, B: 0xd2, A: 0xff},
	color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
	color.RGBA{R: 0xc7, G: 0xc7, B: 0xc7, A: 0xff},
	color.RGBA{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff},
	color.RGBA{R: 0xdb, G: 0xdb, B: 0x8d, A: 0xff},
	color.RGBA{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff},
	color.RGBA{R: 0x9e, G: 0xda, B: 0xe5, A: 0xff},
}

// newClassPalette returns a palette with n colors, cycling the base set.
func newClassPalette(n int) classPalette {
	colors := make([]color.Color, n)
	for i := range colors {
		colors[i] = baseColors[i%len(baseColors)]
	}
	return classPalette{colors: colors}
}

// Render writes {name}_classification_vs_ground_truth.png with the ground
// truth on the left and the prediction on the right.
func (r *PlotRenderer) Render(name string, predicted, truth *hsi.LabelMap) (string, error) {
	if predicted.Height != truth.Height || predicted.Width != truth.Width {
		return "", errors.NewValueError("PlotRenderer.Render",
			fmt.Sprintf("predicted map is %dx%d but ground truth is %dx%d",
				predicted.Height, predicted.Width, truth.Height, truth.Width))
	}

	maxLabel := 0
	for _, m := range []*hsi.LabelMap{predicted, truth} {
		for _, label := range m.Vector() {
			if label > maxLabel {
				maxLabel = label
			}
		}
	}

	rainbow := palette.Rainbow(maxLabel+1, palette.Red, palette.Magenta, 1, 1, 1)
	left := r.panel(name+" ground truth", truth, maxLabel, rainbow)
	right := r.panel(name+" classification", predicted, maxLabel, newClassPalette(maxLabel+1))

	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}
	path := filepath.Join(r.OutputDir, fmt.Sprintf("%s_classification_vs_ground_truth.png", name))

	canvas := vgimg.New(10*vg.Inch, 5*vg.Inch)
	dc := draw.New(canvas)
	tiles := draw.Tiles{
		Rows: 1,
		Cols: 2,
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}
	panels := plot.Align([][]*plot.Plot{{left, right}}, tiles, dc)
	left.Draw(panels[0][0])
	right.Draw(panels[0][1])

	f, err := os.Create(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: canvas}
	if _, err := png.WriteTo(f); err != nil {
		return "", errors.Wrap(err, "writing png")
	}

	r.logger.Info("classification map rendered",
		log.DatasetKey, name,
		"path", path,
		"classes", maxLabel+1)
	return path, nil
}

// panel builds one heatmap plot on the shared [0, maxLabel] color range.
func (r *PlotRenderer) panel(title string, m *hsi.LabelMap, maxLabel int, pal palette.Palette) *plot.Plot {
	hm := plotter.NewHeatMap(classGrid{m: m}, pal)
	hm.Min = 0
	hm.Max = float64(maxLabel)
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Add(hm)
	return p
}
