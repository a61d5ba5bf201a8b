package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gospectral/hyperion/hsi"
)

func labelMap(t *testing.T, height, width int, values []int) *hsi.LabelMap {
	t.Helper()
	m, err := hsi.NewLabelMap(height, width, values)
	require.NoError(t, err)
	return m
}

func TestRenderWritesPng(t *testing.T) {
	dir := t.TempDir()
	predicted := labelMap(t, 3, 4, []int{
		0, 0, 1, 1,
		0, 2, 1, 1,
		2, 2, 2, 1,
	})
	truth := labelMap(t, 3, 4, []int{
		0, 0, 1, 1,
		0, 0, 1, 1,
		2, 2, 2, 2,
	})

	path, err := NewPlotRenderer(dir).Render("pavia_university", predicted, truth)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "pavia_university_classification_vs_ground_truth.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err, "output must be a decodable PNG")
	assert.False(t, img.Bounds().Empty())
}

func TestRenderPanelOrder(t *testing.T) {
	dir := t.TempDir()
	// Single-class maps paint each panel one solid color: the ground
	// truth panel's rainbow palette starts at red, the prediction
	// panel's qualitative palette starts at blue.
	m := labelMap(t, 4, 4, make([]int, 16))

	path, err := NewPlotRenderer(dir).Render("scene", m, m)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	bounds := img.Bounds()
	y := bounds.Min.Y + bounds.Dy()*3/5
	lr, _, lb, _ := img.At(bounds.Min.X+bounds.Dx()/4, y).RGBA()
	rr, _, rb, _ := img.At(bounds.Min.X+bounds.Dx()*3/4, y).RGBA()

	assert.Greater(t, lr, lb, "ground truth (rainbow) must be the left panel")
	assert.Greater(t, rb, rr, "prediction (qualitative palette) must be the right panel")
}

func TestRenderOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	m := labelMap(t, 2, 2, []int{0, 1, 1, 0})

	renderer := NewPlotRenderer(dir)
	first, err := renderer.Render("scene", m, m)
	require.NoError(t, err)
	second, err := renderer.Render("scene", m, m)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderShapeMismatch(t *testing.T) {
	predicted := labelMap(t, 2, 2, []int{0, 1, 1, 0})
	truth := labelMap(t, 2, 3, []int{0, 1, 1, 0, 1, 0})

	_, err := NewPlotRenderer(t.TempDir()).Render("scene", predicted, truth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ground truth")
}

func TestRenderCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "maps", "nested")
	m := labelMap(t, 2, 2, []int{0, 1, 0, 1})

	path, err := NewPlotRenderer(dir).Render("scene", m, m)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
