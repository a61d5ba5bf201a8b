package pipeline

import (
	"bytes"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gospectral/hyperion/hsi"
	"github.com/gospectral/hyperion/pkg/errors"
	"github.com/gospectral/hyperion/pkg/log"
)

type stubLoader struct {
	cube  *hsi.Cube
	truth *hsi.LabelMap
}

func (s stubLoader) Load(_, _ string) (*hsi.Cube, *hsi.LabelMap, error) {
	return s.cube, s.truth, nil
}

type stubRenderer struct {
	calls    int
	lastName string
}

func (r *stubRenderer) Render(name string, predicted, truth *hsi.LabelMap) (string, error) {
	r.calls++
	r.lastName = name
	return name + ".png", nil
}

// scene builds a synthetic cube whose spectra are separable by label, with
// a deterministic ripple so no band is constant.
func scene(t *testing.T, height, width, bands int, labels []int) (*hsi.Cube, *hsi.LabelMap) {
	t.Helper()
	data := make([]float64, height*width*bands)
	for pix := 0; pix < height*width; pix++ {
		for b := 0; b < bands; b++ {
			data[pix*bands+b] = float64(labels[pix])*5 + 0.1*math.Sin(float64(pix*bands+b))
		}
	}
	cube, err := hsi.NewCube(height, width, bands, data)
	require.NoError(t, err)
	truth, err := hsi.NewLabelMap(height, width, labels)
	require.NoError(t, err)
	return cube, truth
}

func checkerboard(height, width int) []int {
	labels := make([]int, height*width)
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			labels[r*width+c] = (r + c) % 2
		}
	}
	return labels
}

func quietWarnings(t *testing.T) {
	t.Helper()
	errors.SetWarningHandler(func(error) {})
	t.Cleanup(func() {
		errors.SetWarningHandler(func(error) {})
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Components = 3
	cfg.TestFraction = 0.25
	cfg.NumIterations = 15
	cfg.MinChildSamples = 1
	return cfg
}

func TestPipelineEndToEnd(t *testing.T) {
	quietWarnings(t)

	labels := checkerboard(4, 4)
	cube, truth := scene(t, 4, 4, 6, labels)
	renderer := &stubRenderer{}

	p := New(testConfig(), stubLoader{cube: cube, truth: truth}, renderer)
	result, err := p.Run(Dataset{Name: "checkerboard"})
	require.NoError(t, err)

	assert.Equal(t, "checkerboard", result.Dataset)
	assert.GreaterOrEqual(t, result.TestAccuracy, 0.0)
	assert.LessOrEqual(t, result.TestAccuracy, 1.0)
	require.NotNil(t, result.Report)
	require.NotNil(t, result.Confusion)

	require.NotNil(t, result.Map)
	assert.Equal(t, 4, result.Map.Height)
	assert.Equal(t, 4, result.Map.Width)
	for _, label := range result.Map.Vector() {
		assert.Contains(t, []int{0, 1}, label, "predictions must stay within the training labels")
	}

	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, "checkerboard", renderer.lastName)
	assert.Equal(t, "checkerboard.png", result.MapPath)
}

func TestPipelineLogsSplitAndPredictionDiagnostics(t *testing.T) {
	quietWarnings(t)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	labels := checkerboard(4, 4)
	cube, truth := scene(t, 4, 4, 6, labels)

	_, err := New(testConfig(), stubLoader{cube: cube, truth: truth}, nil).Run(Dataset{Name: "x"})
	require.NoError(t, err)

	logs := buf.String()
	for _, want := range []string{
		"train_classes", "test_classes",
		"train_samples", "test_samples",
		"predicted_classes", "map_height", "map_width",
	} {
		assert.Contains(t, logs, want)
	}
}

func TestPipelineDisplayName(t *testing.T) {
	quietWarnings(t)

	labels := checkerboard(4, 4)
	cube, truth := scene(t, 4, 4, 6, labels)
	renderer := &stubRenderer{}

	result, err := New(testConfig(), stubLoader{cube: cube, truth: truth}, renderer).Run(Dataset{
		Name:        "pavia_university",
		DisplayName: "Pavia University",
	})
	require.NoError(t, err)

	assert.Equal(t, "Pavia University", result.Dataset)
	// Artifact names keep the identifier, not the display form.
	assert.Equal(t, "pavia_university", renderer.lastName)
}

func TestPipelineComponentsExceedBands(t *testing.T) {
	quietWarnings(t)

	labels := checkerboard(4, 4)
	cube, truth := scene(t, 4, 4, 6, labels)
	renderer := &stubRenderer{}

	cfg := testConfig()
	cfg.Components = 20 // only 6 bands available

	_, err := New(cfg, stubLoader{cube: cube, truth: truth}, renderer).Run(Dataset{Name: "x"})
	require.Error(t, err)
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "n_components", ve.ParamName)
	assert.Zero(t, renderer.calls, "nothing should be rendered after a failed fit")
}

func TestPipelineSingletonClass(t *testing.T) {
	quietWarnings(t)

	labels := checkerboard(4, 4)
	labels[5] = 9 // one lone pixel of class 9
	cube, truth := scene(t, 4, 4, 6, labels)

	_, err := New(testConfig(), stubLoader{cube: cube, truth: truth}, nil).Run(Dataset{Name: "x"})
	require.Error(t, err)
	var se *errors.StratificationError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 9, se.Class)
}

func TestPipelineInvalidValidationFraction(t *testing.T) {
	cfg := testConfig()
	cfg.ValidationFraction = 0.8 // 0.8 + 0.25 leaves nothing to train on

	_, err := New(cfg, stubLoader{}, nil).Run(Dataset{Name: "x"})
	require.Error(t, err)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestPipelineThreeWaySplit(t *testing.T) {
	quietWarnings(t)

	labels := checkerboard(8, 8)
	cube, truth := scene(t, 8, 8, 6, labels)

	cfg := testConfig()
	cfg.ValidationFraction = 0.2

	result, err := New(cfg, stubLoader{cube: cube, truth: truth}, nil).Run(Dataset{Name: "board"})
	require.NoError(t, err)
	assert.Empty(t, result.MapPath, "no renderer, no artifact")
	assert.Equal(t, 8, result.Map.Height)
}

func TestPipelineSkipsRendererWhenNil(t *testing.T) {
	quietWarnings(t)

	labels := checkerboard(4, 4)
	cube, truth := scene(t, 4, 4, 6, labels)

	result, err := New(testConfig(), stubLoader{cube: cube, truth: truth}, nil).Run(Dataset{Name: "x"})
	require.NoError(t, err)
	assert.Empty(t, result.MapPath)
}
