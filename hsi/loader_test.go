package hsi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeNpy serializes a .npy v1.0 file the way numpy.save does.
func writeNpy(t *testing.T, path, dtype string, shape []int, values interface{}) {
	t.Helper()

	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", dtype, shapeStr)
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, values))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestNpyLoaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cubePath := filepath.Join(dir, "cube.npy")
	labelPath := filepath.Join(dir, "labels.npy")

	cubeData := make([]float64, 2*3*4)
	for i := range cubeData {
		cubeData[i] = float64(i)
	}
	writeNpy(t, cubePath, "<f8", []int{2, 3, 4}, cubeData)
	writeNpy(t, labelPath, "|u1", []int{2, 3}, []uint8{0, 1, 2, 3, 4, 5})

	cube, labels, err := NewNpyLoader().Load(cubePath, labelPath)
	require.NoError(t, err)

	assert.Equal(t, 2, cube.Height)
	assert.Equal(t, 3, cube.Width)
	assert.Equal(t, 4, cube.Bands)
	assert.Equal(t, 0.0, cube.At(0, 0, 0))
	assert.Equal(t, float64((1*3+2)*4+3), cube.At(1, 2, 3))

	assert.Equal(t, 2, labels.Height)
	assert.Equal(t, 3, labels.Width)
	assert.Equal(t, 5, labels.At(1, 2))
}

func TestNpyLoaderFloat32Cube(t *testing.T) {
	dir := t.TempDir()
	cubePath := filepath.Join(dir, "cube.npy")
	labelPath := filepath.Join(dir, "labels.npy")

	writeNpy(t, cubePath, "<f4", []int{1, 2, 2}, []float32{1.5, 2.5, 3.5, 4.5})
	writeNpy(t, labelPath, "<i4", []int{1, 2}, []int32{7, 9})

	cube, labels, err := NewNpyLoader().Load(cubePath, labelPath)
	require.NoError(t, err)

	assert.Equal(t, 1.5, cube.At(0, 0, 0))
	assert.Equal(t, 4.5, cube.At(0, 1, 1))
	assert.Equal(t, 9, labels.At(0, 1))
}

func TestNpyLoaderSpatialMismatch(t *testing.T) {
	dir := t.TempDir()
	cubePath := filepath.Join(dir, "cube.npy")
	labelPath := filepath.Join(dir, "labels.npy")

	writeNpy(t, cubePath, "<f8", []int{2, 2, 2}, make([]float64, 8))
	writeNpy(t, labelPath, "|u1", []int{3, 3}, make([]uint8, 9))

	_, _, err := NewNpyLoader().Load(cubePath, labelPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "label map is 3x3")
}

func TestNpyLoaderCubeWrongRank(t *testing.T) {
	dir := t.TempDir()
	cubePath := filepath.Join(dir, "cube.npy")
	labelPath := filepath.Join(dir, "labels.npy")

	writeNpy(t, cubePath, "<f8", []int{4, 4}, make([]float64, 16))
	writeNpy(t, labelPath, "|u1", []int{4, 4}, make([]uint8, 16))

	_, _, err := NewNpyLoader().Load(cubePath, labelPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 3")
}

func TestNpyLoaderMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, _, err := NewNpyLoader().Load(
		filepath.Join(dir, "nope.npy"),
		filepath.Join(dir, "also-nope.npy"))
	assert.Error(t, err)
}
