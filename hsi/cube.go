// Package hsi provides the hyperspectral data model: radiance cubes, ground
// truth label maps, and loaders for NumPy-serialized scenes.
package hsi

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/gospectral/hyperion/pkg/errors"
)

// Cube is a hyperspectral image of Height x Width pixels with Bands
// spectral measurements per pixel, stored row-major with the band axis
// innermost.
type Cube struct {
	Height int
	Width  int
	Bands  int
	data   []float64
}

// NewCube wraps a row-major buffer of Height*Width*Bands values.
func NewCube(height, width, bands int, data []float64) (*Cube, error) {
	if height <= 0 || width <= 0 || bands <= 0 {
		return nil, errors.NewValidationError("shape", "all cube dimensions must be positive",
			[3]int{height, width, bands})
	}
	if len(data) != height*width*bands {
		return nil, errors.NewDimensionError("NewCube", height*width*bands, len(data), 0)
	}
	return &Cube{Height: height, Width: width, Bands: bands, data: data}, nil
}

// At returns the value of band b at pixel (row, col).
func (c *Cube) At(row, col, b int) float64 {
	return c.data[(row*c.Width+col)*c.Bands+b]
}

// Pixels returns the number of pixels in the scene.
func (c *Cube) Pixels() int {
	return c.Height * c.Width
}

// Flatten reshapes the cube into a (Height*Width) x Bands matrix. Pixel
// (row, col) becomes matrix row row*Width+col, so spatial order survives a
// later reshape of per-pixel predictions. The matrix shares the cube's
// backing buffer.
func (c *Cube) Flatten() *mat.Dense {
	return mat.NewDense(c.Height*c.Width, c.Bands, c.data)
}

// LabelMap holds one integer class label per pixel of a scene, in the same
// row-major order as Cube.
type LabelMap struct {
	Height int
	Width  int
	labels []int
}

// NewLabelMap wraps a row-major label buffer of Height*Width values.
func NewLabelMap(height, width int, labels []int) (*LabelMap, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.NewValidationError("shape", "label map dimensions must be positive",
			[2]int{height, width})
	}
	if len(labels) != height*width {
		return nil, errors.NewDimensionError("NewLabelMap", height*width, len(labels), 0)
	}
	return &LabelMap{Height: height, Width: width, labels: labels}, nil
}

// LabelMapFromVector reshapes a flat per-pixel vector (such as classifier
// predictions over a flattened cube) back into a spatial label map.
func LabelMapFromVector(height, width int, values []int) (*LabelMap, error) {
	return NewLabelMap(height, width, values)
}

// At returns the label of pixel (row, col).
func (m *LabelMap) At(row, col int) int {
	return m.labels[row*m.Width+col]
}

// Vector returns the labels in row-major pixel order. The slice is shared
// with the map.
func (m *LabelMap) Vector() []int {
	return m.labels
}

// Classes returns the sorted distinct labels present in the map.
func (m *LabelMap) Classes() []int {
	seen := make(map[int]struct{})
	for _, label := range m.labels {
		seen[label] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Ints(classes)
	return classes
}
