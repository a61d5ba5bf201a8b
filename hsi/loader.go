package hsi

import (
	"fmt"
	"os"

	"github.com/sbinet/npyio"

	"github.com/gospectral/hyperion/pkg/errors"
	"github.com/gospectral/hyperion/pkg/log"
)

// Loader reads a scene's radiance cube and its ground truth labels from
// storage.
type Loader interface {
	Load(cubePath, labelPath string) (*Cube, *LabelMap, error)
}

// NpyLoader loads scenes serialized as NumPy .npy arrays: a 3-D cube of
// shape (height, width, bands) and a 2-D label map of shape
// (height, width). Float and integer dtypes are widened to the native
// representation.
type NpyLoader struct {
	logger log.Logger
}

// NewNpyLoader creates a loader for .npy scenes.
func NewNpyLoader() *NpyLoader {
	return &NpyLoader{logger: log.GetLoggerWithName("hsi.loader")}
}

var _ Loader = (*NpyLoader)(nil)

// Load reads the cube and label arrays and checks that their spatial
// dimensions agree.
func (l *NpyLoader) Load(cubePath, labelPath string) (*Cube, *LabelMap, error) {
	shape, data, err := readArray(cubePath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading cube %s", cubePath)
	}
	if len(shape) != 3 {
		return nil, nil, errors.NewValueError("NpyLoader.Load",
			fmt.Sprintf("cube %s has %d dimensions, want 3 (height, width, bands)", cubePath, len(shape)))
	}
	cube, err := NewCube(shape[0], shape[1], shape[2], data)
	if err != nil {
		return nil, nil, err
	}

	labelShape, labelData, err := readArray(labelPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading labels %s", labelPath)
	}
	if len(labelShape) != 2 {
		return nil, nil, errors.NewValueError("NpyLoader.Load",
			fmt.Sprintf("label map %s has %d dimensions, want 2 (height, width)", labelPath, len(labelShape)))
	}
	if labelShape[0] != cube.Height || labelShape[1] != cube.Width {
		return nil, nil, errors.NewValueError("NpyLoader.Load",
			fmt.Sprintf("label map is %dx%d but cube is %dx%d",
				labelShape[0], labelShape[1], cube.Height, cube.Width))
	}

	labels := make([]int, len(labelData))
	for i, v := range labelData {
		labels[i] = int(v)
	}
	labelMap, err := NewLabelMap(labelShape[0], labelShape[1], labels)
	if err != nil {
		return nil, nil, err
	}

	l.logger.Debug("scene loaded",
		"cube_path", cubePath,
		"height", cube.Height,
		"width", cube.Width,
		"bands", cube.Bands)
	return cube, labelMap, nil
}

// readArray reads one .npy file and returns its shape with the values
// widened to float64.
func readArray(path string) ([]int, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing npy header")
	}
	if r.Header.Descr.Fortran {
		return nil, nil, errors.NewValueError("readArray",
			fmt.Sprintf("%s uses Fortran order; only C order is supported", path))
	}

	shape := r.Header.Descr.Shape
	var data []float64
	switch dtype := r.Header.Descr.Type; dtype {
	case "<f8", "=f8", "f8":
		if err := r.Read(&data); err != nil {
			return nil, nil, errors.WithStack(err)
		}
	case "<f4", "=f4", "f4":
		var raw []float32
		if err := r.Read(&raw); err != nil {
			return nil, nil, errors.WithStack(err)
		}
		data = widen(raw)
	case "<i8", "=i8", "i8":
		var raw []int64
		if err := r.Read(&raw); err != nil {
			return nil, nil, errors.WithStack(err)
		}
		data = widen(raw)
	case "<i4", "=i4", "i4":
		var raw []int32
		if err := r.Read(&raw); err != nil {
			return nil, nil, errors.WithStack(err)
		}
		data = widen(raw)
	case "<i2", "=i2", "i2":
		var raw []int16
		if err := r.Read(&raw); err != nil {
			return nil, nil, errors.WithStack(err)
		}
		data = widen(raw)
	case "<u2", "=u2", "u2":
		var raw []uint16
		if err := r.Read(&raw); err != nil {
			return nil, nil, errors.WithStack(err)
		}
		data = widen(raw)
	case "|u1", "u1":
		var raw []uint8
		if err := r.Read(&raw); err != nil {
			return nil, nil, errors.WithStack(err)
		}
		data = widen(raw)
	default:
		return nil, nil, errors.NewValueError("readArray",
			fmt.Sprintf("%s has unsupported dtype %q", path, dtype))
	}

	want := 1
	for _, d := range shape {
		want *= d
	}
	if len(data) != want {
		return nil, nil, errors.NewDimensionError("readArray", want, len(data), 0)
	}
	return shape, data, nil
}

type numeric interface {
	~float32 | ~int64 | ~int32 | ~int16 | ~uint16 | ~uint8
}

func widen[T numeric](raw []T) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out
}
