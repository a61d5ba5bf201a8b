package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarningHandler(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) {
		captured = append(captured, w)
	})
	defer SetWarningHandler(func(error) {})

	Warn(NewConvergenceWarning("FastICA", 200, "tolerance 0.0001 not reached"))

	require.Len(t, captured, 1)
	var cw *ConvergenceWarning
	require.True(t, As(captured[0], &cw))
	assert.Equal(t, "FastICA", cw.Algorithm)
	assert.Equal(t, 200, cw.Iterations)
	assert.Contains(t, cw.Error(), "failed to converge after 200 iterations")
}

func TestNotFittedError(t *testing.T) {
	err := NewNotFittedError("FastICA", "Transform")

	var nf *NotFittedError
	require.True(t, As(err, &nf))
	assert.Equal(t, "FastICA", nf.ModelName)
	assert.Contains(t, err.Error(), "Call Fit() before using Transform()")
}

func TestDimensionErrorAxisNames(t *testing.T) {
	rowErr := NewDimensionError("Fit", 10, 5, 0)
	assert.Contains(t, rowErr.Error(), "rows")

	colErr := NewDimensionError("Predict", 3, 7, 1)
	assert.Contains(t, colErr.Error(), "features")
	assert.Contains(t, colErr.Error(), "Expected 3, got 7")
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("n_components", "must be at least 1", -2)

	var ve *ValidationError
	require.True(t, As(err, &ve))
	assert.Equal(t, "n_components", ve.ParamName)
	assert.Contains(t, err.Error(), "got: -2")
}

func TestStratificationErrorNamesClass(t *testing.T) {
	err := NewStratificationError(7, 1)

	var se *StratificationError
	require.True(t, As(err, &se))
	assert.Equal(t, 7, se.Class)
	assert.Contains(t, err.Error(), "class 7")
}

func TestModelErrorUnwrap(t *testing.T) {
	err := NewModelError("Fit", "empty data", ErrEmptyData)
	assert.True(t, Is(err, ErrEmptyData))
}

func TestWrapKeepsChain(t *testing.T) {
	base := NewValueError("Load", "bad dtype")
	wrapped := Wrapf(base, "dataset %s", "salinas")

	var ve *ValueError
	assert.True(t, As(wrapped, &ve))
	assert.Contains(t, wrapped.Error(), "salinas")
}

func TestRecoverConvertsPanic(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err, "Classifier.Fit")
		panic("index out of range")
	}

	err := run()
	require.Error(t, err)

	var pe *PanicError
	require.True(t, As(err, &pe))
	assert.Equal(t, "Classifier.Fit", pe.Operation)
	assert.True(t, strings.Contains(pe.String(), "Stack trace"))
}

func TestRecoverWithoutPanic(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err, "noop")
		return nil
	}
	assert.NoError(t, run())
}
