package model

// EstimatorState tracks whether an estimator has been fitted.
type EstimatorState int

const (
	// NotFitted marks an estimator that has not seen training data yet.
	NotFitted EstimatorState = iota
	// Fitted marks an estimator whose Fit has completed successfully.
	Fitted
)

// BaseEstimator is embedded by every estimator and transformer to carry
// the fitted/not-fitted lifecycle state.
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted reports whether Fit has completed successfully.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted marks the estimator as fitted.
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset returns the estimator to its initial, unfitted state.
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
