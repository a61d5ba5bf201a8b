package model

import "gonum.org/v1/gonum/mat"

// Transformer is the fit/transform lifecycle shared by feature
// transformations such as scalers and dimensionality reducers.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is the minimal supervised classification surface used by the
// pipeline: integer class labels in, integer class labels out.
type Classifier interface {
	Predict(X mat.Matrix) ([]int, error)
	PredictProba(X mat.Matrix) (*mat.Dense, error)
	Classes() []int
}
