// Package decomposition provides dimensionality reduction for standardized
// sample-by-band tables.
package decomposition

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/gospectral/hyperion/core/model"
	"github.com/gospectral/hyperion/pkg/errors"
)

// eigenvalue floor when inverting the whitening and decorrelation spectra
const eigEps = 1e-12

// FastICA estimates statistically independent components from mixed
// observations using the parallel (symmetric) FastICA algorithm with the
// logcosh contrast function. Each row of the input is treated as an i.i.d.
// sample and each column as an observed mixed signal.
//
// Fitting whitens the centered data through an eigendecomposition of the
// sample covariance and then iterates the fixed-point update until the
// unmixing matrix stops rotating or the iteration budget is exhausted.
// Non-convergence is reported as a ConvergenceWarning, not an error; the
// best available iterate is kept.
type FastICA struct {
	model.BaseEstimator

	nComponents int
	maxIter     int
	tol         float64
	alpha       float64
	randomState int64

	mean       []float64
	whitening  *mat.Dense // nComponents x nFeatures
	unmixing   *mat.Dense // nComponents x nComponents, in whitened space
	components *mat.Dense // nComponents x nFeatures, unmixing applied to whitening
	nFeatures  int
	nIter      int
}

// Option configures a FastICA instance.
type Option func(*FastICA)

// WithComponents sets the number of independent components to extract.
func WithComponents(n int) Option {
	return func(ica *FastICA) { ica.nComponents = n }
}

// WithMaxIter sets the fixed-point iteration budget.
func WithMaxIter(n int) Option {
	return func(ica *FastICA) { ica.maxIter = n }
}

// WithTol sets the convergence tolerance on the unmixing matrix rotation.
func WithTol(tol float64) Option {
	return func(ica *FastICA) { ica.tol = tol }
}

// WithRandomState seeds the unmixing matrix initialization for
// reproducible fits.
func WithRandomState(seed int64) Option {
	return func(ica *FastICA) { ica.randomState = seed }
}

// NewFastICA creates a FastICA reducer with the given options.
// Defaults: 10 components, 200 iterations, tolerance 1e-4, seed 42.
func NewFastICA(opts ...Option) *FastICA {
	ica := &FastICA{
		nComponents: 10,
		maxIter:     200,
		tol:         1e-4,
		alpha:       1.0,
		randomState: 42,
	}
	for _, opt := range opts {
		opt(ica)
	}
	return ica
}

var _ model.Transformer = (*FastICA)(nil)

// Fit estimates the whitening and unmixing matrices from X.
//
// The component count is validated against the number of observed signals
// before any computation starts; a violation is a ValidationError and the
// reducer stays unfitted.
func (ica *FastICA) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("FastICA.Fit", "empty data", errors.ErrEmptyData)
	}
	if ica.nComponents < 1 {
		return errors.NewValidationError("n_components", "must be at least 1", ica.nComponents)
	}
	if ica.nComponents > c {
		return errors.NewValidationError("n_components",
			fmt.Sprintf("must not exceed the number of observed signals (%d)", c), ica.nComponents)
	}

	k := ica.nComponents

	// Center.
	ica.mean = make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		ica.mean[j] = sum / float64(r)
	}
	centered := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			centered.Set(i, j, X.At(i, j)-ica.mean[j])
		}
	}

	// Whiten: project onto the top-k eigenvectors of the sample covariance
	// and rescale each direction to unit variance.
	cov := mat.NewSymDense(c, nil)
	for i := 0; i < c; i++ {
		for j := i; j < c; j++ {
			sum := 0.0
			for s := 0; s < r; s++ {
				sum += centered.At(s, i) * centered.At(s, j)
			}
			cov.SetSym(i, j, sum/float64(r))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return errors.NewModelError("FastICA.Fit", "covariance eigendecomposition failed", nil)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Eigenvalues come back ascending; take the k largest.
	ica.whitening = mat.NewDense(k, c, nil)
	for comp := 0; comp < k; comp++ {
		idx := c - 1 - comp
		lambda := values[idx]
		if lambda < eigEps {
			lambda = eigEps
		}
		inv := 1.0 / math.Sqrt(lambda)
		for j := 0; j < c; j++ {
			ica.whitening.Set(comp, j, vectors.At(j, idx)*inv)
		}
	}

	whitened := mat.NewDense(r, k, nil)
	whitened.Mul(centered, ica.whitening.T())

	// Random orthonormal start for the unmixing matrix.
	rng := rand.New(rand.NewPCG(uint64(ica.randomState), uint64(ica.randomState)))
	W := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			W.Set(i, j, rng.NormFloat64())
		}
	}
	W = symmetricDecorrelate(W)

	converged := false
	for iter := 0; iter < ica.maxIter; iter++ {
		ica.nIter = iter + 1
		W1 := ica.fixedPointUpdate(whitened, W)
		W1 = symmetricDecorrelate(W1)

		// Convergence: each new component direction must be (anti)parallel
		// to its previous estimate.
		var rotation mat.Dense
		rotation.Mul(W1, W.T())
		lim := 0.0
		for i := 0; i < k; i++ {
			d := math.Abs(math.Abs(rotation.At(i, i)) - 1)
			if d > lim {
				lim = d
			}
		}
		W = W1
		if lim < ica.tol {
			converged = true
			break
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("FastICA", ica.maxIter,
			fmt.Sprintf("tolerance %g not reached", ica.tol)))
	}

	ica.unmixing = W
	ica.components = mat.NewDense(k, c, nil)
	ica.components.Mul(W, ica.whitening)
	ica.nFeatures = c

	ica.SetFitted()
	return nil
}

// fixedPointUpdate performs one parallel FastICA step with the logcosh
// contrast: W1 = E[g(WZ)Zᵀ] - diag(E[g'(WZ)]) W.
func (ica *FastICA) fixedPointUpdate(whitened, W *mat.Dense) *mat.Dense {
	n, k := whitened.Dims()

	var projected mat.Dense
	projected.Mul(whitened, W.T()) // n x k

	g := mat.NewDense(n, k, nil)
	gDerMean := make([]float64, k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			th := math.Tanh(ica.alpha * projected.At(i, j))
			g.Set(i, j, th)
			gDerMean[j] += ica.alpha * (1 - th*th)
		}
	}
	for j := 0; j < k; j++ {
		gDerMean[j] /= float64(n)
	}

	W1 := mat.NewDense(k, k, nil)
	W1.Mul(g.T(), whitened)
	W1.Scale(1/float64(n), W1)

	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			W1.Set(i, j, W1.At(i, j)-gDerMean[i]*W.At(i, j))
		}
	}
	return W1
}

// symmetricDecorrelate returns (W Wᵀ)^(-1/2) W.
func symmetricDecorrelate(W *mat.Dense) *mat.Dense {
	k, _ := W.Dims()

	prod := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sum := 0.0
			for s := 0; s < k; s++ {
				sum += W.At(i, s) * W.At(j, s)
			}
			prod.SetSym(i, j, sum)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(prod, true) {
		// W Wᵀ is symmetric positive semi-definite; factorization failing
		// here means the matrix degenerated to NaN/Inf.
		panic("fastica: decorrelation eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	invSqrt := mat.NewDense(k, k, nil)
	for s := 0; s < k; s++ {
		lambda := values[s]
		if lambda < eigEps {
			lambda = eigEps
		}
		scale := 1.0 / math.Sqrt(lambda)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				invSqrt.Set(i, j, invSqrt.At(i, j)+vectors.At(i, s)*scale*vectors.At(j, s))
			}
		}
	}

	result := mat.NewDense(k, k, nil)
	result.Mul(invSqrt, W)
	return result
}

// Transform projects X onto the fitted independent components, producing a
// table of shape (n_samples, n_components).
func (ica *FastICA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !ica.IsFitted() {
		return nil, errors.NewNotFittedError("FastICA", "Transform")
	}

	r, c := X.Dims()
	if c != ica.nFeatures {
		return nil, errors.NewDimensionError("FastICA.Transform", ica.nFeatures, c, 1)
	}

	centered := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			centered.Set(i, j, X.At(i, j)-ica.mean[j])
		}
	}

	sources := mat.NewDense(r, ica.nComponents, nil)
	sources.Mul(centered, ica.components.T())
	return sources, nil
}

// FitTransform fits the reducer on X and returns the reduced table.
func (ica *FastICA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := ica.Fit(X); err != nil {
		return nil, err
	}
	return ica.Transform(X)
}

// Components returns a copy of the fitted unmixing matrix expressed in the
// original feature space (n_components x n_features), or nil before Fit.
func (ica *FastICA) Components() *mat.Dense {
	if !ica.IsFitted() {
		return nil
	}
	return mat.DenseCopyOf(ica.components)
}

// NIter returns the number of fixed-point iterations run by the last Fit.
func (ica *FastICA) NIter() int {
	return ica.nIter
}
