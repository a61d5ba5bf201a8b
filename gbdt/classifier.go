package gbdt

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/gospectral/hyperion/core/model"
	"github.com/gospectral/hyperion/pkg/errors"
	"github.com/gospectral/hyperion/pkg/log"
)

// Classifier is a gradient-boosted decision tree classifier with a
// fit/predict lifecycle. Arbitrary integer labels are accepted; they are
// mapped to contiguous class indices internally and mapped back on Predict.
type Classifier struct {
	model.BaseEstimator

	// Hyperparameters
	NumIterations   int
	LearningRate    float64
	MaxDepth        int
	MinChildSamples int
	Lambda          float64
	MaxBin          int
	EarlyStopping   int
	RandomState     int64
	Verbosity       int

	// Fitted state
	ensemble *Model
	classes  []int
	logger   log.Logger
}

// NewClassifier creates a classifier with the default hyperparameters.
func NewClassifier() *Classifier {
	return &Classifier{
		NumIterations:   1000,
		LearningRate:    0.1,
		MaxDepth:        6,
		MinChildSamples: 20,
		MaxBin:          255,
		RandomState:     42,
		logger:          log.GetLoggerWithName("gbdt.classifier"),
	}
}

// WithNumIterations sets the number of boosting iterations.
func (c *Classifier) WithNumIterations(n int) *Classifier {
	c.NumIterations = n
	return c
}

// WithLearningRate sets the shrinkage rate.
func (c *Classifier) WithLearningRate(lr float64) *Classifier {
	c.LearningRate = lr
	return c
}

// WithMaxDepth sets the maximum tree depth.
func (c *Classifier) WithMaxDepth(depth int) *Classifier {
	c.MaxDepth = depth
	return c
}

// WithMinChildSamples sets the minimum number of samples per leaf.
func (c *Classifier) WithMinChildSamples(n int) *Classifier {
	c.MinChildSamples = n
	return c
}

// WithEarlyStopping sets the number of rounds without evaluation-set
// improvement before training stops. It only takes effect when Fit is
// given an evaluation set.
func (c *Classifier) WithEarlyStopping(rounds int) *Classifier {
	c.EarlyStopping = rounds
	return c
}

// WithRandomState sets the random seed.
func (c *Classifier) WithRandomState(seed int64) *Classifier {
	c.RandomState = seed
	return c
}

// WithVerbosity sets the logging verbosity of the training loop.
func (c *Classifier) WithVerbosity(v int) *Classifier {
	c.Verbosity = v
	return c
}

// fitConfig carries per-call fit options.
type fitConfig struct {
	evalX mat.Matrix
	evalY []int
}

// FitOption configures a single Fit call.
type FitOption func(*fitConfig)

// WithEvalSet supplies an evaluation set monitored during training. Its
// accuracy drives early stopping when WithEarlyStopping is configured.
func WithEvalSet(X mat.Matrix, y []int) FitOption {
	return func(cfg *fitConfig) {
		cfg.evalX = X
		cfg.evalY = y
	}
}

// encodeLabels maps arbitrary integer labels onto contiguous indices.
func encodeLabels(y []int) (classes []int, encoded []int) {
	seen := make(map[int]struct{}, len(y))
	for _, label := range y {
		seen[label] = struct{}{}
	}
	classes = make([]int, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, label := range classes {
		index[label] = i
	}
	encoded = make([]int, len(y))
	for i, label := range y {
		encoded[i] = index[label]
	}
	return classes, encoded
}

// Fit trains the ensemble on X and integer labels y.
func (c *Classifier) Fit(X mat.Matrix, y []int, opts ...FitOption) (err error) {
	defer errors.Recover(&err, "Classifier.Fit")

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("Classifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != rows {
		return errors.NewDimensionError("Classifier.Fit", rows, len(y), 0)
	}

	cfg := fitConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	classes, encoded := encodeLabels(y)
	if len(classes) < 2 {
		return errors.NewValidationError("y", "need at least 2 distinct classes", len(classes))
	}

	trainer := NewTrainer(TrainingParams{
		NumIterations: c.NumIterations,
		LearningRate:  c.LearningRate,
		MaxDepth:      c.MaxDepth,
		MinDataInLeaf: c.MinChildSamples,
		Lambda:        c.Lambda,
		MaxBin:        c.MaxBin,
		NumClass:      len(classes),
		EarlyStopping: c.EarlyStopping,
		Seed:          c.RandomState,
		Verbosity:     c.Verbosity,
	})

	if cfg.evalX != nil {
		evalEncoded, encodeErr := c.encodeKnown(classes, cfg.evalY, "Classifier.Fit")
		if encodeErr != nil {
			return encodeErr
		}
		trainer.WithEvalSet(cfg.evalX, evalEncoded)
	}

	start := time.Now()
	if err := trainer.Fit(X, encoded); err != nil {
		return err
	}

	c.ensemble = trainer.GetModel()
	c.classes = classes
	c.SetFitted()

	c.logger.Info("classifier fitted",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.ClassesKey, len(classes),
		"trees", c.ensemble.NumTrees(),
		"best_iteration", c.ensemble.BestIteration,
		log.DurationSecondsKey, time.Since(start).Seconds())
	return nil
}

// encodeKnown maps labels using an existing class list, rejecting labels
// absent from it.
func (c *Classifier) encodeKnown(classes []int, y []int, op string) ([]int, error) {
	index := make(map[int]int, len(classes))
	for i, label := range classes {
		index[label] = i
	}
	encoded := make([]int, len(y))
	for i, label := range y {
		idx, ok := index[label]
		if !ok {
			return nil, errors.NewValueError(op, "evaluation label not present in training labels")
		}
		encoded[i] = idx
	}
	return encoded, nil
}

// Predict returns the most probable class label for each row of X.
func (c *Classifier) Predict(X mat.Matrix) ([]int, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("Classifier", "Predict")
	}
	rows, cols := X.Dims()
	if cols != c.ensemble.NumFeatures {
		return nil, errors.NewDimensionError("Classifier.Predict", c.ensemble.NumFeatures, cols, 1)
	}

	predictions := make([]int, rows)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x[j] = X.At(i, j)
		}
		raw := c.ensemble.PredictRaw(x)
		best := 0
		for class, score := range raw {
			if score > raw[best] {
				best = class
			}
		}
		predictions[i] = c.classes[best]
	}
	return predictions, nil
}

// PredictProba returns the class membership probabilities for each row of
// X, columns ordered as Classes().
func (c *Classifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("Classifier", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != c.ensemble.NumFeatures {
		return nil, errors.NewDimensionError("Classifier.PredictProba", c.ensemble.NumFeatures, cols, 1)
	}

	probs := mat.NewDense(rows, len(c.classes), nil)
	x := make([]float64, cols)
	out := make([]float64, len(c.classes))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x[j] = X.At(i, j)
		}
		raw := c.ensemble.PredictRaw(x)
		stableSoftmax(raw, out)
		probs.SetRow(i, out)
	}
	return probs, nil
}

// Classes returns the sorted distinct labels seen during Fit.
func (c *Classifier) Classes() []int {
	if c.classes == nil {
		return nil
	}
	out := make([]int, len(c.classes))
	copy(out, c.classes)
	return out
}

// BestIteration returns the boosting iteration the kept model was
// truncated at. Without early stopping this is the last iteration.
func (c *Classifier) BestIteration() int {
	if c.ensemble == nil {
		return -1
	}
	return c.ensemble.BestIteration
}

// NumTrees returns the number of trees kept after truncation.
func (c *Classifier) NumTrees() int {
	if c.ensemble == nil {
		return 0
	}
	return c.ensemble.NumTrees()
}

var _ model.Classifier = (*Classifier)(nil)
