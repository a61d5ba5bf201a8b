// Package pipeline wires the full per-scene workflow: load a cube, flatten
// and standardize it, reduce it with FastICA, fit a gradient-boosted
// classifier on a stratified split, score it, predict every pixel, and
// render the resulting classification map against the ground truth.
package pipeline

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/gospectral/hyperion/decomposition"
	"github.com/gospectral/hyperion/gbdt"
	"github.com/gospectral/hyperion/hsi"
	"github.com/gospectral/hyperion/metrics"
	"github.com/gospectral/hyperion/modelselection"
	"github.com/gospectral/hyperion/pkg/errors"
	"github.com/gospectral/hyperion/pkg/log"
	"github.com/gospectral/hyperion/preprocessing"
	"github.com/gospectral/hyperion/render"
)

// Dataset names a scene and the paths of its cube and ground truth files.
// Name is the identifier used in artifact file names; DisplayName, when
// set, is the human-readable form used in console output.
type Dataset struct {
	Name        string
	DisplayName string
	CubePath    string
	LabelPath   string
}

func (d Dataset) displayName() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Name
}

// Config holds the pipeline hyperparameters.
type Config struct {
	Components   int     // independent components kept by FastICA
	TestFraction float64 // held-out fraction of labeled pixels

	// ValidationFraction > 0 carves a separate validation partition out of
	// the training pixels for early stopping, leaving the test partition
	// untouched until final scoring. At 0 the test partition doubles as
	// the early-stopping evaluation set.
	ValidationFraction float64

	Seed            int64
	NumIterations   int
	LearningRate    float64
	MaxDepth        int
	MinChildSamples int
	EarlyStopping   int
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Components:      10,
		TestFraction:    0.2,
		Seed:            42,
		NumIterations:   1000,
		LearningRate:    0.1,
		MaxDepth:        6,
		MinChildSamples: 20,
		EarlyStopping:   50,
	}
}

// Result aggregates everything a single scene run produces.
type Result struct {
	Dataset string

	// TestAccuracy is measured on the held-out partition only.
	TestAccuracy float64

	// Report and Confusion are computed over every pixel of the scene,
	// training pixels included, mirroring how the full-scene map is
	// usually summarized.
	Report    *metrics.Report
	Confusion *metrics.ConfusionMatrix

	Map           *hsi.LabelMap
	MapPath       string
	TrainingTime  time.Duration
	BestIteration int
}

// Pipeline runs the workflow for one scene at a time.
type Pipeline struct {
	cfg      Config
	loader   hsi.Loader
	renderer render.Renderer
	logger   log.Logger
}

// New creates a pipeline. A nil renderer skips map rendering.
func New(cfg Config, loader hsi.Loader, renderer render.Renderer) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		loader:   loader,
		renderer: renderer,
		logger:   log.GetLoggerWithName("hyperion.pipeline"),
	}
}

// uniqueLabels returns the sorted distinct labels in y.
func uniqueLabels(y []int) []int {
	seen := make(map[int]struct{}, len(y))
	for _, label := range y {
		seen[label] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Ints(out)
	return out
}

// Run executes the workflow for one dataset.
func (p *Pipeline) Run(ds Dataset) (*Result, error) {
	if p.cfg.ValidationFraction < 0 || p.cfg.ValidationFraction+p.cfg.TestFraction >= 1 {
		return nil, errors.NewValidationError("validation_fraction",
			"test and validation fractions must leave room for training data",
			p.cfg.ValidationFraction)
	}

	logger := p.logger.With(log.DatasetKey, ds.Name)

	cube, truth, err := p.loader.Load(ds.CubePath, ds.LabelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset %s", ds.Name)
	}
	y := truth.Vector()

	logger.Info("scene loaded",
		"height", cube.Height,
		"width", cube.Width,
		"bands", cube.Bands,
		log.ClassesKey, truth.Classes())

	X := cube.Flatten()
	scaled, err := preprocessing.NewStandardScaler().FitTransform(X)
	if err != nil {
		return nil, err
	}

	ica := decomposition.NewFastICA(
		decomposition.WithComponents(p.cfg.Components),
		decomposition.WithRandomState(p.cfg.Seed),
	)
	reduced, err := ica.FitTransform(scaled)
	if err != nil {
		return nil, err
	}
	rows, comps := reduced.Dims()
	logger.Info("dimensionality reduced",
		log.SamplesKey, rows,
		log.FeaturesKey, comps,
		"ica_iterations", ica.NIter())

	trainIdx, testIdx, err := modelselection.StratifiedSplit(y, p.cfg.TestFraction, p.cfg.Seed)
	if err != nil {
		return nil, err
	}
	XTest, yTest := modelselection.Subset(reduced, y, testIdx)

	XTrain, yTrain := modelselection.Subset(reduced, y, trainIdx)
	evalX, evalY := mat.Matrix(XTest), yTest
	if p.cfg.ValidationFraction > 0 {
		// Rescale against the remaining mass so the fraction stays
		// relative to the whole scene.
		fraction := p.cfg.ValidationFraction / (1 - p.cfg.TestFraction)
		fitIdx, valIdx, splitErr := modelselection.StratifiedSplit(yTrain, fraction, p.cfg.Seed)
		if splitErr != nil {
			return nil, splitErr
		}
		valX, valY := modelselection.Subset(XTrain, yTrain, valIdx)
		XTrain, yTrain = modelselection.Subset(XTrain, yTrain, fitIdx)
		evalX, evalY = valX, valY
	}

	logger.Info("stratified split",
		"train_samples", len(yTrain),
		"test_samples", len(yTest),
		"train_classes", uniqueLabels(yTrain),
		"test_classes", uniqueLabels(yTest))

	clf := gbdt.NewClassifier().
		WithNumIterations(p.cfg.NumIterations).
		WithLearningRate(p.cfg.LearningRate).
		WithMaxDepth(p.cfg.MaxDepth).
		WithMinChildSamples(p.cfg.MinChildSamples).
		WithEarlyStopping(p.cfg.EarlyStopping).
		WithRandomState(p.cfg.Seed)

	start := time.Now()
	if err := clf.Fit(XTrain, yTrain, gbdt.WithEvalSet(evalX, evalY)); err != nil {
		return nil, err
	}
	trainingTime := time.Since(start)

	testPred, err := clf.Predict(XTest)
	if err != nil {
		return nil, err
	}
	testAccuracy, err := metrics.Accuracy(yTest, testPred)
	if err != nil {
		return nil, err
	}
	logger.Info("classifier evaluated",
		log.AccuracyKey, testAccuracy,
		"best_iteration", clf.BestIteration(),
		log.DurationSecondsKey, trainingTime.Seconds())

	fullPred, err := clf.Predict(reduced)
	if err != nil {
		return nil, err
	}

	report, err := metrics.ClassificationReport(y, fullPred)
	if err != nil {
		return nil, err
	}
	confusion, err := metrics.NewConfusionMatrix(y, fullPred)
	if err != nil {
		return nil, err
	}

	predicted, err := hsi.LabelMapFromVector(cube.Height, cube.Width, fullPred)
	if err != nil {
		return nil, err
	}
	logger.Info("full scene predicted",
		"map_height", predicted.Height,
		"map_width", predicted.Width,
		"predicted_classes", predicted.Classes())

	mapPath := ""
	if p.renderer != nil {
		mapPath, err = p.renderer.Render(ds.Name, predicted, truth)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Dataset:       ds.displayName(),
		TestAccuracy:  testAccuracy,
		Report:        report,
		Confusion:     confusion,
		Map:           predicted,
		MapPath:       mapPath,
		TrainingTime:  trainingTime,
		BestIteration: clf.BestIteration(),
	}, nil
}
