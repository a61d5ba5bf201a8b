// Package gbdt implements a histogram-based gradient-boosted decision-tree
// classifier for multiclass problems. Each boosting iteration fits one
// regression tree per class on the softmax log-loss gradients; training can
// monitor accuracy on an evaluation set and stop early, keeping the best
// checkpoint.
package gbdt

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/gospectral/hyperion/pkg/errors"
	"github.com/gospectral/hyperion/pkg/log"
)

// TrainingParams contains the boosting hyperparameters.
type TrainingParams struct {
	NumIterations  int     // boosting rounds; one tree per class per round
	LearningRate   float64 // shrinkage applied to leaf values
	MaxDepth       int     // maximum tree depth
	MinDataInLeaf  int     // minimum samples per leaf
	Lambda         float64 // L2 regularization on leaf values
	MinGainToSplit float64 // minimum gain required to keep a split
	MaxBin         int     // maximum histogram bins per feature
	NumClass       int     // number of classes, >= 2
	EarlyStopping  int     // rounds without eval improvement before stopping; 0 disables
	Seed           int64   // reserved for subsampling extensions
	Verbosity      int
}

// split describes the best histogram split found for a node. A negative
// feature means no admissible split exists.
type split struct {
	feature int
	bin     int
	gain    float64
}

// Trainer runs the boosting loop over binned features.
type Trainer struct {
	params TrainingParams

	rows [][]float64
	y    []int

	binEdges [][]float64
	bins     [][]int // feature-major: bins[f][sample]

	raw  []float64 // current raw scores, sample-major n*NumClass
	grad []float64
	hess []float64

	trees     []tree
	objective *softmaxObjective

	evalRows [][]float64
	evalY    []int
	evalRaw  []float64

	bestIteration int
	iterationsRun int
}

// NewTrainer creates a trainer, filling in defaults for unset parameters.
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.MaxDepth == 0 {
		params.MaxDepth = 6
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.MaxBin == 0 {
		params.MaxBin = 255
	}
	if params.MinGainToSplit == 0 {
		params.MinGainToSplit = 1e-7
	}
	return &Trainer{params: params}
}

// WithEvalSet attaches an evaluation set. Accuracy on this set is the
// early-stopping metric; without an evaluation set early stopping is
// disabled regardless of the EarlyStopping parameter.
func (t *Trainer) WithEvalSet(X mat.Matrix, y []int) *Trainer {
	t.evalRows = toRows(X)
	t.evalY = y
	return t
}

// toRows copies a matrix into per-sample feature slices.
func toRows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		rows[i] = row
	}
	return rows
}

// Fit runs the boosting loop. Labels must be class indices in
// [0, NumClass).
func (t *Trainer) Fit(X mat.Matrix, y []int) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("Trainer.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return errors.NewDimensionError("Trainer.Fit", r, len(y), 0)
	}
	if t.params.NumClass < 2 {
		return errors.NewValidationError("num_class", "must be at least 2", t.params.NumClass)
	}
	for i, label := range y {
		if label < 0 || label >= t.params.NumClass {
			return errors.NewValueError("Trainer.Fit",
				fmt.Sprintf("label %d at row %d outside [0, %d)", label, i, t.params.NumClass))
		}
	}
	if t.evalRows != nil && len(t.evalY) != len(t.evalRows) {
		return errors.NewDimensionError("Trainer.Fit", len(t.evalRows), len(t.evalY), 0)
	}

	t.rows = toRows(X)
	t.y = y

	t.buildBins(c)

	k := t.params.NumClass
	t.raw = make([]float64, r*k)
	t.grad = make([]float64, r*k)
	t.hess = make([]float64, r*k)
	t.objective = &softmaxObjective{numClass: k}
	if t.evalRows != nil {
		t.evalRaw = make([]float64, len(t.evalRows)*k)
	}

	logger := log.GetLoggerWithName("gbdt.trainer")
	if t.params.Verbosity > 0 {
		logger.Info("training started",
			log.SamplesKey, r,
			log.FeaturesKey, c,
			log.ClassesKey, k,
			"iterations", t.params.NumIterations)
	}

	var es *earlyStopping
	if t.evalRows != nil {
		es = newEarlyStopping(t.params.EarlyStopping, "accuracy")
	}

	t.iterationsRun = t.params.NumIterations
	t.bestIteration = t.params.NumIterations - 1

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.objective.gradients(t.y, t.raw, t.grad, t.hess)

		newTrees := make([]tree, k)
		for class := 0; class < k; class++ {
			newTrees[class] = t.buildTree(class)
			t.trees = append(t.trees, newTrees[class])
		}

		if t.evalRows != nil {
			for i, row := range t.evalRows {
				for class := 0; class < k; class++ {
					t.evalRaw[i*k+class] += newTrees[class].predict(row)
				}
			}
			acc := t.evalAccuracy()

			if t.params.Verbosity > 0 && iter%50 == 0 {
				logger.Debug("evaluation",
					"iteration", iter,
					log.AccuracyKey, acc,
					"logloss", t.objective.logLoss(t.evalY, t.evalRaw))
			}

			if es.update(iter, acc) {
				t.bestIteration = es.bestIteration
				t.iterationsRun = iter + 1
				if t.params.Verbosity > 0 {
					logger.Info("early stopping",
						"iteration", iter,
						"best_iteration", es.bestIteration,
						log.AccuracyKey, es.bestScore)
				}
				break
			}
		}
	}

	if es != nil && es.enabled {
		t.bestIteration = es.bestIteration
	}
	return nil
}

// buildBins computes per-feature histogram edges and bins every training
// sample. Edges are midpoints between distinct adjacent values, thinned to
// MaxBin by equal-frequency subsampling.
func (t *Trainer) buildBins(nFeatures int) {
	n := len(t.rows)
	t.binEdges = make([][]float64, nFeatures)
	t.bins = make([][]int, nFeatures)

	values := make([]float64, n)
	for f := 0; f < nFeatures; f++ {
		for i, row := range t.rows {
			values[i] = row[f]
		}
		t.binEdges[f] = findBinEdges(values, t.params.MaxBin)

		t.bins[f] = make([]int, n)
		for i, row := range t.rows {
			t.bins[f][i] = sort.SearchFloat64s(t.binEdges[f], row[f])
		}
	}
}

// findBinEdges returns sorted interior edges for a feature. A constant
// feature gets no edges and therefore never splits.
func findBinEdges(values []float64, maxBin int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	unique := []float64{sorted[0]}
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) < 2 {
		return nil
	}

	if len(unique) <= maxBin {
		edges := make([]float64, len(unique)-1)
		for i := 0; i+1 < len(unique); i++ {
			edges[i] = (unique[i] + unique[i+1]) / 2
		}
		return edges
	}

	step := len(unique) / maxBin
	var edges []float64
	for i := step; i < len(unique); i += step {
		edges = append(edges, (unique[i-1]+unique[i])/2)
	}
	return edges
}

// buildTree grows one depth-limited tree on the current gradients of a
// single class and updates the training raw scores in place.
func (t *Trainer) buildTree(class int) tree {
	samples := make([]int, len(t.rows))
	for i := range samples {
		samples[i] = i
	}
	tr := tree{}
	t.growNode(&tr, samples, class, 0)
	return tr
}

// growNode appends the subtree for the given samples and returns its root
// node index.
func (t *Trainer) growNode(tr *tree, samples []int, class, depth int) int {
	k := t.params.NumClass
	var sumG, sumH float64
	for _, i := range samples {
		sumG += t.grad[i*k+class]
		sumH += t.hess[i*k+class]
	}

	makeLeaf := func() int {
		value := -t.params.LearningRate * sumG / (sumH + t.params.Lambda)
		idx := len(tr.nodes)
		tr.nodes = append(tr.nodes, treeNode{leaf: true, value: value})
		for _, i := range samples {
			t.raw[i*k+class] += value
		}
		return idx
	}

	if depth >= t.params.MaxDepth || len(samples) < 2*t.params.MinDataInLeaf {
		return makeLeaf()
	}

	best := t.findBestSplit(samples, class, sumG, sumH)
	if best.feature < 0 {
		return makeLeaf()
	}

	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, i := range samples {
		if t.bins[best.feature][i] <= best.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	idx := len(tr.nodes)
	tr.nodes = append(tr.nodes, treeNode{
		feature:   best.feature,
		threshold: t.binEdges[best.feature][best.bin],
	})
	leftIdx := t.growNode(tr, left, class, depth+1)
	rightIdx := t.growNode(tr, right, class, depth+1)
	tr.nodes[idx].left = leftIdx
	tr.nodes[idx].right = rightIdx
	return idx
}

// findBestSplit scans per-feature histograms for the split maximizing the
// regularized gain.
func (t *Trainer) findBestSplit(samples []int, class int, sumG, sumH float64) split {
	k := t.params.NumClass
	lambda := t.params.Lambda
	best := split{feature: -1}
	parentScore := sumG * sumG / (sumH + lambda)

	for f := range t.bins {
		nBins := len(t.binEdges[f]) + 1
		if nBins < 2 {
			continue
		}

		histG := make([]float64, nBins)
		histH := make([]float64, nBins)
		histCount := make([]int, nBins)
		for _, i := range samples {
			b := t.bins[f][i]
			histG[b] += t.grad[i*k+class]
			histH[b] += t.hess[i*k+class]
			histCount[b]++
		}

		var gl, hl float64
		var cl int
		for b := 0; b < nBins-1; b++ {
			gl += histG[b]
			hl += histH[b]
			cl += histCount[b]

			cr := len(samples) - cl
			if cl < t.params.MinDataInLeaf || cr < t.params.MinDataInLeaf {
				continue
			}

			gr := sumG - gl
			hr := sumH - hl
			gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parentScore
			if gain > t.params.MinGainToSplit && gain > best.gain {
				best = split{feature: f, bin: b, gain: gain}
			}
		}
	}
	return best
}

// evalAccuracy computes accuracy of the current ensemble on the
// evaluation set from the incrementally maintained raw scores.
func (t *Trainer) evalAccuracy() float64 {
	k := t.params.NumClass
	correct := 0
	for i, label := range t.evalY {
		bestClass, bestScore := 0, t.evalRaw[i*k]
		for c := 1; c < k; c++ {
			if s := t.evalRaw[i*k+c]; s > bestScore {
				bestClass, bestScore = c, s
			}
		}
		if bestClass == label {
			correct++
		}
	}
	return float64(correct) / float64(len(t.evalY))
}

// GetModel returns the fitted ensemble truncated at the best iteration.
func (t *Trainer) GetModel() *Model {
	k := t.params.NumClass
	end := (t.bestIteration + 1) * k
	if end <= 0 || end > len(t.trees) {
		end = len(t.trees)
	}
	var nFeatures int
	if len(t.rows) > 0 {
		nFeatures = len(t.rows[0])
	}
	return &Model{
		NumClass:      k,
		NumFeatures:   nFeatures,
		BestIteration: t.bestIteration,
		trees:         t.trees[:end],
	}
}
