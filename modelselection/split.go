// Package modelselection provides seeded train/test splitting keyed on
// class labels.
package modelselection

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/gospectral/hyperion/pkg/errors"
)

// StratifiedSplit partitions sample indices into train and test sets so
// that each class keeps its relative frequency in both partitions. The
// shuffle is seeded, so a fixed seed yields identical partitions.
//
// A class with fewer than 2 members cannot appear in both partitions and
// is reported as a StratificationError naming the class.
func StratifiedSplit(y []int, testFraction float64, seed int64) (trainIdx, testIdx []int, err error) {
	if len(y) == 0 {
		return nil, nil, errors.NewModelError("StratifiedSplit", "empty labels", errors.ErrEmptyData)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.NewValidationError("test_fraction", "must be in (0, 1)", testFraction)
	}

	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	classes := make([]int, 0, len(byClass))
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	for _, label := range classes {
		if len(byClass[label]) < 2 {
			return nil, nil, errors.NewStratificationError(label, len(byClass[label]))
		}
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for _, label := range classes {
		members := byClass[label]
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})

		nTest := int(math.Round(testFraction * float64(len(members))))
		if nTest < 1 {
			nTest = 1
		}
		if nTest > len(members)-1 {
			nTest = len(members) - 1
		}

		testIdx = append(testIdx, members[:nTest]...)
		trainIdx = append(trainIdx, members[nTest:]...)
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx, nil
}

// TrainTestSplit splits a feature table and its labels into stratified
// train and test partitions.
func TrainTestSplit(X mat.Matrix, y []int, testFraction float64, seed int64) (XTrain, XTest *mat.Dense, yTrain, yTest []int, err error) {
	rows, _ := X.Dims()
	if rows != len(y) {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", len(y), rows, 0)
	}

	trainIdx, testIdx, err := StratifiedSplit(y, testFraction, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	XTrain, yTrain = Subset(X, y, trainIdx)
	XTest, yTest = Subset(X, y, testIdx)
	return XTrain, XTest, yTrain, yTest, nil
}

// Subset extracts the given rows of X and y.
func Subset(X mat.Matrix, y []int, indices []int) (*mat.Dense, []int) {
	_, cols := X.Dims()
	sub := mat.NewDense(len(indices), cols, nil)
	labels := make([]int, len(indices))
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			sub.Set(i, j, X.At(idx, j))
		}
		labels[i] = y[idx]
	}
	return sub, labels
}
