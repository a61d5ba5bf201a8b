package modelselection

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gospectral/hyperion/pkg/errors"
)

func classCounts(labels []int) map[int]int {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func TestStratifiedSplitPreservesProportions(t *testing.T) {
	// 100 samples: 60 of class 0, 30 of class 1, 10 of class 2.
	var y []int
	for i := 0; i < 60; i++ {
		y = append(y, 0)
	}
	for i := 0; i < 30; i++ {
		y = append(y, 1)
	}
	for i := 0; i < 10; i++ {
		y = append(y, 2)
	}

	trainIdx, testIdx, err := StratifiedSplit(y, 0.2, 42)
	if err != nil {
		t.Fatalf("StratifiedSplit failed: %v", err)
	}

	if len(trainIdx)+len(testIdx) != len(y) {
		t.Fatalf("partitions cover %d samples, want %d", len(trainIdx)+len(testIdx), len(y))
	}

	testLabels := make([]int, len(testIdx))
	for i, idx := range testIdx {
		testLabels[i] = y[idx]
	}
	counts := classCounts(testLabels)

	// Each class should contribute ~20% of its members to the test set.
	for class, total := range map[int]int{0: 60, 1: 30, 2: 10} {
		want := 0.2 * float64(total)
		if math.Abs(float64(counts[class])-want) > 1 {
			t.Errorf("class %d: %d test samples, want ~%.0f", class, counts[class], want)
		}
	}
}

func TestStratifiedSplitDeterminism(t *testing.T) {
	y := []int{0, 0, 0, 1, 1, 1, 2, 2, 2, 0, 1, 2}

	train1, test1, err := StratifiedSplit(y, 0.25, 42)
	if err != nil {
		t.Fatalf("first split failed: %v", err)
	}
	train2, test2, err := StratifiedSplit(y, 0.25, 42)
	if err != nil {
		t.Fatalf("second split failed: %v", err)
	}

	if len(train1) != len(train2) || len(test1) != len(test2) {
		t.Fatal("fixed-seed splits have different sizes")
	}
	for i := range train1 {
		if train1[i] != train2[i] {
			t.Fatalf("train indices differ at %d: %d vs %d", i, train1[i], train2[i])
		}
	}
	for i := range test1 {
		if test1[i] != test2[i] {
			t.Fatalf("test indices differ at %d: %d vs %d", i, test1[i], test2[i])
		}
	}
}

func TestStratifiedSplitSingletonClass(t *testing.T) {
	y := []int{0, 0, 0, 0, 7, 1, 1, 1}

	_, _, err := StratifiedSplit(y, 0.2, 42)
	if err == nil {
		t.Fatal("split with a singleton class should fail")
	}

	var se *errors.StratificationError
	if !errors.As(err, &se) {
		t.Fatalf("expected StratificationError, got %v", err)
	}
	if se.Class != 7 {
		t.Errorf("error names class %d, want 7", se.Class)
	}
	if se.Members != 1 {
		t.Errorf("error reports %d members, want 1", se.Members)
	}
}

func TestStratifiedSplitInvalidFraction(t *testing.T) {
	for _, frac := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := StratifiedSplit([]int{0, 0, 1, 1}, frac, 42)
		if err == nil {
			t.Errorf("test fraction %g should be rejected", frac)
			continue
		}
		var ve *errors.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("fraction %g: expected ValidationError, got %v", frac, err)
		}
	}
}

func TestTrainTestSplitRowsFollowLabels(t *testing.T) {
	// Feature value encodes the row index so provenance is checkable.
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y[i] = i % 2
	}

	XTrain, XTest, yTrain, yTest, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}

	trainRows, _ := XTrain.Dims()
	testRows, _ := XTest.Dims()
	if trainRows+testRows != n {
		t.Fatalf("split sizes %d + %d, want %d total", trainRows, testRows, n)
	}

	check := func(X *mat.Dense, labels []int) {
		r, _ := X.Dims()
		for i := 0; i < r; i++ {
			origin := int(X.At(i, 0))
			if labels[i] != y[origin] {
				t.Errorf("row %d: label %d does not match origin row %d (label %d)",
					i, labels[i], origin, y[origin])
			}
		}
	}
	check(XTrain, yTrain)
	check(XTest, yTest)
}
