// Package metrics provides classification evaluation: scalar accuracy, a
// per-class precision/recall/F1 report, and a confusion matrix.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gospectral/hyperion/pkg/errors"
)

// Accuracy returns the fraction of predictions equal to the true labels.
func Accuracy(yTrue, yPred []int) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("Accuracy", "empty label slice")
	}
	if len(yTrue) != len(yPred) {
		return 0, errors.NewDimensionError("Accuracy", len(yTrue), len(yPred), 0)
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// uniqueLabels returns the sorted union of labels in both slices.
func uniqueLabels(yTrue, yPred []int) []int {
	seen := make(map[int]struct{})
	for _, l := range yTrue {
		seen[l] = struct{}{}
	}
	for _, l := range yPred {
		seen[l] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

// ConfusionMatrix counts (true, predicted) label pairs. Rows are true
// labels, columns are predicted labels, both ordered by Labels.
type ConfusionMatrix struct {
	Labels []int
	Counts [][]int
}

// NewConfusionMatrix builds the confusion matrix over the union of labels
// appearing in yTrue and yPred.
func NewConfusionMatrix(yTrue, yPred []int) (*ConfusionMatrix, error) {
	if len(yTrue) == 0 {
		return nil, errors.NewValueError("NewConfusionMatrix", "empty label slice")
	}
	if len(yTrue) != len(yPred) {
		return nil, errors.NewDimensionError("NewConfusionMatrix", len(yTrue), len(yPred), 0)
	}

	labels := uniqueLabels(yTrue, yPred)
	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		counts[index[yTrue[i]]][index[yPred[i]]]++
	}

	return &ConfusionMatrix{Labels: labels, Counts: counts}, nil
}

// At returns the count of samples with the given true and predicted labels.
func (cm *ConfusionMatrix) At(trueLabel, predLabel int) int {
	ti, pi := -1, -1
	for i, l := range cm.Labels {
		if l == trueLabel {
			ti = i
		}
		if l == predLabel {
			pi = i
		}
	}
	if ti < 0 || pi < 0 {
		return 0
	}
	return cm.Counts[ti][pi]
}

// String renders the matrix as aligned rows of counts.
func (cm *ConfusionMatrix) String() string {
	width := 1
	for _, row := range cm.Counts {
		for _, v := range row {
			if w := len(fmt.Sprintf("%d", v)); w > width {
				width = w
			}
		}
	}

	var b strings.Builder
	for i, row := range cm.Counts {
		b.WriteString("[")
		for j, v := range row {
			if j > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%*d", width, v)
		}
		b.WriteString("]")
		if i < len(cm.Counts)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Report holds per-class precision, recall, F1 and support, plus overall
// accuracy, ordered by Labels.
type Report struct {
	Labels    []int
	Precision []float64
	Recall    []float64
	F1        []float64
	Support   []int
	Accuracy  float64
}

// ClassificationReport computes per-class precision, recall and F1 over
// the union of labels in yTrue and yPred.
//
// A class with no predicted samples has undefined precision; it is set to
// 0 and an UndefinedMetricWarning is dispatched, matching the behavior of
// the metric conventions this report mirrors.
func ClassificationReport(yTrue, yPred []int) (*Report, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	n := len(cm.Labels)
	report := &Report{
		Labels:    cm.Labels,
		Precision: make([]float64, n),
		Recall:    make([]float64, n),
		F1:        make([]float64, n),
		Support:   make([]int, n),
	}

	for i := 0; i < n; i++ {
		tp := cm.Counts[i][i]
		var predTotal, trueTotal int
		for j := 0; j < n; j++ {
			predTotal += cm.Counts[j][i]
			trueTotal += cm.Counts[i][j]
		}
		report.Support[i] = trueTotal

		if predTotal == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("precision",
				fmt.Sprintf("no predicted samples for class %d", cm.Labels[i]), 0))
		} else {
			report.Precision[i] = float64(tp) / float64(predTotal)
		}
		if trueTotal == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("recall",
				fmt.Sprintf("no true samples for class %d", cm.Labels[i]), 0))
		} else {
			report.Recall[i] = float64(tp) / float64(trueTotal)
		}
		if report.Precision[i]+report.Recall[i] > 0 {
			report.F1[i] = 2 * report.Precision[i] * report.Recall[i] / (report.Precision[i] + report.Recall[i])
		}
	}

	report.Accuracy, _ = Accuracy(yTrue, yPred)
	return report, nil
}

// macro returns the unweighted mean of vals.
func macro(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// weighted returns the support-weighted mean of vals.
func (r *Report) weighted(vals []float64) float64 {
	var total int
	var sum float64
	for i, v := range vals {
		sum += v * float64(r.Support[i])
		total += r.Support[i]
	}
	if total == 0 {
		return 0
	}
	return sum / float64(total)
}

// String renders the report in the familiar tabular text form.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	b.WriteString("\n")

	totalSupport := 0
	for i, label := range r.Labels {
		fmt.Fprintf(&b, "%12d %9.2f %9.2f %9.2f %9d\n",
			label, r.Precision[i], r.Recall[i], r.F1[i], r.Support[i])
		totalSupport += r.Support[i]
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, totalSupport)
	fmt.Fprintf(&b, "%12s %9.2f %9.2f %9.2f %9d\n", "macro avg",
		macro(r.Precision), macro(r.Recall), macro(r.F1), totalSupport)
	fmt.Fprintf(&b, "%12s %9.2f %9.2f %9.2f %9d\n", "weighted avg",
		r.weighted(r.Precision), r.weighted(r.Recall), r.weighted(r.F1), totalSupport)
	return b.String()
}
