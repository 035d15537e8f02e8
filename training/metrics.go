package training

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ConfusionMatrix accumulates prediction/ground-truth pairs for one
// attribute. Rows are actual classes, columns are predicted classes.
type ConfusionMatrix struct {
	numClasses int
	counts     [][]int
	total      int
}

func NewConfusionMatrix(numClasses int) (*ConfusionMatrix, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("class count must be positive, got %d", numClasses)
	}
	counts := make([][]int, numClasses)
	for i := range counts {
		counts[i] = make([]int, numClasses)
	}
	return &ConfusionMatrix{numClasses: numClasses, counts: counts}, nil
}

// Add records one observation.
func (cm *ConfusionMatrix) Add(predicted, actual int) error {
	if predicted < 0 || predicted >= cm.numClasses {
		return fmt.Errorf("predicted class %d out of range [0, %d)", predicted, cm.numClasses)
	}
	if actual < 0 || actual >= cm.numClasses {
		return fmt.Errorf("actual class %d out of range [0, %d)", actual, cm.numClasses)
	}
	cm.counts[actual][predicted]++
	cm.total++
	return nil
}

// Total returns the number of recorded observations.
func (cm *ConfusionMatrix) Total() int {
	return cm.total
}

// Support returns how many observations have the given actual class.
func (cm *ConfusionMatrix) Support(class int) int {
	support := 0
	for _, count := range cm.counts[class] {
		support += count
	}
	return support
}

// Accuracy is the fraction of observations on the diagonal.
func (cm *ConfusionMatrix) Accuracy() float64 {
	if cm.total == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < cm.numClasses; i++ {
		correct += cm.counts[i][i]
	}
	return float64(correct) / float64(cm.total)
}

// PrecisionForClass is TP / (TP + FP). A class never predicted scores 0.
func (cm *ConfusionMatrix) PrecisionForClass(class int) float64 {
	predicted := 0
	for actual := 0; actual < cm.numClasses; actual++ {
		predicted += cm.counts[actual][class]
	}
	if predicted == 0 {
		return 0
	}
	return float64(cm.counts[class][class]) / float64(predicted)
}

// RecallForClass is TP / (TP + FN). A class with no support scores 0.
func (cm *ConfusionMatrix) RecallForClass(class int) float64 {
	support := cm.Support(class)
	if support == 0 {
		return 0
	}
	return float64(cm.counts[class][class]) / float64(support)
}

// F1ForClass is the harmonic mean of precision and recall.
func (cm *ConfusionMatrix) F1ForClass(class int) float64 {
	p := cm.PrecisionForClass(class)
	r := cm.RecallForClass(class)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// weightedAverage averages a per-class score weighted by class support,
// which keeps imbalanced classes from distorting the aggregate.
func (cm *ConfusionMatrix) weightedAverage(score func(int) float64) float64 {
	if cm.total == 0 {
		return 0
	}
	scores := make([]float64, cm.numClasses)
	weights := make([]float64, cm.numClasses)
	for c := 0; c < cm.numClasses; c++ {
		scores[c] = score(c)
		weights[c] = float64(cm.Support(c))
	}
	return stat.Mean(scores, weights)
}

// WeightedPrecision is the support-weighted mean of per-class precision.
func (cm *ConfusionMatrix) WeightedPrecision() float64 {
	return cm.weightedAverage(cm.PrecisionForClass)
}

// WeightedRecall is the support-weighted mean of per-class recall.
func (cm *ConfusionMatrix) WeightedRecall() float64 {
	return cm.weightedAverage(cm.RecallForClass)
}

// WeightedF1 is the support-weighted mean of per-class F1.
func (cm *ConfusionMatrix) WeightedF1() float64 {
	return cm.weightedAverage(cm.F1ForClass)
}

// String renders the matrix for console output.
func (cm *ConfusionMatrix) String() string {
	var sb strings.Builder
	sb.WriteString("actual\\predicted")
	for c := 0; c < cm.numClasses; c++ {
		fmt.Fprintf(&sb, "\t%d", c)
	}
	sb.WriteString("\n")
	for actual := 0; actual < cm.numClasses; actual++ {
		fmt.Fprintf(&sb, "%d", actual)
		for predicted := 0; predicted < cm.numClasses; predicted++ {
			fmt.Fprintf(&sb, "\t%d", cm.counts[actual][predicted])
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// AttributeMetrics summarizes one attribute head's performance.
type AttributeMetrics struct {
	Name      string
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// Report is the evaluation output: per-attribute metrics plus aggregates
// formed by unweighted averaging across the three attributes.
type Report struct {
	Attributes []AttributeMetrics

	AggregateAccuracy  float64
	AggregatePrecision float64
	AggregateRecall    float64
	AggregateF1        float64
}

// BuildReport assembles a report from the three attribute confusion
// matrices in order age, gender, accent.
func BuildReport(names []string, matrices []*ConfusionMatrix) (*Report, error) {
	if len(names) != len(matrices) {
		return nil, fmt.Errorf("got %d names for %d matrices", len(names), len(matrices))
	}
	if len(matrices) == 0 {
		return nil, fmt.Errorf("no matrices to report on")
	}

	report := &Report{}
	accuracies := make([]float64, len(matrices))
	precisions := make([]float64, len(matrices))
	recalls := make([]float64, len(matrices))
	f1s := make([]float64, len(matrices))

	for i, cm := range matrices {
		metrics := AttributeMetrics{
			Name:      names[i],
			Accuracy:  cm.Accuracy(),
			Precision: cm.WeightedPrecision(),
			Recall:    cm.WeightedRecall(),
			F1:        cm.WeightedF1(),
		}
		report.Attributes = append(report.Attributes, metrics)
		accuracies[i] = metrics.Accuracy
		precisions[i] = metrics.Precision
		recalls[i] = metrics.Recall
		f1s[i] = metrics.F1
	}

	report.AggregateAccuracy = stat.Mean(accuracies, nil)
	report.AggregatePrecision = stat.Mean(precisions, nil)
	report.AggregateRecall = stat.Mean(recalls, nil)
	report.AggregateF1 = stat.Mean(f1s, nil)
	return report, nil
}

// String renders the report as console lines.
func (r *Report) String() string {
	var sb strings.Builder
	for _, a := range r.Attributes {
		fmt.Fprintf(&sb, "%-8s accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f\n",
			a.Name, a.Accuracy, a.Precision, a.Recall, a.F1)
	}
	fmt.Fprintf(&sb, "%-8s accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f\n",
		"overall", r.AggregateAccuracy, r.AggregatePrecision, r.AggregateRecall, r.AggregateF1)
	return sb.String()
}
