package training

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestConfusionMatrixPerfectPredictions(t *testing.T) {
	cm, err := NewConfusionMatrix(3)
	if err != nil {
		t.Fatalf("failed to build matrix: %v", err)
	}
	for class := 0; class < 3; class++ {
		for i := 0; i < 5; i++ {
			if err := cm.Add(class, class); err != nil {
				t.Fatalf("add failed: %v", err)
			}
		}
	}

	if got := cm.Accuracy(); got != 1.0 {
		t.Errorf("accuracy: got %f, want 1.0", got)
	}
	if got := cm.WeightedPrecision(); got != 1.0 {
		t.Errorf("weighted precision: got %f, want 1.0", got)
	}
	if got := cm.WeightedF1(); got != 1.0 {
		t.Errorf("weighted f1: got %f, want 1.0", got)
	}
	if got := cm.Total(); got != 15 {
		t.Errorf("total: got %d, want 15", got)
	}
}

func TestConfusionMatrixKnownValues(t *testing.T) {
	// Two classes. Actual class 0: 8 samples, 6 predicted 0, 2 predicted 1.
	// Actual class 1: 2 samples, 1 predicted 0, 1 predicted 1.
	cm, err := NewConfusionMatrix(2)
	if err != nil {
		t.Fatalf("failed to build matrix: %v", err)
	}
	record := func(predicted, actual, times int) {
		for i := 0; i < times; i++ {
			if err := cm.Add(predicted, actual); err != nil {
				t.Fatalf("add failed: %v", err)
			}
		}
	}
	record(0, 0, 6)
	record(1, 0, 2)
	record(0, 1, 1)
	record(1, 1, 1)

	if got := cm.Accuracy(); !almostEqual(got, 0.7) {
		t.Errorf("accuracy: got %f, want 0.7", got)
	}
	if got, want := cm.PrecisionForClass(0), 6.0/7.0; !almostEqual(got, want) {
		t.Errorf("precision class 0: got %f, want %f", got, want)
	}
	if got, want := cm.RecallForClass(0), 6.0/8.0; !almostEqual(got, want) {
		t.Errorf("recall class 0: got %f, want %f", got, want)
	}
	if got, want := cm.PrecisionForClass(1), 1.0/3.0; !almostEqual(got, want) {
		t.Errorf("precision class 1: got %f, want %f", got, want)
	}
	if got, want := cm.RecallForClass(1), 1.0/2.0; !almostEqual(got, want) {
		t.Errorf("recall class 1: got %f, want %f", got, want)
	}

	// Support weighting: class 0 carries 8 of 10 observations.
	wantPrecision := (8.0*(6.0/7.0) + 2.0*(1.0/3.0)) / 10.0
	if got := cm.WeightedPrecision(); !almostEqual(got, wantPrecision) {
		t.Errorf("weighted precision: got %f, want %f", got, wantPrecision)
	}
	wantRecall := (8.0*(6.0/8.0) + 2.0*(1.0/2.0)) / 10.0
	if got := cm.WeightedRecall(); !almostEqual(got, wantRecall) {
		t.Errorf("weighted recall: got %f, want %f", got, wantRecall)
	}
}

func TestConfusionMatrixDegenerateClasses(t *testing.T) {
	cm, err := NewConfusionMatrix(3)
	if err != nil {
		t.Fatalf("failed to build matrix: %v", err)
	}
	// Class 2 never appears as actual or predicted.
	cm.Add(0, 0)
	cm.Add(1, 1)

	if got := cm.PrecisionForClass(2); got != 0 {
		t.Errorf("precision for unpredicted class: got %f, want 0", got)
	}
	if got := cm.RecallForClass(2); got != 0 {
		t.Errorf("recall for unsupported class: got %f, want 0", got)
	}
	if got := cm.F1ForClass(2); got != 0 {
		t.Errorf("f1 for absent class: got %f, want 0", got)
	}
	// Zero-support classes contribute nothing to the weighted averages.
	if got := cm.WeightedF1(); got != 1.0 {
		t.Errorf("weighted f1: got %f, want 1.0", got)
	}
}

func TestConfusionMatrixRejectsOutOfRange(t *testing.T) {
	cm, _ := NewConfusionMatrix(2)
	if err := cm.Add(2, 0); err == nil {
		t.Error("expected error for out-of-range prediction")
	}
	if err := cm.Add(0, -1); err == nil {
		t.Error("expected error for negative actual class")
	}
	if _, err := NewConfusionMatrix(0); err == nil {
		t.Error("expected error for zero classes")
	}
}

func TestBuildReportAggregates(t *testing.T) {
	perfect, _ := NewConfusionMatrix(2)
	perfect.Add(0, 0)
	perfect.Add(1, 1)

	half, _ := NewConfusionMatrix(2)
	half.Add(0, 0)
	half.Add(0, 1)

	third, _ := NewConfusionMatrix(2)
	third.Add(0, 0)
	third.Add(1, 1)

	report, err := BuildReport([]string{"age", "gender", "accent"},
		[]*ConfusionMatrix{perfect, half, third})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if len(report.Attributes) != 3 {
		t.Fatalf("got %d attributes, want 3", len(report.Attributes))
	}
	if report.Attributes[0].Name != "age" {
		t.Errorf("first attribute name: got %q", report.Attributes[0].Name)
	}

	// Aggregate accuracy is the plain mean of the three: (1 + 0.5 + 1) / 3.
	want := (1.0 + 0.5 + 1.0) / 3.0
	if !almostEqual(report.AggregateAccuracy, want) {
		t.Errorf("aggregate accuracy: got %f, want %f", report.AggregateAccuracy, want)
	}
}

func TestBuildReportRejectsMismatch(t *testing.T) {
	cm, _ := NewConfusionMatrix(2)
	if _, err := BuildReport([]string{"age", "gender"}, []*ConfusionMatrix{cm}); err == nil {
		t.Error("expected error for name/matrix count mismatch")
	}
	if _, err := BuildReport(nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
}
