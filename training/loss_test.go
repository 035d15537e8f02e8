package training

import (
	"math"
	"testing"

	"github.com/Akalya1854/voice-traits/tensor"
)

func makeLabelBatch(t *testing.T, labels [][3]int32) *Batch {
	t.Helper()
	flat := make([]int32, 0, len(labels)*3)
	for _, triple := range labels {
		flat = append(flat, triple[0], triple[1], triple[2])
	}
	tens, err := tensor.NewTensor([]int{len(labels), 3}, tensor.Int32, flat)
	if err != nil {
		t.Fatalf("failed to build labels: %v", err)
	}
	return &Batch{Labels: tens, Size: len(labels)}
}

func TestCrossEntropyUniformLogits(t *testing.T) {
	tests := []struct {
		name       string
		numClasses int
	}{
		{"two classes", 2},
		{"three classes", 3},
		{"eight classes", 8},
	}

	ce := NewCrossEntropyLoss()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logits, err := tensor.Zeros([]int{4, tt.numClasses}, tensor.Float32)
			if err != nil {
				t.Fatalf("failed to build logits: %v", err)
			}
			target, err := tensor.NewTensor([]int{4}, tensor.Int32, []int32{0, 0, 0, 0})
			if err != nil {
				t.Fatalf("failed to build target: %v", err)
			}

			loss, err := ce.Forward(logits, target)
			if err != nil {
				t.Fatalf("forward failed: %v", err)
			}
			got, err := loss.Item()
			if err != nil {
				t.Fatalf("loss item failed: %v", err)
			}

			want := math.Log(float64(tt.numClasses))
			if math.Abs(float64(got)-want) > 1e-5 {
				t.Errorf("uniform logits loss: got %f, want %f", got, want)
			}
		})
	}
}

func TestCrossEntropyKnownValue(t *testing.T) {
	ce := NewCrossEntropyLoss()
	logits, err := tensor.NewTensor([]int{2, 2}, tensor.Float32,
		[]float32{1, 0, 0, 1})
	if err != nil {
		t.Fatalf("failed to build logits: %v", err)
	}
	target, err := tensor.NewTensor([]int{2}, tensor.Int32, []int32{0, 1})
	if err != nil {
		t.Fatalf("failed to build target: %v", err)
	}

	loss, err := ce.Forward(logits, target)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	got, err := loss.Item()
	if err != nil {
		t.Fatalf("loss item failed: %v", err)
	}

	// Both rows put logit 1 on the correct class: -log(e / (e + 1)).
	want := math.Log(1 + math.Exp(-1))
	if math.Abs(float64(got)-want) > 1e-5 {
		t.Errorf("got %f, want %f", got, want)
	}
}

func TestCrossEntropyBackward(t *testing.T) {
	ce := NewCrossEntropyLoss()
	logits, err := tensor.Zeros([]int{1, 2}, tensor.Float32)
	if err != nil {
		t.Fatalf("failed to build logits: %v", err)
	}
	target, err := tensor.NewTensor([]int{1}, tensor.Int32, []int32{0})
	if err != nil {
		t.Fatalf("failed to build target: %v", err)
	}

	grad, err := ce.Backward(logits, target)
	if err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	gradData := grad.Data.([]float32)
	want := []float32{-0.5, 0.5}
	for i, w := range want {
		if math.Abs(float64(gradData[i]-w)) > 1e-6 {
			t.Errorf("grad[%d]: got %f, want %f", i, gradData[i], w)
		}
	}
}

func TestCrossEntropyBackwardRowsSumToZero(t *testing.T) {
	ce := NewCrossEntropyLoss()
	logits, err := tensor.NewTensor([]int{3, 4}, tensor.Float32, []float32{
		2, -1, 0.5, 0,
		0, 0, 3, 1,
		-2, 1, 1, 2,
	})
	if err != nil {
		t.Fatalf("failed to build logits: %v", err)
	}
	target, err := tensor.NewTensor([]int{3}, tensor.Int32, []int32{0, 2, 3})
	if err != nil {
		t.Fatalf("failed to build target: %v", err)
	}

	grad, err := ce.Backward(logits, target)
	if err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	gradData := grad.Data.([]float32)

	for row := 0; row < 3; row++ {
		var sum float64
		for col := 0; col < 4; col++ {
			sum += float64(gradData[row*4+col])
		}
		if math.Abs(sum) > 1e-5 {
			t.Errorf("row %d gradient sums to %f, want 0", row, sum)
		}
	}
}

func TestCrossEntropyRejectsBadInputs(t *testing.T) {
	ce := NewCrossEntropyLoss()
	logits, _ := tensor.Zeros([]int{2, 3}, tensor.Float32)
	badTarget, _ := tensor.NewTensor([]int{2}, tensor.Int32, []int32{0, 3})
	if _, err := ce.Forward(logits, badTarget); err == nil {
		t.Error("expected error for out-of-range target class")
	}

	shortTarget, _ := tensor.NewTensor([]int{1}, tensor.Int32, []int32{0})
	if _, err := ce.Forward(logits, shortTarget); err == nil {
		t.Error("expected error for batch size mismatch")
	}
}

func TestMultiTaskLossSumsHeads(t *testing.T) {
	batch := makeLabelBatch(t, [][3]int32{{0, 1, 2}, {1, 0, 0}})

	age, _ := tensor.Zeros([]int{2, 3}, tensor.Float32)
	gender, _ := tensor.Zeros([]int{2, 2}, tensor.Float32)
	accent, _ := tensor.Zeros([]int{2, 4}, tensor.Float32)

	mt := NewMultiTaskLoss()
	total, err := mt.Forward(age, gender, accent, batch)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	want := math.Log(3) + math.Log(2) + math.Log(4)
	if math.Abs(float64(total)-want) > 1e-4 {
		t.Errorf("summed loss: got %f, want %f", total, want)
	}
}

func TestMultiTaskBackwardReachesSharedInput(t *testing.T) {
	// A shared tensor feeding all three heads must accumulate gradient
	// contributions from every head.
	shared, err := tensor.Zeros([]int{2, 4}, tensor.Float32)
	if err != nil {
		t.Fatalf("failed to build shared input: %v", err)
	}
	shared.SetRequiresGrad(true)

	wAge, _ := tensor.Zeros([]int{4, 3}, tensor.Float32)
	wGender, _ := tensor.Zeros([]int{4, 2}, tensor.Float32)
	wAccent, _ := tensor.Zeros([]int{4, 4}, tensor.Float32)
	for _, w := range []*tensor.Tensor{wAge, wGender, wAccent} {
		w.SetRequiresGrad(true)
	}

	age := tensor.MatMulAutograd(shared, wAge)
	gender := tensor.MatMulAutograd(shared, wGender)
	accent := tensor.MatMulAutograd(shared, wAccent)

	batch := makeLabelBatch(t, [][3]int32{{0, 0, 0}, {1, 1, 1}})
	mt := NewMultiTaskLoss()
	if err := mt.Backward(age, gender, accent, batch); err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	for i, w := range []*tensor.Tensor{wAge, wGender, wAccent} {
		if w.Grad() == nil {
			t.Errorf("head weight %d received no gradient", i)
		}
	}
	if shared.Grad() == nil {
		t.Fatal("shared input received no gradient")
	}
}
