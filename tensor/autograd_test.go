package tensor

import (
	"math/rand"
	"testing"
)

func requireGradTensor(t *testing.T, shape []int, data []float32) *Tensor {
	t.Helper()
	tt, err := NewTensor(shape, Float32, data)
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}
	tt.SetRequiresGrad(true)
	return tt
}

func TestAddBackward(t *testing.T) {
	a := requireGradTensor(t, []int{2}, []float32{1, 2})
	b := requireGradTensor(t, []int{2}, []float32{3, 4})

	out := AddAutograd(a, b)
	grad, _ := NewTensor([]int{2}, Float32, []float32{1, 1})
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	for i, g := range a.Grad().Data.([]float32) {
		if !almostEqual(g, 1) {
			t.Errorf("grad a[%d] = %f, want 1", i, g)
		}
	}
	for i, g := range b.Grad().Data.([]float32) {
		if !almostEqual(g, 1) {
			t.Errorf("grad b[%d] = %f, want 1", i, g)
		}
	}
}

func TestBroadcastAddBackwardReducesBias(t *testing.T) {
	x := requireGradTensor(t, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	bias := requireGradTensor(t, []int{3}, []float32{0, 0, 0})

	out := AddAutograd(x, bias)
	grad, _ := Ones([]int{2, 3}, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	// Bias gradient sums over the batch dimension.
	for i, g := range bias.Grad().Data.([]float32) {
		if !almostEqual(g, 2) {
			t.Errorf("grad bias[%d] = %f, want 2", i, g)
		}
	}
}

func TestMulBackward(t *testing.T) {
	a := requireGradTensor(t, []int{2}, []float32{2, 3})
	b := requireGradTensor(t, []int{2}, []float32{5, 7})

	out := MulAutograd(a, b)
	grad, _ := Ones([]int{2}, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	wantA := []float32{5, 7}
	wantB := []float32{2, 3}
	for i, g := range a.Grad().Data.([]float32) {
		if !almostEqual(g, wantA[i]) {
			t.Errorf("grad a[%d] = %f, want %f", i, g, wantA[i])
		}
	}
	for i, g := range b.Grad().Data.([]float32) {
		if !almostEqual(g, wantB[i]) {
			t.Errorf("grad b[%d] = %f, want %f", i, g, wantB[i])
		}
	}
}

func TestMatMulBackward(t *testing.T) {
	a := requireGradTensor(t, []int{1, 2}, []float32{1, 2})
	w := requireGradTensor(t, []int{2, 2}, []float32{1, 0, 0, 1})

	out := MatMulAutograd(a, w)
	grad, _ := NewTensor([]int{1, 2}, Float32, []float32{1, 1})
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	// dL/dA = grad x W^T = [1 1] for identity W.
	for i, g := range a.Grad().Data.([]float32) {
		if !almostEqual(g, 1) {
			t.Errorf("grad a[%d] = %f, want 1", i, g)
		}
	}
	// dL/dW = A^T x grad = [[1 1] [2 2]].
	wantW := []float32{1, 1, 2, 2}
	for i, g := range w.Grad().Data.([]float32) {
		if !almostEqual(g, wantW[i]) {
			t.Errorf("grad w[%d] = %f, want %f", i, g, wantW[i])
		}
	}
}

func TestReLUBackwardMasksNegatives(t *testing.T) {
	x := requireGradTensor(t, []int{4}, []float32{-2, -0.5, 0.5, 2})

	out := ReLUAutograd(x)
	grad, _ := Ones([]int{4}, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	want := []float32{0, 0, 1, 1}
	for i, g := range x.Grad().Data.([]float32) {
		if !almostEqual(g, want[i]) {
			t.Errorf("grad[%d] = %f, want %f", i, g, want[i])
		}
	}
}

func TestChainedBackwardAccumulates(t *testing.T) {
	x := requireGradTensor(t, []int{2}, []float32{1, 2})

	// y = x + x should give dL/dx = 2.
	out := AddAutograd(x, x)
	grad, _ := Ones([]int{2}, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	for i, g := range x.Grad().Data.([]float32) {
		if !almostEqual(g, 2) {
			t.Errorf("grad[%d] = %f, want 2", i, g)
		}
	}
}

func TestConv2DForwardShape(t *testing.T) {
	tests := []struct {
		name            string
		h, w, k         int
		stride, padding int
		wantH, wantW    int
	}{
		{"same padding", 8, 8, 3, 1, 1, 8, 8},
		{"no padding", 8, 8, 3, 1, 0, 6, 6},
		{"stride 2", 8, 8, 3, 2, 1, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, _ := Ones([]int{1, 1, tt.h, tt.w}, Float32)
			weight, _ := Ones([]int{2, 1, tt.k, tt.k}, Float32)
			out := Conv2DAutograd(input, weight, nil, tt.stride, tt.padding)
			if out.Shape[2] != tt.wantH || out.Shape[3] != tt.wantW {
				t.Errorf("output spatial %dx%d, want %dx%d", out.Shape[2], out.Shape[3], tt.wantH, tt.wantW)
			}
			if out.Shape[1] != 2 {
				t.Errorf("output channels = %d, want 2", out.Shape[1])
			}
		})
	}
}

func TestConv2DBackwardGradientFlow(t *testing.T) {
	input := requireGradTensor(t, []int{1, 1, 3, 3}, []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	weight := requireGradTensor(t, []int{1, 1, 2, 2}, []float32{1, 0, 0, 1})

	out := Conv2DAutograd(input, weight, nil, 1, 0)
	grad, _ := Ones(out.Shape, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	if input.Grad() == nil || weight.Grad() == nil {
		t.Fatal("expected gradients on both input and weight")
	}
	// Weight gradient sums the input windows: top-left taps see {1,2,4,5}.
	wGrad := weight.Grad().Data.([]float32)
	if !almostEqual(wGrad[0], 1+2+4+5) {
		t.Errorf("weight grad[0] = %f, want 12", wGrad[0])
	}
}

func TestMaxPool2DRoutesGradToMax(t *testing.T) {
	input := requireGradTensor(t, []int{1, 1, 2, 2}, []float32{1, 5, 3, 2})

	out := MaxPool2DAutograd(input, 2, 2)
	if got, _ := out.At(0, 0, 0, 0); !almostEqual(got, 5) {
		t.Errorf("pooled value = %f, want 5", got)
	}

	grad, _ := Ones(out.Shape, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	want := []float32{0, 1, 0, 0}
	for i, g := range input.Grad().Data.([]float32) {
		if !almostEqual(g, want[i]) {
			t.Errorf("grad[%d] = %f, want %f", i, g, want[i])
		}
	}
}

func TestGlobalAvgPool(t *testing.T) {
	input := requireGradTensor(t, []int{1, 2, 2, 2}, []float32{
		1, 2, 3, 4, // channel 0
		10, 20, 30, 40, // channel 1
	})

	out := GlobalAvgPoolAutograd(input)
	if out.Shape[0] != 1 || out.Shape[1] != 2 {
		t.Fatalf("shape = %v, want [1 2]", out.Shape)
	}
	data := out.Data.([]float32)
	if !almostEqual(data[0], 2.5) || !almostEqual(data[1], 25) {
		t.Errorf("pooled = %v, want [2.5 25]", data)
	}

	grad, _ := Ones(out.Shape, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	for i, g := range input.Grad().Data.([]float32) {
		if !almostEqual(g, 0.25) {
			t.Errorf("grad[%d] = %f, want 0.25", i, g)
		}
	}
}

func TestDropoutMaskConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	input := requireGradTensor(t, []int{100}, func() []float32 {
		d := make([]float32, 100)
		for i := range d {
			d[i] = 1
		}
		return d
	}())

	out := DropoutAutograd(input, 0.5, rng)
	grad, _ := Ones([]int{100}, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	// Forward zeros and backward zeros must coincide.
	outData := out.Data.([]float32)
	gradData := input.Grad().Data.([]float32)
	for i := range outData {
		if (outData[i] == 0) != (gradData[i] == 0) {
			t.Errorf("position %d: forward %f but grad %f", i, outData[i], gradData[i])
		}
	}
}

func TestBatchNorm1DNormalizes(t *testing.T) {
	input := requireGradTensor(t, []int{4, 1}, []float32{1, 2, 3, 4})
	gamma := requireGradTensor(t, []int{1}, []float32{1})
	beta := requireGradTensor(t, []int{1}, []float32{0})

	out, mean, variance := BatchNorm1DAutograd(input, gamma, beta, 1e-5)
	if !almostEqual(mean[0], 2.5) {
		t.Errorf("batch mean = %f, want 2.5", mean[0])
	}
	if !almostEqual(variance[0], 1.25) {
		t.Errorf("batch variance = %f, want 1.25", variance[0])
	}

	// Normalized output should itself have near-zero mean.
	var sum float32
	for _, v := range out.Data.([]float32) {
		sum += v
	}
	if !almostEqual(sum, 0) {
		t.Errorf("normalized output sums to %f, want 0", sum)
	}

	grad, _ := Ones([]int{4, 1}, Float32)
	if err := out.Backward(grad); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	// Beta gradient is the plain gradient sum.
	if g := beta.Grad().Data.([]float32)[0]; !almostEqual(g, 4) {
		t.Errorf("beta grad = %f, want 4", g)
	}
}
