package training

import (
	"math"
	"testing"

	"github.com/Akalya1854/voice-traits/tensor"
)

func paramWithGrad(t *testing.T, values, grads []float32) *tensor.Tensor {
	t.Helper()
	param, err := tensor.NewTensor([]int{len(values)}, tensor.Float32, values)
	if err != nil {
		t.Fatalf("failed to build parameter: %v", err)
	}
	param.SetRequiresGrad(true)

	grad, err := tensor.NewTensor([]int{len(grads)}, tensor.Float32, grads)
	if err != nil {
		t.Fatalf("failed to build gradient: %v", err)
	}
	if err := param.Backward(grad); err != nil {
		t.Fatalf("failed to seed gradient: %v", err)
	}
	return param
}

func TestSGDStep(t *testing.T) {
	param := paramWithGrad(t, []float32{1.0, -2.0}, []float32{0.5, -0.5})
	sgd := NewSGD([]*tensor.Tensor{param}, 0.1, 0, 0)

	if err := sgd.Step(); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	data := param.Data.([]float32)
	want := []float32{0.95, -1.95}
	for i, w := range want {
		if math.Abs(float64(data[i]-w)) > 1e-6 {
			t.Errorf("param[%d]: got %f, want %f", i, data[i], w)
		}
	}
}

func TestSGDWeightDecay(t *testing.T) {
	param := paramWithGrad(t, []float32{1.0}, []float32{0.5})
	sgd := NewSGD([]*tensor.Tensor{param}, 0.1, 0, 0.1)

	if err := sgd.Step(); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	// update = grad + wd*param = 0.5 + 0.1 = 0.6, param = 1 - 0.1*0.6.
	got := param.Data.([]float32)[0]
	if math.Abs(float64(got)-0.94) > 1e-6 {
		t.Errorf("got %f, want 0.94", got)
	}
}

func TestSGDMomentumAccumulates(t *testing.T) {
	param := paramWithGrad(t, []float32{0}, []float32{1})
	sgd := NewSGD([]*tensor.Tensor{param}, 0.1, 0.9, 0)

	if err := sgd.Step(); err != nil {
		t.Fatalf("first step failed: %v", err)
	}
	first := param.Data.([]float32)[0]

	// Same gradient again: velocity grows, so the second step moves further.
	sgd.ZeroGrad()
	grad, _ := tensor.NewTensor([]int{1}, tensor.Float32, []float32{1})
	if err := param.Backward(grad); err != nil {
		t.Fatalf("failed to reseed gradient: %v", err)
	}
	if err := sgd.Step(); err != nil {
		t.Fatalf("second step failed: %v", err)
	}
	second := param.Data.([]float32)[0]

	if math.Abs(float64(first)+0.1) > 1e-6 {
		t.Errorf("first step: got %f, want -0.1", first)
	}
	delta := float64(second - first)
	if math.Abs(delta+0.19) > 1e-6 {
		t.Errorf("second step delta: got %f, want -0.19", delta)
	}
}

func TestAdamFirstStepMagnitude(t *testing.T) {
	// With bias correction the first Adam step is approximately lr in the
	// direction opposing the gradient, regardless of gradient magnitude.
	tests := []struct {
		name string
		grad float32
	}{
		{"small gradient", 0.001},
		{"unit gradient", 1.0},
		{"large gradient", 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param := paramWithGrad(t, []float32{1.0}, []float32{tt.grad})
			adam := NewAdam([]*tensor.Tensor{param}, 0.01, 0, 0, 0, 0)

			if err := adam.Step(); err != nil {
				t.Fatalf("step failed: %v", err)
			}

			got := param.Data.([]float32)[0]
			if math.Abs(float64(got)-0.99) > 1e-4 {
				t.Errorf("got %f, want approximately 0.99", got)
			}
		})
	}
}

func TestAdamSkipsParamsWithoutGrad(t *testing.T) {
	param, err := tensor.NewTensor([]int{2}, tensor.Float32, []float32{1, 2})
	if err != nil {
		t.Fatalf("failed to build parameter: %v", err)
	}
	param.SetRequiresGrad(true)

	adam := NewAdam([]*tensor.Tensor{param}, 0.01, 0, 0, 0, 0)
	if err := adam.Step(); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	data := param.Data.([]float32)
	if data[0] != 1 || data[1] != 2 {
		t.Errorf("parameter without gradient was modified: %v", data)
	}
}

func TestOptimizerZeroGrad(t *testing.T) {
	param := paramWithGrad(t, []float32{1}, []float32{1})
	adam := NewAdam([]*tensor.Tensor{param}, 0.01, 0, 0, 0, 0)

	adam.ZeroGrad()
	if grad := param.Grad(); grad != nil {
		data := grad.Data.([]float32)
		for i, g := range data {
			if g != 0 {
				t.Errorf("grad[%d]: got %f after ZeroGrad, want 0", i, g)
			}
		}
	}
}

func TestOptimizerLearningRateAccessors(t *testing.T) {
	adam := NewAdam(nil, 0.01, 0, 0, 0, 0)
	if got := adam.GetLR(); got != 0.01 {
		t.Errorf("GetLR: got %f, want 0.01", got)
	}
	adam.SetLR(0.005)
	if got := adam.GetLR(); got != 0.005 {
		t.Errorf("after SetLR: got %f, want 0.005", got)
	}
}
