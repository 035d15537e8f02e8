package nn

import (
	"fmt"
	"math/rand"

	"github.com/Akalya1854/voice-traits/tensor"
)

// Linear applies y = xW + b over the last dimension.
type Linear struct {
	name   string
	Weight *tensor.Tensor
	Bias   *tensor.Tensor
}

// NewLinear builds a fully connected layer with He-initialized weights.
func NewLinear(name string, inFeatures, outFeatures int, rng *rand.Rand) (*Linear, error) {
	weight, err := tensor.KaimingNormal([]int{inFeatures, outFeatures}, inFeatures, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize weight for %s: %v", name, err)
	}
	weight.SetRequiresGrad(true)

	bias, err := tensor.Zeros([]int{outFeatures}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bias for %s: %v", name, err)
	}
	bias.SetRequiresGrad(true)

	return &Linear{name: name, Weight: weight, Bias: bias}, nil
}

func (l *Linear) Forward(input *tensor.Tensor) *tensor.Tensor {
	out := tensor.MatMulAutograd(input, l.Weight)
	return tensor.AddAutograd(out, l.Bias)
}

func (l *Linear) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{l.Weight, l.Bias}
}

func (l *Linear) NamedParameters() []NamedParameter {
	return []NamedParameter{
		{Name: l.name + ".weight", Tensor: l.Weight},
		{Name: l.name + ".bias", Tensor: l.Bias},
	}
}

func (l *Linear) SetTraining(bool) {}

// ReLU applies the rectified linear unit element-wise.
type ReLU struct{}

func NewReLU() *ReLU {
	return &ReLU{}
}

func (r *ReLU) Forward(input *tensor.Tensor) *tensor.Tensor {
	return tensor.ReLUAutograd(input)
}

func (r *ReLU) Parameters() []*tensor.Tensor      { return nil }
func (r *ReLU) NamedParameters() []NamedParameter { return nil }
func (r *ReLU) SetTraining(bool)                  {}

// Conv2D applies a 2D convolution over NCHW input.
type Conv2D struct {
	name    string
	Weight  *tensor.Tensor
	Bias    *tensor.Tensor
	stride  int
	padding int
}

func NewConv2D(name string, inChannels, outChannels, kernel, stride, padding int, rng *rand.Rand) (*Conv2D, error) {
	fanIn := inChannels * kernel * kernel
	weight, err := tensor.KaimingNormal([]int{outChannels, inChannels, kernel, kernel}, fanIn, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize weight for %s: %v", name, err)
	}
	weight.SetRequiresGrad(true)

	bias, err := tensor.Zeros([]int{outChannels}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bias for %s: %v", name, err)
	}
	bias.SetRequiresGrad(true)

	return &Conv2D{name: name, Weight: weight, Bias: bias, stride: stride, padding: padding}, nil
}

func (c *Conv2D) Forward(input *tensor.Tensor) *tensor.Tensor {
	return tensor.Conv2DAutograd(input, c.Weight, c.Bias, c.stride, c.padding)
}

func (c *Conv2D) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{c.Weight, c.Bias}
}

func (c *Conv2D) NamedParameters() []NamedParameter {
	return []NamedParameter{
		{Name: c.name + ".weight", Tensor: c.Weight},
		{Name: c.name + ".bias", Tensor: c.Bias},
	}
}

func (c *Conv2D) SetTraining(bool) {}

// MaxPool2D downsamples NCHW input by taking the max over square windows.
type MaxPool2D struct {
	kernel int
	stride int
}

func NewMaxPool2D(kernel, stride int) *MaxPool2D {
	return &MaxPool2D{kernel: kernel, stride: stride}
}

func (m *MaxPool2D) Forward(input *tensor.Tensor) *tensor.Tensor {
	return tensor.MaxPool2DAutograd(input, m.kernel, m.stride)
}

func (m *MaxPool2D) Parameters() []*tensor.Tensor      { return nil }
func (m *MaxPool2D) NamedParameters() []NamedParameter { return nil }
func (m *MaxPool2D) SetTraining(bool)                  {}

// GlobalAvgPool collapses NCHW spatial planes to per-channel means,
// producing [N, C].
type GlobalAvgPool struct{}

func NewGlobalAvgPool() *GlobalAvgPool {
	return &GlobalAvgPool{}
}

func (g *GlobalAvgPool) Forward(input *tensor.Tensor) *tensor.Tensor {
	return tensor.GlobalAvgPoolAutograd(input)
}

func (g *GlobalAvgPool) Parameters() []*tensor.Tensor      { return nil }
func (g *GlobalAvgPool) NamedParameters() []NamedParameter { return nil }
func (g *GlobalAvgPool) SetTraining(bool)                  {}

// Flatten reshapes NCHW input to [N, C*H*W].
type Flatten struct{}

func NewFlatten() *Flatten {
	return &Flatten{}
}

func (f *Flatten) Forward(input *tensor.Tensor) *tensor.Tensor {
	batch := input.Shape[0]
	return tensor.ReshapeAutograd(input, []int{batch, -1})
}

func (f *Flatten) Parameters() []*tensor.Tensor      { return nil }
func (f *Flatten) NamedParameters() []NamedParameter { return nil }
func (f *Flatten) SetTraining(bool)                  {}

// Dropout zeroes activations with probability p during training and is a
// no-op during evaluation.
type Dropout struct {
	p        float64
	training bool
	rng      *rand.Rand
}

func NewDropout(p float64, rng *rand.Rand) *Dropout {
	return &Dropout{p: p, rng: rng}
}

func (d *Dropout) Forward(input *tensor.Tensor) *tensor.Tensor {
	if !d.training || d.p <= 0 {
		return input
	}
	return tensor.DropoutAutograd(input, d.p, d.rng)
}

func (d *Dropout) Parameters() []*tensor.Tensor      { return nil }
func (d *Dropout) NamedParameters() []NamedParameter { return nil }

func (d *Dropout) SetTraining(training bool) {
	d.training = training
}
