package nn

import (
	"fmt"
	"math/rand"

	"github.com/Akalya1854/voice-traits/tensor"
)

// FeatureDim is the length of the feature vector both backbones emit.
const FeatureDim = 128

// ResidualBlock is a two-convolution block with an identity shortcut. When
// the block changes channel count or stride, the shortcut goes through a
// 1x1 projection so the shapes line up for the addition.
type ResidualBlock struct {
	conv1, conv2 *Conv2D
	project      *Conv2D
}

func NewResidualBlock(name string, inChannels, outChannels, stride int, rng *rand.Rand) (*ResidualBlock, error) {
	conv1, err := NewConv2D(name+".conv1", inChannels, outChannels, 3, stride, 1, rng)
	if err != nil {
		return nil, err
	}
	conv2, err := NewConv2D(name+".conv2", outChannels, outChannels, 3, 1, 1, rng)
	if err != nil {
		return nil, err
	}

	block := &ResidualBlock{conv1: conv1, conv2: conv2}
	if inChannels != outChannels || stride != 1 {
		project, err := NewConv2D(name+".project", inChannels, outChannels, 1, stride, 0, rng)
		if err != nil {
			return nil, err
		}
		block.project = project
	}
	return block, nil
}

func (b *ResidualBlock) Forward(input *tensor.Tensor) *tensor.Tensor {
	out := tensor.ReLUAutograd(b.conv1.Forward(input))
	out = b.conv2.Forward(out)

	shortcut := input
	if b.project != nil {
		shortcut = b.project.Forward(input)
	}
	return tensor.ReLUAutograd(tensor.AddAutograd(out, shortcut))
}

func (b *ResidualBlock) Parameters() []*tensor.Tensor {
	params := append(b.conv1.Parameters(), b.conv2.Parameters()...)
	if b.project != nil {
		params = append(params, b.project.Parameters()...)
	}
	return params
}

func (b *ResidualBlock) NamedParameters() []NamedParameter {
	params := append(b.conv1.NamedParameters(), b.conv2.NamedParameters()...)
	if b.project != nil {
		params = append(params, b.project.NamedParameters()...)
	}
	return params
}

func (b *ResidualBlock) SetTraining(bool) {}

// NewBackbone builds a feature extractor by identifier. Both variants take
// [B, 3, 64, 64] input and emit [B, FeatureDim] features. "resnet-mini"
// stacks residual blocks; "mobile" is a plain strided stack with a
// batch-normalized output, the cheaper option for CPU inference.
func NewBackbone(identifier string, rng *rand.Rand) (Module, error) {
	switch identifier {
	case "resnet-mini":
		return newResNetMini(rng)
	case "mobile":
		return newMobileBackbone(rng)
	default:
		return nil, fmt.Errorf("unknown backbone %q, want resnet-mini or mobile", identifier)
	}
}

func newResNetMini(rng *rand.Rand) (Module, error) {
	stem, err := NewConv2D("stem", 3, 16, 3, 1, 1, rng)
	if err != nil {
		return nil, err
	}
	block1, err := NewResidualBlock("block1", 16, 32, 2, rng)
	if err != nil {
		return nil, err
	}
	block2, err := NewResidualBlock("block2", 32, 64, 2, rng)
	if err != nil {
		return nil, err
	}
	block3, err := NewResidualBlock("block3", 64, FeatureDim, 2, rng)
	if err != nil {
		return nil, err
	}

	return NewSequential("resnet-mini",
		stem,
		NewReLU(),
		NewMaxPool2D(2, 2),
		block1,
		block2,
		block3,
		NewGlobalAvgPool(),
	), nil
}

func newMobileBackbone(rng *rand.Rand) (Module, error) {
	conv1, err := NewConv2D("conv1", 3, 32, 3, 2, 1, rng)
	if err != nil {
		return nil, err
	}
	conv2, err := NewConv2D("conv2", 32, 64, 3, 2, 1, rng)
	if err != nil {
		return nil, err
	}
	conv3, err := NewConv2D("conv3", 64, FeatureDim, 3, 2, 1, rng)
	if err != nil {
		return nil, err
	}
	norm, err := NewBatchNorm1D("norm", FeatureDim)
	if err != nil {
		return nil, err
	}

	return NewSequential("mobile",
		conv1,
		NewReLU(),
		conv2,
		NewReLU(),
		conv3,
		NewReLU(),
		NewGlobalAvgPool(),
		norm,
	), nil
}
