package nn

import (
	"fmt"

	"github.com/Akalya1854/voice-traits/tensor"
)

// BatchNorm1D normalizes [B, C] feature vectors. During training it uses
// batch statistics and maintains running estimates; during evaluation it
// uses the running estimates only.
type BatchNorm1D struct {
	name     string
	Gamma    *tensor.Tensor
	Beta     *tensor.Tensor
	training bool

	RunningMean []float32
	RunningVar  []float32
	momentum    float32
	eps         float32
}

func NewBatchNorm1D(name string, features int) (*BatchNorm1D, error) {
	gamma, err := tensor.Ones([]int{features}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gamma for %s: %v", name, err)
	}
	gamma.SetRequiresGrad(true)

	beta, err := tensor.Zeros([]int{features}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize beta for %s: %v", name, err)
	}
	beta.SetRequiresGrad(true)

	runningVar := make([]float32, features)
	for i := range runningVar {
		runningVar[i] = 1
	}

	return &BatchNorm1D{
		name:        name,
		Gamma:       gamma,
		Beta:        beta,
		RunningMean: make([]float32, features),
		RunningVar:  runningVar,
		momentum:    0.1,
		eps:         1e-5,
	}, nil
}

func (b *BatchNorm1D) Forward(input *tensor.Tensor) *tensor.Tensor {
	if b.training {
		out, batchMean, batchVar := tensor.BatchNorm1DAutograd(input, b.Gamma, b.Beta, b.eps)
		for c := range b.RunningMean {
			b.RunningMean[c] = (1-b.momentum)*b.RunningMean[c] + b.momentum*batchMean[c]
			b.RunningVar[c] = (1-b.momentum)*b.RunningVar[c] + b.momentum*batchVar[c]
		}
		return out
	}

	out, err := tensor.BatchNorm1DInference(input, b.Gamma, b.Beta, b.RunningMean, b.RunningVar, b.eps)
	if err != nil {
		panic(fmt.Sprintf("batch norm inference failed for %s: %v", b.name, err))
	}
	return out
}

func (b *BatchNorm1D) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{b.Gamma, b.Beta}
}

func (b *BatchNorm1D) NamedParameters() []NamedParameter {
	return []NamedParameter{
		{Name: b.name + ".gamma", Tensor: b.Gamma},
		{Name: b.name + ".beta", Tensor: b.Beta},
	}
}

func (b *BatchNorm1D) NamedBuffers() []NamedBuffer {
	return []NamedBuffer{
		{Name: b.name + ".running_mean", Data: b.RunningMean},
		{Name: b.name + ".running_var", Data: b.RunningVar},
	}
}

func (b *BatchNorm1D) SetTraining(training bool) {
	b.training = training
}
