// Package nn provides the neural network layers behind the voice-trait
// classifier: a minimal layer set, two convolutional backbones, and the
// three-headed classifier wrapper.
package nn

import (
	"github.com/Akalya1854/voice-traits/tensor"
)

// NamedParameter pairs a learnable tensor with a stable name used by the
// checkpoint format.
type NamedParameter struct {
	Name   string
	Tensor *tensor.Tensor
}

// NamedBuffer is non-learnable state that still belongs in a checkpoint,
// such as batch-norm running statistics. The slice is aliased, not copied,
// so loading can write back into the owning layer.
type NamedBuffer struct {
	Name string
	Data []float32
}

// Module is the building block of the network. SetTraining toggles
// behavior that differs between training and evaluation, such as dropout
// and batch-norm statistics.
type Module interface {
	Forward(input *tensor.Tensor) *tensor.Tensor
	Parameters() []*tensor.Tensor
	NamedParameters() []NamedParameter
	SetTraining(training bool)
}

// BufferModule is implemented by modules that carry non-learnable
// checkpoint state.
type BufferModule interface {
	NamedBuffers() []NamedBuffer
}

// Sequential chains modules, feeding each output to the next.
type Sequential struct {
	name    string
	modules []Module
}

func NewSequential(name string, modules ...Module) *Sequential {
	return &Sequential{name: name, modules: modules}
}

func (s *Sequential) Forward(input *tensor.Tensor) *tensor.Tensor {
	out := input
	for _, m := range s.modules {
		out = m.Forward(out)
	}
	return out
}

func (s *Sequential) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

func (s *Sequential) NamedParameters() []NamedParameter {
	var params []NamedParameter
	for _, m := range s.modules {
		for _, p := range m.NamedParameters() {
			params = append(params, NamedParameter{
				Name:   s.name + "." + p.Name,
				Tensor: p.Tensor,
			})
		}
	}
	return params
}

func (s *Sequential) NamedBuffers() []NamedBuffer {
	var buffers []NamedBuffer
	for _, m := range s.modules {
		if bm, ok := m.(BufferModule); ok {
			for _, b := range bm.NamedBuffers() {
				buffers = append(buffers, NamedBuffer{
					Name: s.name + "." + b.Name,
					Data: b.Data,
				})
			}
		}
	}
	return buffers
}

func (s *Sequential) SetTraining(training bool) {
	for _, m := range s.modules {
		m.SetTraining(training)
	}
}
