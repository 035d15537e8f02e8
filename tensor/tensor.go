package tensor

import (
	"fmt"
)

type DType int

const (
	Float32 DType = iota
	Int32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "Float32"
	case Int32:
		return "Int32"
	default:
		return "Unknown"
	}
}

// Operation is implemented by every differentiable op in the autograd graph.
// Forward builds the output tensor and records the op as its creator;
// Backward maps the gradient of the output to gradients of each input, in
// the same order Inputs returns them.
type Operation interface {
	Forward(...*Tensor) *Tensor
	Backward(gradOut *Tensor) []*Tensor
	Inputs() []*Tensor
}

type Tensor struct {
	Shape        []int
	Strides      []int
	DType        DType
	Data         interface{}
	NumElems     int
	requiresGrad bool
	grad         *Tensor
	creator      Operation
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, dtype=%s, elements=%d)",
		t.Shape, t.DType, t.NumElems)
}

func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

func (t *Tensor) SetRequiresGrad(requires bool) {
	t.requiresGrad = requires
}

func (t *Tensor) Grad() *Tensor {
	return t.grad
}

// Backward propagates a gradient through the graph that produced t,
// accumulating into the grad of every reachable leaf tensor with
// requiresGrad set. grad must have the same shape as t; pass nil for a
// scalar tensor to seed with 1.
func (t *Tensor) Backward(grad *Tensor) error {
	if grad == nil {
		if t.NumElems != 1 {
			return fmt.Errorf("backward without explicit gradient requires a scalar tensor, got shape %v", t.Shape)
		}
		var err error
		grad, err = Ones(t.Shape, Float32)
		if err != nil {
			return fmt.Errorf("failed to seed gradient: %v", err)
		}
	}

	if !shapesEqual(grad.Shape, t.Shape) {
		return fmt.Errorf("gradient shape %v does not match tensor shape %v", grad.Shape, t.Shape)
	}

	return t.backward(grad)
}

func (t *Tensor) backward(grad *Tensor) error {
	if t.requiresGrad && t.creator == nil {
		// Leaf parameter: accumulate.
		if err := t.accumulateGrad(grad); err != nil {
			return err
		}
	}

	if t.creator == nil {
		return nil
	}

	inputGrads := t.creator.Backward(grad)
	inputs := t.creator.Inputs()
	if len(inputGrads) != len(inputs) {
		return fmt.Errorf("operation returned %d gradients for %d inputs", len(inputGrads), len(inputs))
	}

	for i, input := range inputs {
		if inputGrads[i] == nil {
			continue
		}
		if !input.requiresGrad && input.creator == nil {
			continue
		}
		if err := input.backward(inputGrads[i]); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tensor) accumulateGrad(grad *Tensor) error {
	if t.grad == nil {
		clone, err := grad.Clone()
		if err != nil {
			return fmt.Errorf("failed to initialize gradient: %v", err)
		}
		t.grad = clone
		return nil
	}

	if t.DType != Float32 {
		return fmt.Errorf("gradient accumulation only supports Float32 tensors")
	}

	dst := t.grad.Data.([]float32)
	src := grad.Data.([]float32)
	if len(dst) != len(src) {
		return fmt.Errorf("gradient size mismatch: %d vs %d", len(dst), len(src))
	}
	for i := range dst {
		dst[i] += src[i]
	}
	return nil
}

// DetachGraph drops the autograd history of t so a later Backward on a
// descendant does not traverse into stale graph nodes.
func (t *Tensor) DetachGraph() {
	t.creator = nil
}

func calculateStrides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}

	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func calculateNumElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}

	elements := 1
	for _, dim := range shape {
		elements *= dim
	}
	return elements
}

func validateShape(shape []int) error {
	for i, dim := range shape {
		if dim <= 0 {
			return fmt.Errorf("invalid shape: dimension %d has size %d, must be positive", i, dim)
		}
	}
	return nil
}
