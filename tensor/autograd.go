package tensor

import (
	"fmt"
)

func attachCreator(out *Tensor, op Operation, inputs ...*Tensor) {
	needsGrad := false
	for _, in := range inputs {
		if in.requiresGrad || in.creator != nil {
			needsGrad = true
			break
		}
	}
	if needsGrad {
		out.creator = op
		out.requiresGrad = true
	}
}

// AddOp implements element-wise addition with broadcasting.
type AddOp struct {
	a, b *Tensor
}

func (op *AddOp) Forward(inputs ...*Tensor) *Tensor {
	op.a, op.b = inputs[0], inputs[1]
	out, err := Add(op.a, op.b)
	if err != nil {
		panic(fmt.Sprintf("AddOp forward failed: %v", err))
	}
	attachCreator(out, op, op.a, op.b)
	return out
}

func (op *AddOp) Backward(gradOut *Tensor) []*Tensor {
	gradA, err := reduceGradientToShape(gradOut, op.a.Shape)
	if err != nil {
		panic(fmt.Sprintf("AddOp backward failed: %v", err))
	}
	gradB, err := reduceGradientToShape(gradOut, op.b.Shape)
	if err != nil {
		panic(fmt.Sprintf("AddOp backward failed: %v", err))
	}
	return []*Tensor{gradA, gradB}
}

func (op *AddOp) Inputs() []*Tensor {
	return []*Tensor{op.a, op.b}
}

// SubOp implements element-wise subtraction with broadcasting.
type SubOp struct {
	a, b *Tensor
}

func (op *SubOp) Forward(inputs ...*Tensor) *Tensor {
	op.a, op.b = inputs[0], inputs[1]
	out, err := Sub(op.a, op.b)
	if err != nil {
		panic(fmt.Sprintf("SubOp forward failed: %v", err))
	}
	attachCreator(out, op, op.a, op.b)
	return out
}

func (op *SubOp) Backward(gradOut *Tensor) []*Tensor {
	gradA, err := reduceGradientToShape(gradOut, op.a.Shape)
	if err != nil {
		panic(fmt.Sprintf("SubOp backward failed: %v", err))
	}
	negated, err := MulScalar(gradOut, -1)
	if err != nil {
		panic(fmt.Sprintf("SubOp backward failed: %v", err))
	}
	gradB, err := reduceGradientToShape(negated, op.b.Shape)
	if err != nil {
		panic(fmt.Sprintf("SubOp backward failed: %v", err))
	}
	return []*Tensor{gradA, gradB}
}

func (op *SubOp) Inputs() []*Tensor {
	return []*Tensor{op.a, op.b}
}

// MulOp implements element-wise multiplication with broadcasting.
type MulOp struct {
	a, b *Tensor
}

func (op *MulOp) Forward(inputs ...*Tensor) *Tensor {
	op.a, op.b = inputs[0], inputs[1]
	out, err := Mul(op.a, op.b)
	if err != nil {
		panic(fmt.Sprintf("MulOp forward failed: %v", err))
	}
	attachCreator(out, op, op.a, op.b)
	return out
}

func (op *MulOp) Backward(gradOut *Tensor) []*Tensor {
	rawA, err := Mul(gradOut, op.b)
	if err != nil {
		panic(fmt.Sprintf("MulOp backward failed: %v", err))
	}
	gradA, err := reduceGradientToShape(rawA, op.a.Shape)
	if err != nil {
		panic(fmt.Sprintf("MulOp backward failed: %v", err))
	}
	rawB, err := Mul(gradOut, op.a)
	if err != nil {
		panic(fmt.Sprintf("MulOp backward failed: %v", err))
	}
	gradB, err := reduceGradientToShape(rawB, op.b.Shape)
	if err != nil {
		panic(fmt.Sprintf("MulOp backward failed: %v", err))
	}
	return []*Tensor{gradA, gradB}
}

func (op *MulOp) Inputs() []*Tensor {
	return []*Tensor{op.a, op.b}
}

// MatMulOp implements 2D matrix multiplication.
type MatMulOp struct {
	a, b *Tensor
}

func (op *MatMulOp) Forward(inputs ...*Tensor) *Tensor {
	op.a, op.b = inputs[0], inputs[1]
	out, err := MatMul(op.a, op.b)
	if err != nil {
		panic(fmt.Sprintf("MatMulOp forward failed: %v", err))
	}
	attachCreator(out, op, op.a, op.b)
	return out
}

func (op *MatMulOp) Backward(gradOut *Tensor) []*Tensor {
	bT, err := Transpose(op.b)
	if err != nil {
		panic(fmt.Sprintf("MatMulOp backward failed: %v", err))
	}
	gradA, err := MatMul(gradOut, bT)
	if err != nil {
		panic(fmt.Sprintf("MatMulOp backward failed: %v", err))
	}
	aT, err := Transpose(op.a)
	if err != nil {
		panic(fmt.Sprintf("MatMulOp backward failed: %v", err))
	}
	gradB, err := MatMul(aT, gradOut)
	if err != nil {
		panic(fmt.Sprintf("MatMulOp backward failed: %v", err))
	}
	return []*Tensor{gradA, gradB}
}

func (op *MatMulOp) Inputs() []*Tensor {
	return []*Tensor{op.a, op.b}
}

// ReLUOp implements the rectified linear unit.
type ReLUOp struct {
	input *Tensor
}

func (op *ReLUOp) Forward(inputs ...*Tensor) *Tensor {
	op.input = inputs[0]
	out, err := ReLU(op.input)
	if err != nil {
		panic(fmt.Sprintf("ReLUOp forward failed: %v", err))
	}
	attachCreator(out, op, op.input)
	return out
}

func (op *ReLUOp) Backward(gradOut *Tensor) []*Tensor {
	src := op.input.Data.([]float32)
	gradData := gradOut.Data.([]float32)
	out := make([]float32, len(gradData))
	for i := range out {
		if src[i] > 0 {
			out[i] = gradData[i]
		}
	}
	grad, err := NewTensor(op.input.Shape, Float32, out)
	if err != nil {
		panic(fmt.Sprintf("ReLUOp backward failed: %v", err))
	}
	return []*Tensor{grad}
}

func (op *ReLUOp) Inputs() []*Tensor {
	return []*Tensor{op.input}
}

// ReshapeOp reinterprets a tensor's shape without touching data.
type ReshapeOp struct {
	input    *Tensor
	newShape []int
}

func (op *ReshapeOp) Forward(inputs ...*Tensor) *Tensor {
	op.input = inputs[0]
	out, err := op.input.Reshape(op.newShape)
	if err != nil {
		panic(fmt.Sprintf("ReshapeOp forward failed: %v", err))
	}
	attachCreator(out, op, op.input)
	return out
}

func (op *ReshapeOp) Backward(gradOut *Tensor) []*Tensor {
	grad, err := gradOut.Reshape(op.input.Shape)
	if err != nil {
		panic(fmt.Sprintf("ReshapeOp backward failed: %v", err))
	}
	return []*Tensor{grad}
}

func (op *ReshapeOp) Inputs() []*Tensor {
	return []*Tensor{op.input}
}

// AddAutograd performs addition and records the op on the graph.
func AddAutograd(a, b *Tensor) *Tensor {
	op := &AddOp{}
	return op.Forward(a, b)
}

// SubAutograd performs subtraction and records the op on the graph.
func SubAutograd(a, b *Tensor) *Tensor {
	op := &SubOp{}
	return op.Forward(a, b)
}

// MulAutograd performs element-wise multiplication and records the op on
// the graph.
func MulAutograd(a, b *Tensor) *Tensor {
	op := &MulOp{}
	return op.Forward(a, b)
}

// MatMulAutograd performs matrix multiplication and records the op on the
// graph.
func MatMulAutograd(a, b *Tensor) *Tensor {
	op := &MatMulOp{}
	return op.Forward(a, b)
}

// ReLUAutograd applies ReLU and records the op on the graph.
func ReLUAutograd(t *Tensor) *Tensor {
	op := &ReLUOp{}
	return op.Forward(t)
}

// ReshapeAutograd reshapes and records the op on the graph.
func ReshapeAutograd(t *Tensor, shape []int) *Tensor {
	op := &ReshapeOp{newShape: shape}
	return op.Forward(t)
}
