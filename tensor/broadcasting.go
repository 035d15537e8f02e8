package tensor

import (
	"fmt"
)

// broadcastShapes resolves the output shape of an element-wise op between
// two shapes under NumPy broadcasting rules.
func broadcastShapes(a, b []int) ([]int, error) {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	out := make([]int, maxLen)
	for i := 0; i < maxLen; i++ {
		dimA, dimB := 1, 1
		if i < len(a) {
			dimA = a[len(a)-1-i]
		}
		if i < len(b) {
			dimB = b[len(b)-1-i]
		}

		switch {
		case dimA == dimB:
			out[maxLen-1-i] = dimA
		case dimA == 1:
			out[maxLen-1-i] = dimB
		case dimB == 1:
			out[maxLen-1-i] = dimA
		default:
			return nil, fmt.Errorf("shapes %v and %v are not broadcastable", a, b)
		}
	}
	return out, nil
}

// broadcastIndex maps a flat index in the broadcast output back to a flat
// index in a source tensor of the given shape.
func broadcastIndex(flatIdx int, outShape, srcShape, srcStrides []int) int {
	srcIdx := 0
	offset := len(outShape) - len(srcShape)
	remaining := flatIdx
	for i := len(outShape) - 1; i >= 0; i-- {
		coord := remaining % outShape[i]
		remaining /= outShape[i]
		srcDim := i - offset
		if srcDim < 0 {
			continue
		}
		if srcShape[srcDim] == 1 {
			continue
		}
		srcIdx += coord * srcStrides[srcDim]
	}
	return srcIdx
}

// broadcastBinary applies fn element-wise over two Float32 tensors with
// broadcasting, producing a fresh output tensor.
func broadcastBinary(a, b *Tensor, fn func(x, y float32) float32) (*Tensor, error) {
	if a.DType != Float32 || b.DType != Float32 {
		return nil, fmt.Errorf("element-wise ops require Float32 tensors, got %v and %v", a.DType, b.DType)
	}

	outShape, err := broadcastShapes(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}

	aData := a.Data.([]float32)
	bData := b.Data.([]float32)
	numElems := calculateNumElements(outShape)
	outData := make([]float32, numElems)

	if shapesEqual(a.Shape, b.Shape) {
		for i := range outData {
			outData[i] = fn(aData[i], bData[i])
		}
	} else {
		for i := range outData {
			ai := broadcastIndex(i, outShape, a.Shape, a.Strides)
			bi := broadcastIndex(i, outShape, b.Shape, b.Strides)
			outData[i] = fn(aData[ai], bData[bi])
		}
	}

	return NewTensor(outShape, Float32, outData)
}

// reduceGradientToShape sums a gradient over broadcast dimensions so it
// matches the shape of the original input.
func reduceGradientToShape(grad *Tensor, targetShape []int) (*Tensor, error) {
	if shapesEqual(grad.Shape, targetShape) {
		return grad, nil
	}

	gradData := grad.Data.([]float32)
	targetElems := calculateNumElements(targetShape)
	outData := make([]float32, targetElems)
	targetStrides := calculateStrides(targetShape)

	for i := range gradData {
		ti := broadcastIndex(i, grad.Shape, targetShape, targetStrides)
		outData[ti] += gradData[i]
	}

	return NewTensor(targetShape, Float32, outData)
}
