package tensor

import (
	"fmt"
)

// MatMul multiplies two 2D Float32 tensors: [m,k] x [k,n] -> [m,n].
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("MatMul requires 2D tensors, got %v and %v", a.Shape, b.Shape)
	}
	if a.DType != Float32 || b.DType != Float32 {
		return nil, fmt.Errorf("MatMul requires Float32 tensors")
	}
	if a.Shape[1] != b.Shape[0] {
		return nil, fmt.Errorf("incompatible shapes for MatMul: %v x %v", a.Shape, b.Shape)
	}

	m, k, n := a.Shape[0], a.Shape[1], b.Shape[1]
	aData := a.Data.([]float32)
	bData := b.Data.([]float32)
	out := make([]float32, m*n)

	for i := 0; i < m; i++ {
		for p := 0; p < k; p++ {
			av := aData[i*k+p]
			if av == 0 {
				continue
			}
			bRow := bData[p*n : (p+1)*n]
			outRow := out[i*n : (i+1)*n]
			for j := 0; j < n; j++ {
				outRow[j] += av * bRow[j]
			}
		}
	}

	return NewTensor([]int{m, n}, Float32, out)
}

// Transpose swaps the two dimensions of a 2D Float32 tensor.
func Transpose(t *Tensor) (*Tensor, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("Transpose requires a 2D tensor, got %v", t.Shape)
	}
	if t.DType != Float32 {
		return nil, fmt.Errorf("Transpose requires a Float32 tensor")
	}

	rows, cols := t.Shape[0], t.Shape[1]
	src := t.Data.([]float32)
	dst := make([]float32, len(src))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst[c*rows+r] = src[r*cols+c]
		}
	}
	return NewTensor([]int{cols, rows}, Float32, dst)
}

// SumRows reduces a 2D tensor [m,n] over rows, producing [n]. Used to
// collect bias gradients across a batch.
func SumRows(t *Tensor) (*Tensor, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("SumRows requires a 2D tensor, got %v", t.Shape)
	}
	if t.DType != Float32 {
		return nil, fmt.Errorf("SumRows requires a Float32 tensor")
	}

	rows, cols := t.Shape[0], t.Shape[1]
	src := t.Data.([]float32)
	dst := make([]float32, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst[c] += src[r*cols+c]
		}
	}
	return NewTensor([]int{cols}, Float32, dst)
}
