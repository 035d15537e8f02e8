package tensor

import (
	"fmt"
	"math"
)

// Add computes a + b with broadcasting.
func Add(a, b *Tensor) (*Tensor, error) {
	return broadcastBinary(a, b, func(x, y float32) float32 { return x + y })
}

// Sub computes a - b with broadcasting.
func Sub(a, b *Tensor) (*Tensor, error) {
	return broadcastBinary(a, b, func(x, y float32) float32 { return x - y })
}

// Mul computes a * b element-wise with broadcasting.
func Mul(a, b *Tensor) (*Tensor, error) {
	return broadcastBinary(a, b, func(x, y float32) float32 { return x * y })
}

// Div computes a / b element-wise with broadcasting.
func Div(a, b *Tensor) (*Tensor, error) {
	return broadcastBinary(a, b, func(x, y float32) float32 { return x / y })
}

// AddScalar adds a scalar to every element.
func AddScalar(t *Tensor, s float32) (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("AddScalar requires a Float32 tensor")
	}
	src := t.Data.([]float32)
	dst := make([]float32, len(src))
	for i, v := range src {
		dst[i] = v + s
	}
	return NewTensor(t.Shape, Float32, dst)
}

// MulScalar multiplies every element by a scalar.
func MulScalar(t *Tensor, s float32) (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("MulScalar requires a Float32 tensor")
	}
	src := t.Data.([]float32)
	dst := make([]float32, len(src))
	for i, v := range src {
		dst[i] = v * s
	}
	return NewTensor(t.Shape, Float32, dst)
}

// ReLU computes max(0, x) element-wise.
func ReLU(t *Tensor) (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("ReLU requires a Float32 tensor")
	}
	src := t.Data.([]float32)
	dst := make([]float32, len(src))
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		}
	}
	return NewTensor(t.Shape, Float32, dst)
}

// Exp computes e^x element-wise.
func Exp(t *Tensor) (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("Exp requires a Float32 tensor")
	}
	src := t.Data.([]float32)
	dst := make([]float32, len(src))
	for i, v := range src {
		dst[i] = float32(math.Exp(float64(v)))
	}
	return NewTensor(t.Shape, Float32, dst)
}

// Sum reduces all elements to a scalar [1] tensor.
func Sum(t *Tensor) (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("Sum requires a Float32 tensor")
	}
	src := t.Data.([]float32)
	var total float32
	for _, v := range src {
		total += v
	}
	return FromScalar(total)
}

// Mean reduces all elements to their mean as a scalar [1] tensor.
func Mean(t *Tensor) (*Tensor, error) {
	total, err := Sum(t)
	if err != nil {
		return nil, err
	}
	return MulScalar(total, 1/float32(t.NumElems))
}

// Softmax computes a row-wise softmax over the last dimension of a 2D
// tensor, with the usual max subtraction for numerical stability.
func Softmax(t *Tensor) (*Tensor, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("Softmax requires a 2D tensor, got shape %v", t.Shape)
	}
	if t.DType != Float32 {
		return nil, fmt.Errorf("Softmax requires a Float32 tensor")
	}

	rows, cols := t.Shape[0], t.Shape[1]
	src := t.Data.([]float32)
	dst := make([]float32, len(src))

	for r := 0; r < rows; r++ {
		base := r * cols
		maxVal := src[base]
		for c := 1; c < cols; c++ {
			if src[base+c] > maxVal {
				maxVal = src[base+c]
			}
		}
		var sumExp float32
		for c := 0; c < cols; c++ {
			e := float32(math.Exp(float64(src[base+c] - maxVal)))
			dst[base+c] = e
			sumExp += e
		}
		for c := 0; c < cols; c++ {
			dst[base+c] /= sumExp
		}
	}

	return NewTensor(t.Shape, Float32, dst)
}

// ArgMaxRows returns, for a 2D tensor, the column index of the maximum in
// each row.
func ArgMaxRows(t *Tensor) ([]int, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("ArgMaxRows requires a 2D tensor, got shape %v", t.Shape)
	}
	if t.DType != Float32 {
		return nil, fmt.Errorf("ArgMaxRows requires a Float32 tensor")
	}

	rows, cols := t.Shape[0], t.Shape[1]
	src := t.Data.([]float32)
	out := make([]int, rows)

	for r := 0; r < rows; r++ {
		base := r * cols
		best := 0
		for c := 1; c < cols; c++ {
			if src[base+c] > src[base+best] {
				best = c
			}
		}
		out[r] = best
	}
	return out, nil
}
