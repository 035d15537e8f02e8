package tensor

import (
	"fmt"
	"math"
)

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the tensor data. The clone carries the same
// requiresGrad flag but no gradient and no creator.
func (t *Tensor) Clone() (*Tensor, error) {
	shape := make([]int, len(t.Shape))
	copy(shape, t.Shape)

	var data interface{}
	switch t.DType {
	case Float32:
		src := t.Data.([]float32)
		dst := make([]float32, len(src))
		copy(dst, src)
		data = dst
	case Int32:
		src := t.Data.([]int32)
		dst := make([]int32, len(src))
		copy(dst, src)
		data = dst
	default:
		return nil, fmt.Errorf("unsupported dtype: %v", t.DType)
	}

	clone, err := NewTensor(shape, t.DType, data)
	if err != nil {
		return nil, err
	}
	clone.requiresGrad = t.requiresGrad
	return clone, nil
}

// SetData overwrites the tensor's backing storage in place, keeping shape
// and autograd state. Used by optimizers to apply parameter updates.
func (t *Tensor) SetData(data []float32) error {
	if t.DType != Float32 {
		return fmt.Errorf("SetData only supports Float32 tensors")
	}
	if len(data) != t.NumElems {
		return fmt.Errorf("data length %d does not match tensor elements %d", len(data), t.NumElems)
	}
	dst := t.Data.([]float32)
	copy(dst, data)
	return nil
}

// ZeroGrad clears the accumulated gradient.
func (t *Tensor) ZeroGrad() {
	t.grad = nil
}

// Item returns the single value of a scalar Float32 tensor.
func (t *Tensor) Item() (float32, error) {
	if t.NumElems != 1 {
		return 0, fmt.Errorf("Item requires a scalar tensor, got shape %v", t.Shape)
	}
	if t.DType != Float32 {
		return 0, fmt.Errorf("Item only supports Float32 tensors")
	}
	return t.Data.([]float32)[0], nil
}

// At reads one element by multi-dimensional index.
func (t *Tensor) At(indices ...int) (float32, error) {
	offset, err := t.offset(indices)
	if err != nil {
		return 0, err
	}
	if t.DType != Float32 {
		return 0, fmt.Errorf("At only supports Float32 tensors")
	}
	return t.Data.([]float32)[offset], nil
}

// SetAt writes one element by multi-dimensional index.
func (t *Tensor) SetAt(value float32, indices ...int) error {
	offset, err := t.offset(indices)
	if err != nil {
		return err
	}
	if t.DType != Float32 {
		return fmt.Errorf("SetAt only supports Float32 tensors")
	}
	t.Data.([]float32)[offset] = value
	return nil
}

func (t *Tensor) offset(indices []int) (int, error) {
	if len(indices) != len(t.Shape) {
		return 0, fmt.Errorf("expected %d indices, got %d", len(t.Shape), len(indices))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.Shape[i] {
			return 0, fmt.Errorf("index %d out of range for dimension %d (size %d)", idx, i, t.Shape[i])
		}
		offset += idx * t.Strides[i]
	}
	return offset, nil
}

// Reshape returns a view-like copy with a new shape. The element count must
// match; a single -1 dimension is inferred.
func (t *Tensor) Reshape(shape []int) (*Tensor, error) {
	inferred := -1
	known := 1
	for i, dim := range shape {
		if dim == -1 {
			if inferred != -1 {
				return nil, fmt.Errorf("at most one dimension may be -1")
			}
			inferred = i
		} else if dim <= 0 {
			return nil, fmt.Errorf("invalid shape: dimension %d has size %d", i, dim)
		} else {
			known *= dim
		}
	}

	resolved := make([]int, len(shape))
	copy(resolved, shape)
	if inferred != -1 {
		if t.NumElems%known != 0 {
			return nil, fmt.Errorf("cannot infer dimension: %d elements not divisible by %d", t.NumElems, known)
		}
		resolved[inferred] = t.NumElems / known
	} else if known != t.NumElems {
		return nil, fmt.Errorf("cannot reshape %d elements into shape %v", t.NumElems, shape)
	}

	out, err := NewTensor(resolved, t.DType, t.Data)
	if err != nil {
		return nil, err
	}
	out.requiresGrad = t.requiresGrad
	return out, nil
}

// Sqrt computes element-wise square root into a fresh tensor.
func (t *Tensor) Sqrt() (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("Sqrt only supports Float32 tensors")
	}
	src := t.Data.([]float32)
	dst := make([]float32, len(src))
	for i, v := range src {
		dst[i] = float32(math.Sqrt(float64(v)))
	}
	return NewTensor(t.Shape, Float32, dst)
}

// Float32Data returns the raw backing slice of a Float32 tensor.
func (t *Tensor) Float32Data() ([]float32, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("tensor is %v, not Float32", t.DType)
	}
	return t.Data.([]float32), nil
}

// Int32Data returns the raw backing slice of an Int32 tensor.
func (t *Tensor) Int32Data() ([]int32, error) {
	if t.DType != Int32 {
		return nil, fmt.Errorf("tensor is %v, not Int32", t.DType)
	}
	return t.Data.([]int32), nil
}
