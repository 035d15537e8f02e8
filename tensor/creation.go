package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// NewTensor builds a tensor over the given data. The data slice length must
// match the product of the shape.
func NewTensor(shape []int, dtype DType, data interface{}) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)

	switch dtype {
	case Float32:
		d, ok := data.([]float32)
		if !ok {
			return nil, fmt.Errorf("data type mismatch: expected []float32 for Float32 tensor")
		}
		if len(d) != numElems {
			return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(d), shape, numElems)
		}
	case Int32:
		d, ok := data.([]int32)
		if !ok {
			return nil, fmt.Errorf("data type mismatch: expected []int32 for Int32 tensor")
		}
		if len(d) != numElems {
			return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(d), shape, numElems)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype: %v", dtype)
	}

	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Tensor{
		Shape:    shapeCopy,
		Strides:  calculateStrides(shapeCopy),
		DType:    dtype,
		Data:     data,
		NumElems: numElems,
	}, nil
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape []int, dtype DType) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)

	var data interface{}
	switch dtype {
	case Float32:
		data = make([]float32, numElems)
	case Int32:
		data = make([]int32, numElems)
	default:
		return nil, fmt.Errorf("unsupported dtype: %v", dtype)
	}

	return NewTensor(shape, dtype, data)
}

// Ones creates a tensor filled with ones.
func Ones(shape []int, dtype DType) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)

	switch dtype {
	case Float32:
		data := make([]float32, numElems)
		for i := range data {
			data[i] = 1
		}
		return NewTensor(shape, dtype, data)
	case Int32:
		data := make([]int32, numElems)
		for i := range data {
			data[i] = 1
		}
		return NewTensor(shape, dtype, data)
	default:
		return nil, fmt.Errorf("unsupported dtype: %v", dtype)
	}
}

// Full creates a Float32 tensor filled with the given value.
func Full(shape []int, value float32) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)
	data := make([]float32, numElems)
	for i := range data {
		data[i] = value
	}
	return NewTensor(shape, Float32, data)
}

// FromScalar wraps a single float32 in a [1] tensor.
func FromScalar(value float32) (*Tensor, error) {
	return NewTensor([]int{1}, Float32, []float32{value})
}

// RandomNormal creates a Float32 tensor sampled from N(mean, std^2) using
// the given source. A nil rng falls back to the global source.
func RandomNormal(shape []int, mean, std float64, rng *rand.Rand) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)
	data := make([]float32, numElems)
	for i := range data {
		var sample float64
		if rng != nil {
			sample = rng.NormFloat64()
		} else {
			sample = rand.NormFloat64()
		}
		data[i] = float32(sample*std + mean)
	}
	return NewTensor(shape, Float32, data)
}

// KaimingNormal samples weights for a layer with the given fan-in using
// He initialization, the usual choice ahead of ReLU activations.
func KaimingNormal(shape []int, fanIn int, rng *rand.Rand) (*Tensor, error) {
	if fanIn <= 0 {
		return nil, fmt.Errorf("fan-in must be positive, got %d", fanIn)
	}
	std := math.Sqrt(2.0 / float64(fanIn))
	return RandomNormal(shape, 0, std, rng)
}
