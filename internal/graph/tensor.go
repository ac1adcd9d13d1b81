package graph

import "fmt"

// Tensor is a constant payload attached to a KindConst node. It only
// carries enough information for the partitioning passes (shape, dtype,
// raw float data); numeric execution is out of scope here.
//
// Tensors are treated as immutable once attached to a graph, so clones
// share the underlying data slice.
type Tensor struct {
	Shape Shape
	DType DataType
	Data  []float32
}

// NewTensor creates a constant tensor, validating that the data length
// matches the shape.
func NewTensor(shape Shape, dtype DataType, data []float32) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tensor shape: %w", err)
	}
	if data != nil && len(data) != shape.NumElements() {
		return nil, fmt.Errorf("tensor data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Tensor{Shape: shape.Clone(), DType: dtype, Data: data}, nil
}
