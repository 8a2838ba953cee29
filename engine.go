package crowdcount

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a tensor does not have the shape an operation
// expects
var ErrShape = errors.New("unexpected tensor shape")

// Shape defines the dimensions of a Tensor, for image tensors this is in
// NCHW order
type Shape []int64

// Elements returns the total number of values a tensor of this shape holds
func (s Shape) Elements() int {

	if len(s) == 0 {
		return 0
	}

	n := 1

	for _, d := range s {
		n *= int(d)
	}

	return n
}

// Equal returns true if both shapes have identical dimensions
func (s Shape) Equal(o Shape) bool {

	if len(s) != len(o) {
		return false
	}

	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}

	return true
}

// String returns the shape formatted as [N, C, H, W]
func (s Shape) String() string {
	return fmt.Sprint([]int64(s))
}

// Tensor is the engine neutral representation of model input and output data
type Tensor struct {
	Shape Shape
	Data  []float32
}

// NewTensor returns a Tensor after checking the data length matches the shape
func NewTensor(shape Shape, data []float32) (Tensor, error) {

	if shape.Elements() != len(data) {
		return Tensor{}, fmt.Errorf("%w: shape %s needs %d values, got %d",
			ErrShape, shape, shape.Elements(), len(data))
	}

	return Tensor{Shape: shape, Data: data}, nil
}

// Engine runs the pretrained network.  Implementations take one pre-processed
// input tensor of the model's fixed input shape and return the model's density
// output.  Calls are synchronous and block until the backend returns.
type Engine interface {
	// Infer runs the model on the given input tensor
	Infer(input Tensor) (Tensor, error)
	// InputShape returns the NCHW shape the model expects
	InputShape() Shape
	// Close releases the backend resources
	Close() error
}
