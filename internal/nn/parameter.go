package nn

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// Parameter is a named trainable tensor.
//
// Parameters keep a stable RawTensor identity across training steps: the
// optimizer updates the data in place and looks gradients up by that
// identity in the map returned from the backward pass.
//
// Example:
//
//	weight := nn.NewParameter("weight_ih_l0", weightTensor)
//	grad := grads[weight.Tensor().Raw()]
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter wraps an initialized tensor as a trainable parameter.
//
// The tensor should be initialized before creating the Parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name (e.g. "weight_ih_l0").
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the underlying tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// NumElements returns the number of scalar values in the parameter.
func (p *Parameter[B]) NumElements() int {
	return p.tensor.NumElements()
}

// CopyFrom overwrites the parameter data with src, which must have the same
// shape and dtype. The RawTensor identity is preserved so optimizer state
// and gradient lookups stay valid.
func (p *Parameter[B]) CopyFrom(src *tensor.RawTensor) error {
	return p.tensor.Raw().CopyFrom(src)
}
