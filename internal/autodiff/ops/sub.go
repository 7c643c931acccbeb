package ops

import "github.com/loom-ml/loom/internal/tensor"

// SubOp represents element-wise subtraction: output = a - b.
//
// Backward:
//
//	∂L/∂a = ∂L/∂output
//	∂L/∂b = -∂L/∂output
//
// Both reduced over broadcast dimensions.
type SubOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSubOp builds the tape entry for output = a - b.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward passes the output gradient to a and its negation to b.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := sumToShape(outputGrad, op.inputs[0].Shape(), backend)
	gradB := negate(sumToShape(outputGrad, op.inputs[1].Shape(), backend), backend)
	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *SubOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns a - b.
func (op *SubOp) Output() *tensor.RawTensor {
	return op.output
}
