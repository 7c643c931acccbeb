package ops

import "github.com/loom-ml/loom/internal/tensor"

// AddOp represents element-wise addition: output = a + b.
//
// Backward:
//
//	∂L/∂a = ∂L/∂output (reduced over broadcast dimensions)
//	∂L/∂b = ∂L/∂output (reduced over broadcast dimensions)
type AddOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewAddOp builds the tape entry for output = a + b.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward passes the output gradient through to both addends.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := sumToShape(outputGrad, op.inputs[0].Shape(), backend)
	gradB := sumToShape(outputGrad, op.inputs[1].Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *AddOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns a + b.
func (op *AddOp) Output() *tensor.RawTensor {
	return op.output
}
