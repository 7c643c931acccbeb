package ops

import "github.com/loom-ml/loom/internal/tensor"

// MulOp represents element-wise multiplication: output = a * b.
//
// Backward:
//
//	∂L/∂a = ∂L/∂output * b
//	∂L/∂b = ∂L/∂output * a
//
// Both reduced over broadcast dimensions.
type MulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewMulOp builds the tape entry for output = a * b.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward scales the output gradient by the opposite factor.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradA := sumToShape(backend.Mul(outputGrad, b), a.Shape(), backend)
	gradB := sumToShape(backend.Mul(outputGrad, a), b.Shape(), backend)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *MulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns a * b.
func (op *MulOp) Output() *tensor.RawTensor {
	return op.output
}
