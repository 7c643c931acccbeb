package ops

import "github.com/loom-ml/loom/internal/tensor"

// MatMulOp represents matrix multiplication: output = a @ b.
//
// Backward:
//
//	∂L/∂a = ∂L/∂output @ bᵀ
//	∂L/∂b = aᵀ @ ∂L/∂output
type MatMulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewMatMulOp builds the tape entry for output = a @ b.
func NewMatMulOp(a, b, output *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward multiplies the output gradient against the transposed
// opposite operand.
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradA := backend.MatMul(outputGrad, backend.Transpose(b, 1, 0))
	gradB := backend.MatMul(backend.Transpose(a, 1, 0), outputGrad)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *MatMulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns a @ b.
func (op *MatMulOp) Output() *tensor.RawTensor {
	return op.output
}
