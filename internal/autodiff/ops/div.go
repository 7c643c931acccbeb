package ops

import "github.com/loom-ml/loom/internal/tensor"

// DivOp represents element-wise division: output = a / b.
//
// Backward:
//
//	∂L/∂a = ∂L/∂output / b
//	∂L/∂b = -∂L/∂output * a / b²
//
// Both reduced over broadcast dimensions.
type DivOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewDivOp builds the tape entry for output = a / b.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward applies the quotient rule, reusing the cached output for the
// denominator gradient.
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradA := sumToShape(backend.Div(outputGrad, b), a.Shape(), backend)

	// grad_b = -grad * a / b² = -(grad * output / b) since output = a / b.
	gradB := backend.Mul(outputGrad, op.output)
	gradB = backend.Div(gradB, b)
	gradB = negate(sumToShape(gradB, b.Shape(), backend), backend)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *DivOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns a / b.
func (op *DivOp) Output() *tensor.RawTensor {
	return op.output
}
