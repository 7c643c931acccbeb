package ops

import "github.com/loom-ml/loom/internal/tensor"

// TanhOp represents the hyperbolic tangent activation: output = tanh(x).
//
// Backward uses the cached output:
//
//	∂L/∂x = ∂L/∂output * (1 - tanh²(x))
type TanhOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a new TanhOp.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{
		input:  input,
		output: output,
	}
}

// Backward computes the input gradient from the cached tanh output.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	inputGrad, err := tensor.NewRaw(op.input.Shape(), op.input.DType())
	if err != nil {
		panic(err)
	}

	th := op.output.AsFloat32()
	outGrad := outputGrad.AsFloat32()
	inGrad := inputGrad.AsFloat32()

	for i := range inGrad {
		inGrad[i] = outGrad[i] * (1 - th[i]*th[i])
	}

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *TanhOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor tanh(x).
func (op *TanhOp) Output() *tensor.RawTensor {
	return op.output
}
