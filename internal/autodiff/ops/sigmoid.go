package ops

import "github.com/loom-ml/loom/internal/tensor"

// SigmoidOp represents the logistic activation: output = σ(x) = 1 / (1 + e⁻ˣ).
//
// Backward uses the cached output:
//
//	∂L/∂x = ∂L/∂output * σ(x) * (1 - σ(x))
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{
		input:  input,
		output: output,
	}
}

// Backward computes the input gradient from the cached sigmoid output.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	inputGrad, err := tensor.NewRaw(op.input.Shape(), op.input.DType())
	if err != nil {
		panic(err)
	}

	sig := op.output.AsFloat32()
	outGrad := outputGrad.AsFloat32()
	inGrad := inputGrad.AsFloat32()

	for i := range inGrad {
		inGrad[i] = outGrad[i] * sig[i] * (1 - sig[i])
	}

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *SigmoidOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor σ(x).
func (op *SigmoidOp) Output() *tensor.RawTensor {
	return op.output
}
