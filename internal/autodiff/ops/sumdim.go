package ops

import "github.com/loom-ml/loom/internal/tensor"

// SumDimOp records a sum reduction along a dimension: output = sum(x, dim).
//
// Backward broadcasts the output gradient back to the input shape; each
// input element contributed with weight 1.
type SumDimOp struct {
	inputs  []*tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp builds the tape entry for a sum along dim.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward broadcasts the output gradient to the input shape.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := outputGrad

	if !op.keepDim {
		grad = reinsertDim(grad, op.dim, x.Shape())
	}

	return []*tensor.RawTensor{expandToShape(grad, x.Shape(), backend)}
}

// Inputs returns the unreduced tensor.
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}
