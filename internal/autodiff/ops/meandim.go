package ops

import "github.com/loom-ml/loom/internal/tensor"

// MeanDimOp records a mean reduction along a dimension: output = mean(x, dim).
//
// Backward broadcasts the output gradient to the input shape and divides
// by the reduced dimension's size.
type MeanDimOp struct {
	inputs  []*tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
	dimSize int
}

// NewMeanDimOp builds the tape entry for a mean along dim.
func NewMeanDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	axis := dim
	if axis < 0 {
		axis += len(x.Shape())
	}
	return &MeanDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
		dimSize: x.Shape()[axis],
	}
}

// Backward broadcasts the output gradient and divides by the dimension size.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := outputGrad

	if !op.keepDim {
		grad = reinsertDim(grad, op.dim, x.Shape())
	}

	gradX := expandToShape(grad, x.Shape(), backend)
	data := gradX.AsFloat32()
	divisor := float32(op.dimSize)
	for i := range data {
		data[i] /= divisor
	}

	return []*tensor.RawTensor{gradX}
}

// Inputs returns the unreduced tensor.
func (op *MeanDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced tensor.
func (op *MeanDimOp) Output() *tensor.RawTensor {
	return op.output
}
