package ops

import "github.com/loom-ml/loom/internal/tensor"

// SoftmaxOp represents softmax along the last dimension of a 2D tensor.
//
// Backward uses the simplified Jacobian-vector product per row:
//
//	∂L/∂x[b,j] = s[b,j] * (∂L/∂s[b,j] - Σ_i ∂L/∂s[b,i] * s[b,i])
//
// where s is the cached softmax output.
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSoftmaxOp builds the tape entry, caching the softmax output for
// the backward pass.
func NewSoftmaxOp(input, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{
		input:  input,
		output: output,
	}
}

// Backward computes the input gradient from the cached softmax output.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	if len(shape) != 2 {
		panic("softmax backward: only 2D tensors supported")
	}

	batchSize, numClasses := shape[0], shape[1]

	inputGrad, err := tensor.NewRaw(shape, op.input.DType())
	if err != nil {
		panic(err)
	}

	s := op.output.AsFloat32()
	outGrad := outputGrad.AsFloat32()
	inGrad := inputGrad.AsFloat32()

	for b := 0; b < batchSize; b++ {
		offset := b * numClasses

		var dot float32
		for j := 0; j < numClasses; j++ {
			dot += outGrad[offset+j] * s[offset+j]
		}

		for j := 0; j < numClasses; j++ {
			inGrad[offset+j] = s[offset+j] * (outGrad[offset+j] - dot)
		}
	}

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the pre-softmax logits.
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the probabilities.
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}
