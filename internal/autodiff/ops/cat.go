package ops

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// CatOp records a concatenation: output = cat(inputs, dim).
//
// Backward slices the output gradient back into one piece per input,
// using the input sizes recorded along the concatenation dimension.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
	sizes  []int
}

// NewCatOp creates a new CatOp. dim must already be normalized.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	sizes := make([]int, len(inputs))
	for i, in := range inputs {
		sizes[i] = in.Shape()[dim]
	}
	return &CatOp{
		inputs: inputs,
		output: output,
		dim:    dim,
		sizes:  sizes,
	}
}

// Backward splits the output gradient along dim into the input pieces.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	outShape := outputGrad.Shape()
	ndim := len(outShape)

	outer := 1
	for d := 0; d < op.dim; d++ {
		outer *= outShape[d]
	}
	inner := 1
	for d := op.dim + 1; d < ndim; d++ {
		inner *= outShape[d]
	}

	elemSize := outputGrad.DType().Size()
	srcData := outputGrad.Data()
	srcBlock := outShape[op.dim] * inner * elemSize

	grads := make([]*tensor.RawTensor, len(op.inputs))
	offset := 0
	for i, in := range op.inputs {
		grad, err := tensor.NewRaw(in.Shape(), in.DType())
		if err != nil {
			panic(fmt.Sprintf("cat backward: %v", err))
		}

		gradBlock := op.sizes[i] * inner * elemSize
		dst := grad.Data()
		for o := 0; o < outer; o++ {
			srcStart := o*srcBlock + offset
			copy(dst[o*gradBlock:(o+1)*gradBlock], srcData[srcStart:srcStart+gradBlock])
		}

		grads[i] = grad
		offset += gradBlock
	}

	return grads
}

// Inputs returns the concatenated input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the concatenated output tensor.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}
