// Package ops defines the differentiable operations recorded on the
// gradient tape.
//
// Each operation captures its inputs and output during the forward pass and
// computes input gradients from the output gradient during the backward
// pass. Multi-output operations (Chunk) implement MultiOutputOperation and
// are handled specially by the tape.
package ops

import "github.com/loom-ml/loom/internal/tensor"

// Operation is one recorded step of the forward computation.
type Operation interface {
	// Backward maps the output gradient to input gradients, one per
	// entry of Inputs() in the same order.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the tensors the operation consumed.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor the operation produced.
	Output() *tensor.RawTensor
}

// MultiOutputOperation is implemented by operations that produce multiple
// outputs. The tape collects gradients for ALL outputs before calling
// BackwardMulti; outputs that received no gradient are filled with zeros.
type MultiOutputOperation interface {
	Operation

	// Outputs returns every tensor the operation produced.
	Outputs() []*tensor.RawTensor

	// BackwardMulti computes input gradients given gradients for all
	// outputs. Used instead of Backward for multi-output operations.
	BackwardMulti(outputGrads []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor
}
