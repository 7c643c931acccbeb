package ops

import "github.com/loom-ml/loom/internal/tensor"

// ChunkOp records an equal split: outputs = chunk(input, n, dim).
//
// Chunk produces multiple outputs, so the tape collects gradients for every
// chunk (zero-filling those that received none) and calls BackwardMulti,
// which concatenates them back to the input shape.
type ChunkOp struct {
	input   *tensor.RawTensor
	outputs []*tensor.RawTensor
	dim     int
}

// NewChunkOp creates a new ChunkOp. dim must already be normalized.
func NewChunkOp(input *tensor.RawTensor, outputs []*tensor.RawTensor, dim int) *ChunkOp {
	return &ChunkOp{
		input:   input,
		outputs: outputs,
		dim:     dim,
	}
}

// Backward must not be called for multi-output operations.
func (op *ChunkOp) Backward(_ *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	panic("chunk: use BackwardMulti for multi-output operations")
}

// BackwardMulti concatenates the chunk gradients back along dim.
func (op *ChunkOp) BackwardMulti(outputGrads []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Cat(outputGrads, op.dim)}
}

// Inputs returns the input tensors.
func (op *ChunkOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the first chunk. The tape uses Outputs() for the full set.
func (op *ChunkOp) Output() *tensor.RawTensor {
	return op.outputs[0]
}

// Outputs returns all chunks.
func (op *ChunkOp) Outputs() []*tensor.RawTensor {
	return op.outputs
}
