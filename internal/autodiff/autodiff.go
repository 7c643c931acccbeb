// Package autodiff provides reverse-mode automatic differentiation as a
// backend decorator.
//
// AutodiffBackend wraps any tensor.Backend and records differentiable
// operations onto a GradientTape while forwarding the actual computation to
// the inner backend. Calling code switches gradient tracking on and off
// through the tape:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	// ... forward pass builds the graph ...
//	grads := backend.Tape().Backward(seed, backend)
package autodiff

import (
	"github.com/loom-ml/loom/internal/autodiff/ops"
	"github.com/loom-ml/loom/internal/tensor"
)

// Verify interface compliance at compile time.
var _ tensor.Backend = (*AutodiffBackend[tensor.Backend])(nil)

// AutodiffBackend decorates an inner backend with gradient recording.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an autodiff decorator around the given backend.
func New[B tensor.Backend](inner B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: inner,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// NoGrad runs fn with recording suspended and restores the previous
// recording state afterwards. Nested calls are safe: each call captures
// the state it saw on entry.
func (b *AutodiffBackend[B]) NoGrad(fn func()) {
	wasRecording := b.tape.IsRecording()
	b.tape.StopRecording()
	defer func() {
		if wasRecording {
			b.tape.StartRecording()
		}
	}()
	fn()
}

// Name returns the backend name, e.g. "autodiff(cpu)".
func (b *AutodiffBackend[B]) Name() string {
	return "autodiff(" + b.inner.Name() + ")"
}

// Add performs element-wise addition, recording the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, result))
	}
	return result
}

// Sub performs element-wise subtraction, recording the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, result))
	}
	return result
}

// Mul performs element-wise multiplication, recording the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, result))
	}
	return result
}

// Div performs element-wise division, recording the operation.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, result))
	}
	return result
}

// MatMul performs matrix multiplication, recording the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, result))
	}
	return result
}

// AddScalar adds a scalar element-wise, recording the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := b.inner.AddScalar(x, scalar)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddScalarOp(x, result))
	}
	return result
}

// MulScalar multiplies by a scalar element-wise, recording the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := b.inner.MulScalar(x, scalar)
	if b.tape.IsRecording() {
		if s, ok := scalar.(float32); ok {
			b.tape.Record(ops.NewMulScalarOp(x, result, s))
		}
	}
	return result
}

// Sigmoid applies the logistic function, recording the operation.
func (b *AutodiffBackend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sigmoid(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSigmoidOp(x, result))
	}
	return result
}

// Tanh applies the hyperbolic tangent, recording the operation.
func (b *AutodiffBackend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Tanh(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTanhOp(x, result))
	}
	return result
}

// Softmax applies softmax along dim, recording the operation.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Softmax(x, dim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSoftmaxOp(x, result))
	}
	return result
}

// Sum reduces to a scalar. Not differentiable through the tape; use SumDim
// for recorded reductions.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Sum(x)
}

// SumDim sums along a dimension, recording the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumDimOp(x, result, dim, keepDim))
	}
	return result
}

// MeanDim averages along a dimension, recording the operation.
func (b *AutodiffBackend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.MeanDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMeanDimOp(x, result, dim, keepDim))
	}
	return result
}

// Argmax returns indices of maxima. Index selection carries no gradient.
func (b *AutodiffBackend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.Argmax(x, dim)
}

// Reshape changes the tensor shape, recording the operation.
func (b *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(x, shape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(x, result))
	}
	return result
}

// Transpose permutes dimensions, recording the operation.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	result := b.inner.Transpose(x, axes...)
	if b.tape.IsRecording() {
		resolved := axes
		if len(resolved) == 0 {
			resolved = []int{1, 0}
		}
		b.tape.Record(ops.NewTransposeOp(x, result, resolved))
	}
	return result
}

// Cat concatenates tensors along dim, recording the operation.
func (b *AutodiffBackend[B]) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Cat(tensors, dim)
	if b.tape.IsRecording() {
		norm := dim
		if norm < 0 {
			norm = len(result.Shape()) + norm
		}
		b.tape.Record(ops.NewCatOp(tensors, result, norm))
	}
	return result
}

// Chunk splits a tensor into n equal parts along dim, recording the
// operation as a multi-output node.
func (b *AutodiffBackend[B]) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	results := b.inner.Chunk(x, n, dim)
	if b.tape.IsRecording() {
		norm := dim
		if norm < 0 {
			norm = len(x.Shape()) + norm
		}
		b.tape.Record(ops.NewChunkOp(x, results, norm))
	}
	return results
}

// CrossEntropy computes cross-entropy loss between logits and integer
// targets, recording the operation. Only the logits receive gradients.
func (b *AutodiffBackend[B]) CrossEntropy(logits, targets *tensor.RawTensor, reduction ops.Reduction) *tensor.RawTensor {
	result := ops.CrossEntropyForward(logits, targets, reduction)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCrossEntropyOp(logits, targets, result, reduction))
	}
	return result
}
