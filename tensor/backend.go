// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/loom-ml/loom/internal/tensor"

// Backend is the compute interface every device implements. All tensor
// math dispatches through it, so swapping devices or stacking decorators
// never touches model code.
//
// Implementations:
//   - backend/cpu: pure Go, parallel kernels
//   - autodiff: decorator that records operations for backpropagation
//
// Example:
//
//	import (
//	    "github.com/loom-ml/loom/backend/cpu"
//	    "github.com/loom-ml/loom/tensor"
//	)
//
//	backend := cpu.New()
//	x := tensor.Arange(6, backend)
//	y := tensor.Full[int32](tensor.Shape{6}, 10, backend)
//	z := x.Mul(y) // dispatches to backend.Mul
type Backend interface {
	// Element-wise binary operations with broadcasting.
	Add(a, b *RawTensor) *RawTensor // a + b.
	Sub(a, b *RawTensor) *RawTensor // a - b.
	Mul(a, b *RawTensor) *RawTensor // a * b.
	Div(a, b *RawTensor) *RawTensor // a / b.

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor // 2D matrix product.

	// Scalar operations (element-wise with scalar).
	AddScalar(x *RawTensor, scalar any) *RawTensor // x + s.
	MulScalar(x *RawTensor, scalar any) *RawTensor // x * s.

	// Activation functions.
	Sigmoid(x *RawTensor) *RawTensor          // Logistic sigmoid.
	Tanh(x *RawTensor) *RawTensor             // Hyperbolic tangent.
	Softmax(x *RawTensor, dim int) *RawTensor // Softmax along dim.

	// Reduction operations.
	Sum(x *RawTensor) *RawTensor                            // Scalar total.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // Sum along dim.
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // Mean along dim.
	Argmax(x *RawTensor, dim int) *RawTensor                // Int32 indices of the max along dim.

	// Manipulation operations.
	Reshape(x *RawTensor, shape Shape) *RawTensor   // New shape, same elements.
	Transpose(x *RawTensor, axes ...int) *RawTensor // Permute dimensions.
	Cat(tensors []*RawTensor, dim int) *RawTensor   // Concatenate along dim.
	Chunk(x *RawTensor, n, dim int) []*RawTensor    // Split into n equal parts.

	// Metadata.
	Name() string // e.g. "cpu", "autodiff(cpu)".
}

// The internal interface carries the same method set; the assignment fails
// to compile if the two drift apart.
var _ Backend = tensor.Backend(nil)
