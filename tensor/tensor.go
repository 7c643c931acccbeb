// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in the Loom
// training framework.
//
// The package exposes:
//   - Tensor[T, B]: generic tensor, statically typed over dtype and backend
//   - RawTensor: untyped storage underneath (stable identity for gradients)
//   - Backend: the compute interface devices implement
//   - Shape, DataType: dimension and dtype descriptors
//
// Example:
//
//	backend := cpu.New()
//	w := tensor.Zeros[float32](tensor.Shape{128, 10}, backend)
//	g := tensor.Ones[float32](tensor.Shape{128, 10}, backend)
//	w = w.Sub(g.MulScalar(0.01))
package tensor

import (
	"math/rand"

	"github.com/loom-ml/loom/internal/tensor"
)

// Aliases onto the internal implementation.

// DType is the constraint on tensor element types: float32 or int32.
type DType = tensor.DType

// DataType identifies a tensor's element type at runtime.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int32   DataType = tensor.Int32
)

// Shape holds tensor dimensions, outermost first; Shape{2, 3, 4} is a
// 3D tensor of 24 elements.
type Shape = tensor.Shape

// The Backend interface lives in backend.go.

// Tensor is a generic tensor over element type T and backend B.
//
// The compiler rejects mixing dtypes or backends in a single expression,
// and operations dispatch through B, so wrapping a backend with the
// autodiff decorator is enough to record every operation in a model.
// Per-tensor gradient participation is controlled with RequireGrad and
// Detach.
//
// Example:
//
//	backend := cpu.New()
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
//	y := x.MatMul(x).Tanh()
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Creation functions

// Zeros returns a tensor of zeros with the given shape.
//
// Example:
//
//	hidden := tensor.Zeros[float32](tensor.Shape{32, 128}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones returns a tensor of ones with the given shape.
//
// Example:
//
//	mask := tensor.Ones[float32](tensor.Shape{32, 1}, backend)
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full returns a tensor with every element set to value.
//
// Example:
//
//	bias := tensor.Full[float32](tensor.Shape{256}, 0.5, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Randn creates a float32 tensor with values drawn from the standard normal
// distribution N(0, 1) using the supplied random source.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	w := tensor.Randn(tensor.Shape{784, 128}, rng, backend)
func Randn[B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[float32, B] {
	return tensor.Randn(shape, rng, b)
}

// Uniform creates a float32 tensor with values drawn uniformly from
// [low, high) using the supplied random source.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	w := tensor.Uniform(tensor.Shape{512, 128}, -0.08, 0.08, rng, backend)
func Uniform[B Backend](shape Shape, low, high float32, rng *rand.Rand, b B) *Tensor[float32, B] {
	return tensor.Uniform(shape, low, high, rng, b)
}

// Arange returns a 1D int32 tensor holding 0 through n-1.
//
// Example:
//
//	idx := tensor.Arange(10, backend) // [0 1 2 ... 9]
func Arange[B Backend](n int, b B) *Tensor[int32, B] {
	return tensor.Arange(n, b)
}

// FromSlice copies data into a fresh tensor of the given shape. It returns
// an error when len(data) does not match the shape's element count.
//
// Example:
//
//	labels, err := tensor.FromSlice([]int32{3, 1, 4, 1}, tensor.Shape{4}, backend)
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// New wraps an existing raw tensor. T must match the raw tensor's dtype;
// most callers want Zeros, Ones or FromSlice instead.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw allocates a zero-filled raw tensor with the given shape and dtype.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// NewRawFromBytes creates a raw tensor backed directly by data, which must
// hold exactly shape.NumElements() elements of dtype. The buffer is not
// copied; the caller gives up ownership.
func NewRawFromBytes(shape Shape, dtype DataType, data []byte) (*RawTensor, error) {
	return tensor.NewRawFromBytes(shape, dtype, data)
}

// Manipulation functions

// Cat concatenates tensors along a dimension.
//
// Example:
//
//	a := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	b := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	c := tensor.Cat([]*tensor.Tensor[float32, *cpu.Backend]{a, b}, 0) // shape [4 3]
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	return tensor.Cat(tensors, dim)
}

// Utility functions

// BroadcastShapes resolves the result shape of an element-wise operation
// on two shapes under NumPy broadcasting rules, or reports that the shapes
// are incompatible.
//
// Example:
//
//	out, err := tensor.BroadcastShapes(tensor.Shape{5, 1}, tensor.Shape{1, 6})
//	// out = [5 6]
func BroadcastShapes(a, b Shape) (Shape, error) {
	return tensor.BroadcastShapes(a, b)
}
