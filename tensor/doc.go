// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides type-safe tensor operations for the Loom training
// framework.
//
// # Overview
//
// Tensors are the fundamental data structure in Loom. The package gives
// model code a typed Tensor[T, B] wrapper, NumPy-style broadcasting on
// element-wise operations, and a Backend interface that hides the device.
//
// # Basic Usage
//
//	import (
//	    "github.com/loom-ml/loom/tensor"
//	    "github.com/loom-ml/loom/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Full[float32](tensor.Shape{4, 8}, 0.5, backend)
//	    y := tensor.Ones[float32](tensor.Shape{4, 8}, backend)
//
//	    sum := x.Add(y)
//	    gram := x.MatMul(x.Transpose())
//	    _, _ = sum, gram
//	}
//
// # Supported Data Types
//
// The tensor package supports two data types via the DType constraint:
//   - float32 (parameters, activations, gradients)
//   - int32 (class labels, argmax indices)
//
// # Broadcasting
//
// Element-wise operations follow NumPy broadcasting rules:
//
//	col := tensor.Zeros[float32](tensor.Shape{5, 1}, backend)
//	mat := tensor.Ones[float32](tensor.Shape{5, 6}, backend)
//	out := col.Add(mat) // shape [5 6]
//
// # Gradient Tracking
//
// Wrap a backend with the autodiff decorator to record operations for
// backpropagation:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := model.Forward(x)
//	grads := autodiff.Backward(loss, backend)
//
// Tensors created with RequireGrad() participate in gradient computation;
// Detach() returns a view excluded from the tape.
package tensor
