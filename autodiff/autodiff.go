// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff implements reverse-mode automatic differentiation as a
// backend decorator.
//
// Wrapping a compute backend with New yields a backend whose operations are
// recorded on a gradient tape while recording is on. Backward replays the
// tape in reverse and returns the gradient of a scalar output with respect
// to every tensor that participated.
//
// Example:
//
//	import (
//	    "github.com/loom-ml/loom/autodiff"
//	    "github.com/loom-ml/loom/backend/cpu"
//	    "github.com/loom-ml/loom/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//
//	    // Record the forward pass
//	    tape := backend.Tape()
//	    tape.StartRecording()
//	    loss := model.Forward(x)
//	    tape.StopRecording()
//
//	    // Compute gradients
//	    grads := autodiff.Backward(loss, backend)
//	}
package autodiff

import (
	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/tensor"
)

// Backend decorates an inner backend B with gradient recording.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New wraps base in an autodiff decorator with a fresh tape.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
func New[B tensor.Backend](base B) *Backend[B] {
	return autodiff.New(base)
}

// GradientTape holds the recorded operations of a forward pass.
type GradientTape = autodiff.GradientTape

// NewGradientTape returns an empty tape with recording off.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is satisfied by backends that carry a tape and can run
// backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients via backpropagation, seeding the output
// gradient with ones.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}

// BackwardWithSeed computes gradients via backpropagation with an explicit
// scalar seed, as used for loss scaling in mixed precision training.
func BackwardWithSeed[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B, seed float32) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.BackwardWithSeed(t, backend, seed)
}
