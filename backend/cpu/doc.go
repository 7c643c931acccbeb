// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu implements the tensor compute backend on the host CPU.
//
// # Overview
//
// The backend runs everywhere Go runs: no CGO, no SIMD intrinsics, no
// build tags. It supports float32 and int32 tensors, NumPy-style
// broadcasting on the element-wise operations, and batched matrix
// multiplication.
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/loom-ml/loom/backend/cpu"
//	    "github.com/loom-ml/loom/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    rng := rand.New(rand.NewSource(1))
//
//	    a := tensor.Randn(tensor.Shape{32, 128}, rng, backend)
//	    w := tensor.Randn(tensor.Shape{128, 10}, rng, backend)
//	    logits := a.MatMul(w)
//	    _ = logits
//	}
//
// # Performance
//
// Large matrix multiplications are split across goroutines; small ones run
// inline to avoid scheduling overhead. NewSequential returns a backend that
// never spawns goroutines, useful for deterministic profiling and small
// unit tests.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Operations allocate fresh
// output tensors and never mutate their inputs.
package cpu
