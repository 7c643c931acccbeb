// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/tensor"
)

// Backend computes tensor operations in pure Go on the host CPU, with
// parallel kernels for large matrix multiplications.
type Backend = internalcpu.CPUBackend

var _ tensor.Backend = (*Backend)(nil)

// New returns a CPU backend with parallelism sized to the machine.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Randn(tensor.Shape{64, 64}, rng, backend)
//	y := x.Sigmoid()
func New() *Backend {
	return internalcpu.New()
}

// NewSequential returns a CPU backend that never spawns goroutines.
func NewSequential() *Backend {
	return internalcpu.NewSequential()
}
