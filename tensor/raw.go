// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// RawTensor is the untyped storage under every Tensor: a byte buffer plus
// shape and dtype. Its pointer identity is stable across the typed wrappers,
// which is what lets gradient maps and optimizer state key on *RawTensor.
//
// Reach for it when serializing or when writing backend kernels; model code
// should stay on Tensor[T, B].
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	data := raw.AsFloat32()
//	data[0] = 1.5
type RawTensor = tensor.RawTensor
