// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/tensor"
)

// Parameter is a named, trainable tensor: a layer weight or bias. Its
// RawTensor identity stays stable across training steps, so the optimizer
// updates the data in place and looks gradients up by that identity.
//
// Example:
//
//	weight := nn.NewParameter("weight_ih_l0", weightTensor)
//
//	w := weight.Tensor()
//
//	// after a backward pass
//	grad := grads[weight.Tensor().Raw()]
//
// Methods:
//
//	Name() string
//	    The local parameter name ("weight_ih_l0", "bias").
//
//	Tensor() *tensor.Tensor[float32, B]
//	    The underlying tensor.
//
//	NumElements() int
//	    Scalar count, summed by parameter-count reporting.
//
//	CopyFrom(src *tensor.RawTensor) error
//	    Overwrites the data in place, preserving identity.
//
// Parameter is a type alias rather than a wrapper because the Module
// interface returns it; distinct facade and internal types would force
// every internal module through an adapter.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NamedParameter pairs a parameter with its fully qualified state dict name
// ("lstm.weight_ih_l0", "fc.bias"). Optimizers take this form so state
// dicts round-trip under stable names.
type NamedParameter[B tensor.Backend] = nn.NamedParameter[B]
