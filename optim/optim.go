// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/loom-ml/loom/internal/optim"
	"github.com/loom-ml/loom/nn"
	"github.com/loom-ml/loom/tensor"
)

// Optimizer is the update-rule interface shared by all optimizers.
type Optimizer = optim.Optimizer

// Adam (Adaptive Moment Estimation)

// Adam holds the moment estimates and timestep of an Adam run.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig sets the Adam hyperparameters.
type AdamConfig = optim.AdamConfig

// NewAdam builds a bias-corrected Adam optimizer over params.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model := nn.NewLSTMClassifier(cfg, rng, backend)
//	optimizer := optim.NewAdam(
//	    model.NamedParameters(),
//	    optim.AdamConfig{
//	        LR:    0.001,
//	        Betas: [2]float32{0.9, 0.999},
//	        Eps:   1e-8,
//	    },
//	)
func NewAdam[B tensor.Backend](params []nn.NamedParameter[B], config AdamConfig) *Adam[B] {
	return optim.NewAdam(params, config)
}
