// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim implements gradient-descent update rules.
//
// # Overview
//
// Adam (adaptive moment estimation with bias correction) is the shipped
// optimizer; the Optimizer interface leaves room for others.
//
// # Basic Usage
//
//	import (
//	    "github.com/loom-ml/loom/optim"
//	    "github.com/loom-ml/loom/nn"
//	    "github.com/loom-ml/loom/autodiff"
//	    "github.com/loom-ml/loom/backend/cpu"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    model := nn.NewLSTMClassifier(cfg, rng, backend)
//
//	    optimizer := optim.NewAdam(model.NamedParameters(), optim.AdamConfig{
//	        LR:    0.001,
//	        Betas: [2]float32{0.9, 0.999},
//	    })
//	    _ = optimizer
//	}
//
// # Training Loop Pattern
//
//	for epoch := 0; epoch < numEpochs; epoch++ {
//	    for batch := range loader.Batches() {
//	        // 1. Record the forward pass
//	        tape := backend.Tape()
//	        tape.Clear()
//	        tape.StartRecording()
//	        loss := criterion.Forward(model.Forward(batch.Images), batch.Labels)
//	        tape.StopRecording()
//
//	        // 2. Backward pass
//	        grads := autodiff.Backward(loss, backend)
//
//	        // 3. Update parameters
//	        optimizer.Step(grads)
//	    }
//	}
//
// # Checkpointing
//
// Optimizers expose their moment buffers through StateDict/LoadStateDict,
// so a restored run continues with bias correction intact:
//
//	state := optimizer.StateDict()
//	err := optimizer.LoadStateDict(state)
package optim
