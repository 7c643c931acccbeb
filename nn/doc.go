// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, LSTM, Dropout
//   - Models: LSTMClassifier
//   - Loss functions: CrossEntropyLoss (mean or sum reduction)
//   - Utilities: Module interface, Parameter, CountCorrect, Accuracy
//   - Initialization: ScaledUniform, Zeros
//   - Checkpointing: Save, Load, LoadCheckpoint
//
// # Basic Usage
//
//	import (
//	    "github.com/loom-ml/loom/nn"
//	    "github.com/loom-ml/loom/autodiff"
//	    "github.com/loom-ml/loom/backend/cpu"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    rng := rand.New(rand.NewSource(42))
//
//	    // Build an LSTM classifier over 28x28 images
//	    model := nn.NewLSTMClassifier(nn.ClassifierConfig{
//	        InputSize:  28,
//	        HiddenSize: 256,
//	        NumLayers:  3,
//	        NumClasses: 10,
//	        SeqLen:     28,
//	    }, rng, backend)
//
//	    // Forward pass
//	    logits := model.Forward(images)
//	}
//
// # Layers
//
// Linear: Fully connected layer with scaled uniform initialization
//
//	layer := nn.NewLinear(inFeatures, outFeatures, rng, backend)
//
// LSTM: Stacked (optionally bidirectional) recurrent network
//
//	lstm := nn.NewLSTM(inputSize, hiddenSize, numLayers, dropoutRate, bidirectional, rng, backend)
//
// Dropout: Inverted dropout, active only in training mode
//
//	drop := nn.NewDropout(0.5, rng, backend)
//
// # Loss Functions
//
// CrossEntropyLoss: For classification tasks (numerically stable)
//
//	criterion := nn.NewCrossEntropyLoss(backend, nn.ReductionMean)
//	loss := criterion.Forward(logits, labels)
//
// # Train and Eval Mode
//
// Modules carry a mode flag that gates training-only behavior:
//
//	model.Train()  // dropout active
//	model.Eval()   // dropout disabled
//
// # Parameter Management
//
// Access model parameters for optimization:
//
//	for _, named := range model.NamedParameters() {
//	    fmt.Println(named.Name, named.Param.Tensor().Shape())
//	}
//
// # Checkpointing
//
// Save weights, or restore a full training snapshot:
//
//	err := nn.Save(model, "model.loom", "LSTMClassifier", nil)
//	header, err := nn.Load("model.loom", model)
//
//	cp, err := nn.LoadCheckpoint("run.loom", model, optimizer)
package nn
