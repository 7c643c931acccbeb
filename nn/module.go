// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/loom-ml/loom/internal/serialization"
	"github.com/loom-ml/loom/tensor"
)

// Module is the contract shared by every layer and model in this package.
// Composite modules nest smaller ones; the MNIST classifier holds an LSTM
// and a Linear head behind this same interface, so training, checkpointing
// and evaluation code never care which architecture they were handed.
//
// The backend type parameter fixes the device at compile time.
type Module[B tensor.Backend] interface {
	// Forward runs the module on input and returns its output. Each
	// module documents the input shape it expects; Linear, for one,
	// wants [batch, in_features].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the module's trainable parameters, including
	// those of nested modules. Parameterless modules such as dropout
	// return an empty slice.
	Parameters() []*Parameter[B]

	// StateDict returns a map of parameter names to raw tensors.
	//
	// This is used for serialization. Nested module names are joined
	// with dots ("lstm.weight_ih_l0").
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads parameters from a state dictionary.
	//
	// Returns an error if a required parameter is missing or has the
	// wrong shape or dtype.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// Train puts the module in training mode (dropout active).
	Train()

	// Eval puts the module in evaluation mode (dropout disabled).
	Eval()
}

// The internal module types satisfy this interface directly; their method
// sets match, so the facade needs no adapter layer.

// Save writes a module's state dictionary to path in the Loom native
// format.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, rng, backend)
//	err := nn.Save(model, "model.loom", "Linear", nil)
func Save[B tensor.Backend](module Module[B], path, modelType string, metadata map[string]string) (err error) {
	writer, err := serialization.NewWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return writer.WriteStateDict(module.StateDict(), modelType, metadata)
}

// Load reads the state dictionary at path into module and returns the
// file header with its model type and metadata.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, rng, backend)
//	header, err := nn.Load("model.loom", model)
func Load[B tensor.Backend](path string, module Module[B]) (serialization.Header, error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return serialization.Header{}, err
	}
	defer func() {
		_ = reader.Close()
	}()

	stateDict, err := reader.ReadStateDict()
	if err != nil {
		return serialization.Header{}, err
	}

	if err := module.LoadStateDict(stateDict); err != nil {
		return serialization.Header{}, err
	}

	return reader.Header(), nil
}
