// Package nn implements the neural network modules of the loom training
// pipeline.
//
// The building blocks:
//   - Module interface: base interface for all components
//   - Parameter: trainable tensors with stable identity for the optimizer
//   - Linear: fully connected layer
//   - LSTM: multi-layer (optionally bidirectional) recurrent network
//   - Dropout: inverted dropout with an explicit random source
//   - LSTMClassifier: LSTM over image rows followed by a linear head
//   - CrossEntropyLoss: fused softmax cross entropy with mean or sum reduction
//
// Design follows PyTorch's nn.Module conventions adapted for Go generics.
package nn

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Type parameter B must satisfy the tensor.Backend interface. Modules built
// against an autodiff backend record their forward pass onto the gradient
// tape automatically.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including those of nested modules. Modules without trainable
	// parameters return an empty slice.
	Parameters() []*Parameter[B]

	// StateDict returns a name-to-tensor map of the module state.
	// Nested module names are joined with dots ("lstm.weight_ih_l0").
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores module state from a state dictionary.
	// Missing keys and shape or dtype mismatches are errors: a state
	// dict from a differently configured model must not load.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// Train puts the module in training mode (dropout active).
	Train()

	// Eval puts the module in evaluation mode (dropout disabled).
	Eval()
}
