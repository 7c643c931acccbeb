// Package optim implements gradient-based parameter optimization.
//
// Optimizers consume the gradient map produced by autodiff.Backward and
// update parameters in place. Gradients live on the tape, not on the
// parameters, so there is no ZeroGrad: the training loop clears the tape
// between batches instead.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.NamedParameters(), optim.AdamConfig{
//	    LR: 0.001,
//	})
//
//	for batch := range batches {
//	    output := model.Forward(batch.Images)
//	    loss := criterion.Forward(output, batch.Labels)
//	    grads := autodiff.Backward(loss, backend)
//	    optimizer.Step(grads)
//	    backend.Tape().Clear()
//	}
package optim

import (
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/tensor"
)

// Optimizer is the interface all optimization algorithms implement.
//
// StateDict and LoadStateDict expose the optimizer's internal buffers for
// checkpointing; together with GetLR and Name they satisfy
// nn.OptimizerState.
type Optimizer interface {
	// Step applies one gradient update to all parameters, in place.
	// The map comes from autodiff.Backward and is keyed by the parameter's
	// RawTensor; parameters without an entry are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate, for scheduling.
	SetLR(lr float32)

	// Name returns a short identifier such as "Adam".
	Name() string

	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores optimizer state. It fails on unknown keys or
	// shape mismatches.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// getGradient retrieves the gradient for a parameter, or nil if the
// parameter did not participate in the recorded computation.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}

// zerosLike allocates a zero-filled float32 buffer with src's shape.
func zerosLike(src *tensor.RawTensor) *tensor.RawTensor {
	raw, err := tensor.NewRaw(src.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	return raw
}
