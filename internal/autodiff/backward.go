package autodiff

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// BackwardCapable is a backend that can run a backward pass.
// AutodiffBackend implements it.
type BackwardCapable interface {
	tensor.Backend
	// GetTape returns the gradient tape used for backward computation.
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients of t with respect to every recorded input,
// seeding the output gradient with ones.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
//	dx := grads[x.Raw()]
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return BackwardWithSeed(t, backend, 1.0)
}

// BackwardWithSeed runs the backward pass with every element of the output
// gradient set to seed. Loss scaling during mixed-precision training seeds
// with the current scale factor instead of 1.
func BackwardWithSeed[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B, seed float32) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()

	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("backward: unsupported dtype %s (only float32 supported)", t.DType()))
	}

	outputGrad, err := tensor.NewRaw(t.Shape(), t.DType())
	if err != nil {
		panic(fmt.Sprintf("backward: failed to create output gradient: %v", err))
	}

	data := outputGrad.AsFloat32()
	for i := range data {
		data[i] = seed
	}

	return tape.Backward(outputGrad, backend)
}
