package autodiff

import (
	"fmt"

	"github.com/loom-ml/loom/internal/autodiff/ops"
	"github.com/loom-ml/loom/internal/tensor"
)

// GradientTape records operations during the forward pass and replays them
// in reverse to compute gradients.
//
// A training step clears the tape, records the forward computation between
// StartRecording and StopRecording, and then calls Backward with the seed
// gradient of the loss.
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording reports whether the tape is currently recording operations.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record adds an operation to the tape if recording is enabled.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear removes all recorded operations. Recording state is preserved.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// Backward computes gradients for all inputs by walking the tape in reverse.
//
// The output gradient seeds the last recorded operation's output. Gradients
// are accumulated when the same tensor feeds multiple operations. Returns a
// map from RawTensor to its accumulated gradient.
func (t *GradientTape) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.operations) == 0 {
		return grads
	}

	// Gradient computation itself must not be recorded.
	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	grads[t.operations[len(t.operations)-1].Output()] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]

		var inputGrads []*tensor.RawTensor
		if multiOp, ok := op.(ops.MultiOutputOperation); ok {
			inputGrads = multiOutputInputGrads(multiOp, grads, backend)
		} else if outGrad, flowing := grads[op.Output()]; flowing {
			inputGrads = op.Backward(outGrad, backend)
		}
		if inputGrads == nil {
			// No gradient reaches this operation's outputs.
			continue
		}

		for j, input := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			accumulate(grads, input, inputGrads[j], backend)
		}
	}

	return grads
}

// multiOutputInputGrads gathers the gradients of every output of a
// multi-output operation and delegates to its BackwardMulti. Outputs that
// received no gradient are fed zeros; if none received any, gradient flow
// stops and nil is returned.
func multiOutputInputGrads(
	op ops.MultiOutputOperation,
	grads map[*tensor.RawTensor]*tensor.RawTensor,
	backend tensor.Backend,
) []*tensor.RawTensor {
	outputs := op.Outputs()
	outputGrads := make([]*tensor.RawTensor, len(outputs))

	flowing := false
	for j, out := range outputs {
		if grad, ok := grads[out]; ok {
			outputGrads[j] = grad
			flowing = true
		}
	}
	if !flowing {
		return nil
	}

	for j, out := range outputs {
		if outputGrads[j] == nil {
			outputGrads[j] = zerosLike(out)
		}
	}

	return op.BackwardMulti(outputGrads, backend)
}

// accumulate adds grad into the running gradient of input.
func accumulate(
	grads map[*tensor.RawTensor]*tensor.RawTensor,
	input, grad *tensor.RawTensor,
	backend tensor.Backend,
) {
	if existing, ok := grads[input]; ok {
		grads[input] = backend.Add(existing, grad)
	} else {
		grads[input] = grad
	}
}

// zerosLike allocates a zero-filled tensor with x's shape and dtype.
func zerosLike(x *tensor.RawTensor) *tensor.RawTensor {
	zero, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(fmt.Sprintf("autodiff: %v", err))
	}
	return zero
}
