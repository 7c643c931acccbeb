package nn

import (
	"fmt"

	"github.com/loom-ml/loom/internal/autodiff/ops"
	"github.com/loom-ml/loom/internal/tensor"
)

// CrossEntropyLoss computes fused softmax cross entropy for multi-class
// classification, with a configurable batch reduction.
//
// The training loop keeps two instances: a mean-reduced one whose output
// drives the backward pass, and a sum-reduced one whose per-batch values
// accumulate into an exact epoch loss (dividing by the dataset size at the
// end, so partial final batches are weighted correctly).
//
//	criterionMean := nn.NewCrossEntropyLoss(backend, ops.ReductionMean)
//	criterionSum := nn.NewCrossEntropyLoss(backend, ops.ReductionSum)
type CrossEntropyLoss[B tensor.Backend] struct {
	backend   B
	reduction ops.Reduction
}

// NewCrossEntropyLoss creates a cross entropy loss with the given reduction.
func NewCrossEntropyLoss[B tensor.Backend](backend B, reduction ops.Reduction) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{
		backend:   backend,
		reduction: reduction,
	}
}

// Reduction returns the configured batch reduction.
func (c *CrossEntropyLoss[B]) Reduction() ops.Reduction {
	return c.reduction
}

// Forward computes the loss for a batch.
//
//   - logits: [batch_size, num_classes] raw scores
//   - targets: [batch_size] class indices
//
// Returns a single-element tensor. On a gradient-recording backend the
// operation lands on the tape with the fused softmax-minus-onehot backward.
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	type crossEntropyBackend interface {
		CrossEntropy(logits, targets *tensor.RawTensor, reduction ops.Reduction) *tensor.RawTensor
	}

	if adBackend, ok := any(c.backend).(crossEntropyBackend); ok {
		resultRaw := adBackend.CrossEntropy(logits.Raw(), targets.Raw(), c.reduction)
		return tensor.New[float32, B](resultRaw, c.backend)
	}

	// Plain backends compute the loss without recording.
	resultRaw := ops.CrossEntropyForward(logits.Raw(), targets.Raw(), c.reduction)
	return tensor.New[float32, B](resultRaw, c.backend)
}

// Parameters returns an empty slice: loss functions have nothing to train.
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// CountCorrect returns how many rows of logits have their argmax at the
// target class.
func CountCorrect[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) int {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("count correct: logits must be 2D [batch, classes], got %v", shape))
	}
	if targets.NumElements() != shape[0] {
		panic(fmt.Sprintf("count correct: batch size mismatch, logits %d vs targets %d",
			shape[0], targets.NumElements()))
	}

	predictions := logits.Argmax(1).Data()
	targetData := targets.Data()

	correct := 0
	for i, p := range predictions {
		if p == targetData[i] {
			correct++
		}
	}
	return correct
}

// Accuracy returns the fraction of correctly classified rows in [0, 1].
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) float32 {
	batch := logits.Shape()[0]
	return float32(CountCorrect(logits, targets)) / float32(batch)
}
