package ops

import (
	"fmt"
	"math"

	"github.com/loom-ml/loom/internal/tensor"
)

// Reduction selects how per-sample cross-entropy losses are combined.
type Reduction int

const (
	// ReductionMean averages the per-sample losses over the batch.
	ReductionMean Reduction = iota
	// ReductionSum adds the per-sample losses without normalization.
	ReductionSum
)

// String returns the reduction name.
func (r Reduction) String() string {
	switch r {
	case ReductionMean:
		return "mean"
	case ReductionSum:
		return "sum"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// CrossEntropyForward computes the cross-entropy loss between logits and
// integer class targets.
//
//	loss = reduce_b( -log softmax(logits)[b, targets[b]] )
//
// logits must be [batchSize, numClasses] float32, targets [batchSize] int32.
// The result is a single-element tensor of shape [1]. Log-softmax is
// computed with max shifting for numerical stability.
func CrossEntropyForward(logits, targets *tensor.RawTensor, reduction Reduction) *tensor.RawTensor {
	logitsShape := logits.Shape()
	targetsShape := targets.Shape()

	if len(logitsShape) != 2 {
		panic(fmt.Sprintf("cross entropy: logits must be 2D [batch, classes], got %v", logitsShape))
	}
	if len(targetsShape) != 1 {
		panic(fmt.Sprintf("cross entropy: targets must be 1D [batch], got %v", targetsShape))
	}
	if logitsShape[0] != targetsShape[0] {
		panic(fmt.Sprintf("cross entropy: batch size mismatch, logits %d vs targets %d",
			logitsShape[0], targetsShape[0]))
	}
	if logits.DType() != tensor.Float32 || targets.DType() != tensor.Int32 {
		panic(fmt.Sprintf("cross entropy: expected float32 logits and int32 targets, got %s and %s",
			logits.DType(), targets.DType()))
	}

	batchSize := logitsShape[0]
	numClasses := logitsShape[1]

	logitsData := logits.AsFloat32()
	targetsData := targets.AsInt32()

	var totalLoss float64
	for b := 0; b < batchSize; b++ {
		target := int(targetsData[b])
		if target < 0 || target >= numClasses {
			panic(fmt.Sprintf("cross entropy: target %d out of range [0, %d) at sample %d",
				target, numClasses, b))
		}

		offset := b * numClasses

		maxVal := logitsData[offset]
		for j := 1; j < numClasses; j++ {
			if logitsData[offset+j] > maxVal {
				maxVal = logitsData[offset+j]
			}
		}

		var sumExp float64
		for j := 0; j < numClasses; j++ {
			sumExp += math.Exp(float64(logitsData[offset+j] - maxVal))
		}

		// -log softmax(x)[target] = log(Σ exp(x - max)) - (x[target] - max)
		totalLoss += math.Log(sumExp) - float64(logitsData[offset+target]-maxVal)
	}

	if reduction == ReductionMean {
		totalLoss /= float64(batchSize)
	}

	result, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32)
	if err != nil {
		panic(fmt.Sprintf("cross entropy: %v", err))
	}
	result.AsFloat32()[0] = float32(totalLoss)
	return result
}

// CrossEntropyOp records a cross-entropy loss for the backward pass.
//
// Only the logits receive a gradient; integer targets are constants.
//
// Backward:
//
//	∂L/∂logits[b,j] = g * (softmax(logits)[b,j] - 1{j == targets[b]})
//
// scaled by 1/batchSize for mean reduction, where g is the (scalar)
// incoming output gradient.
type CrossEntropyOp struct {
	logits    *tensor.RawTensor
	targets   *tensor.RawTensor
	output    *tensor.RawTensor
	reduction Reduction
}

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor, reduction Reduction) *CrossEntropyOp {
	return &CrossEntropyOp{
		logits:    logits,
		targets:   targets,
		output:    output,
		reduction: reduction,
	}
}

// Backward computes the logits gradient.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batchSize := shape[0]
	numClasses := shape[1]

	gradScale := outputGrad.AsFloat32()[0]
	if op.reduction == ReductionMean {
		gradScale /= float32(batchSize)
	}

	inputGrad, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(fmt.Sprintf("cross entropy backward: %v", err))
	}

	logitsData := op.logits.AsFloat32()
	targetsData := op.targets.AsInt32()
	gradData := inputGrad.AsFloat32()

	for b := 0; b < batchSize; b++ {
		offset := b * numClasses

		maxVal := logitsData[offset]
		for j := 1; j < numClasses; j++ {
			if logitsData[offset+j] > maxVal {
				maxVal = logitsData[offset+j]
			}
		}

		var sumExp float64
		for j := 0; j < numClasses; j++ {
			sumExp += math.Exp(float64(logitsData[offset+j] - maxVal))
		}

		target := int(targetsData[b])
		for j := 0; j < numClasses; j++ {
			softmax := float32(math.Exp(float64(logitsData[offset+j]-maxVal)) / sumExp)
			if j == target {
				softmax -= 1
			}
			gradData[offset+j] = gradScale * softmax
		}
	}

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the tensors receiving gradients: only the logits.
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the loss tensor.
func (op *CrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}
