// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"
	"time"

	"github.com/loom-ml/loom/internal/autodiff/ops"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/tensor"
)

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with scaled uniform initialization.
//
// Example:
//
//	backend := cpu.New()
//	rng := rand.New(rand.NewSource(42))
//	layer := nn.NewLinear(784, 128, rng, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, rng, backend)
}

// LSTM represents a multi-layer long short-term memory network, optionally
// bidirectional, with dropout between stacked layers.
type LSTM[B tensor.Backend] = nn.LSTM[B]

// NewLSTM creates a new LSTM.
//
// Example:
//
//	backend := cpu.New()
//	rng := rand.New(rand.NewSource(42))
//	lstm := nn.NewLSTM(28, 256, 3, 0.0, false, rng, backend)
func NewLSTM[B tensor.Backend](
	inputSize, hiddenSize, numLayers int,
	dropoutRate float32,
	bidirectional bool,
	rng *rand.Rand,
	backend B,
) *LSTM[B] {
	return nn.NewLSTM(inputSize, hiddenSize, numLayers, dropoutRate, bidirectional, rng, backend)
}

// Dropout represents an inverted dropout layer with an explicit random
// source. Active in training mode, identity in eval mode.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a new dropout layer with the given drop probability.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	drop := nn.NewDropout(0.5, rng, backend)
func NewDropout[B tensor.Backend](rate float32, rng *rand.Rand, backend B) *Dropout[B] {
	return nn.NewDropout(rate, rng, backend)
}

// Models

// ClassifierConfig holds the architecture of an LSTMClassifier.
type ClassifierConfig = nn.ClassifierConfig

// LSTMClassifier reads an image row by row with an LSTM and classifies the
// flattened sequence of hidden states with a linear head.
type LSTMClassifier[B tensor.Backend] = nn.LSTMClassifier[B]

// NewLSTMClassifier creates the classifier with freshly initialized weights.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	rng := rand.New(rand.NewSource(42))
//	model := nn.NewLSTMClassifier(nn.ClassifierConfig{
//	    InputSize:  28,
//	    HiddenSize: 256,
//	    NumLayers:  3,
//	    NumClasses: 10,
//	    SeqLen:     28,
//	}, rng, backend)
func NewLSTMClassifier[B tensor.Backend](cfg ClassifierConfig, rng *rand.Rand, backend B) *LSTMClassifier[B] {
	return nn.NewLSTMClassifier(cfg, rng, backend)
}

// Loss Functions

// Reduction selects how per-sample cross-entropy losses are combined.
type Reduction = ops.Reduction

// Reduction constants.
const (
	ReductionMean Reduction = ops.ReductionMean
	ReductionSum  Reduction = ops.ReductionSum
)

// CrossEntropyLoss represents the cross-entropy loss for classification.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a new cross-entropy loss function.
//
// Example:
//
//	backend := cpu.New()
//	criterion := nn.NewCrossEntropyLoss(backend, nn.ReductionMean)
//	loss := criterion.Forward(logits, labels)
func NewCrossEntropyLoss[B tensor.Backend](backend B, reduction Reduction) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend, reduction)
}

// Initialization functions

// ScaledUniform initializes a tensor with values drawn uniformly from
// [-1/sqrt(fanIn), 1/sqrt(fanIn)].
//
// Example:
//
//	backend := cpu.New()
//	rng := rand.New(rand.NewSource(42))
//	weights := nn.ScaledUniform(784, tensor.Shape{128, 784}, rng, backend)
func ScaledUniform[B tensor.Backend](fanIn int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return nn.ScaledUniform(fanIn, shape, rng, backend)
}

// Zeros initializes a tensor with zeros (for biases).
//
// Example:
//
//	backend := cpu.New()
//	bias := nn.Zeros(tensor.Shape{128}, backend)
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}

// Utility functions

// CountCorrect returns how many rows of logits have their argmax at the
// target class.
func CountCorrect[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) int {
	return nn.CountCorrect(logits, targets)
}

// Accuracy computes the classification accuracy as a fraction in [0, 1].
//
// Example:
//
//	acc := nn.Accuracy(logits, labels)
//	fmt.Printf("Accuracy: %.2f %%\n", acc*100)
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) float32 {
	return nn.Accuracy(logits, targets)
}

// Checkpointing

// OptimizerState is the optimizer surface checkpointing needs.
type OptimizerState = nn.OptimizerState

// Checkpoint is a complete training state snapshot: model parameters,
// optimizer state and the epoch/loss they were taken at.
type Checkpoint[B tensor.Backend] = nn.Checkpoint[B]

// TimestampLayout formats timestamps embedded in artifact file names.
const TimestampLayout = nn.TimestampLayout

// CheckpointFilename returns the default checkpoint file name for a
// training run, e.g. "lstm-lr-0.0001-batch-1024-21p08p2026-14p05.loom".
func CheckpointFilename(lr float64, batchSize int, now time.Time) string {
	return nn.CheckpointFilename(lr, batchSize, now)
}

// LoadCheckpoint restores model parameters, and optimizer state when
// optimizer is non-nil, from a .loom checkpoint file.
//
// Example:
//
//	cp, err := nn.LoadCheckpoint("run.loom", model, optimizer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("resuming from epoch %d\n", cp.Epoch)
func LoadCheckpoint[B tensor.Backend](path string, model Module[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	return nn.LoadCheckpoint(path, model, optimizer)
}
