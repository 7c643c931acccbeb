package nn

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loom-ml/loom/internal/serialization"
	"github.com/loom-ml/loom/internal/tensor"
)

// OptimizerState is the optimizer surface checkpointing needs.
//
// It lets checkpoints serialize optimizer state without importing the optim
// package, which would create an import cycle. Optimizers from the optim
// package implement this interface.
type OptimizerState interface {
	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores optimizer state. It fails on missing keys or
	// shape mismatches.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// GetLR returns the current learning rate.
	GetLR() float32

	// Name returns a short identifier such as "Adam".
	Name() string
}

// optimizerPrefix namespaces optimizer entries inside the combined state
// dict so they can be split from model weights on load.
const optimizerPrefix = "optimizer."

// TimestampLayout formats timestamps embedded in artifact file names.
// Dots and colons are replaced by "p" so the result is filesystem-safe
// (e.g. "21p08p2026-14p05" for Aug 21 2026, 14:05).
const TimestampLayout = "02p01p2006-15p04"

// CheckpointFilename returns the default checkpoint file name for a training
// run, e.g. "lstm-lr-0.0001-batch-1024-21p08p2026-14p05.loom".
func CheckpointFilename(lr float64, batchSize int, now time.Time) string {
	return fmt.Sprintf("lstm-lr-%s-batch-%d-%s.loom",
		strconv.FormatFloat(lr, 'g', -1, 64), batchSize, now.Format(TimestampLayout))
}

// Checkpoint is a complete training state snapshot: model parameters,
// optimizer state and the epoch/loss they were taken at.
//
// Saving and restoring a checkpoint into a freshly constructed model and
// optimizer of the same architecture reproduces the original forward pass
// exactly.
type Checkpoint[B tensor.Backend] struct {
	Model     Module[B]
	Optimizer OptimizerState // may be nil for weights-only snapshots
	Epoch     int
	Step      int64
	Loss      float64
	Metadata  map[string]string
}

// Save writes the checkpoint to path in .loom format.
//
// Model parameters keep their state dict names; optimizer entries are
// stored under the "optimizer." prefix.
func (c *Checkpoint[B]) Save(path string) error {
	meta := &serialization.CheckpointMeta{
		IsCheckpoint: true,
		Epoch:        c.Epoch,
		Step:         c.Step,
		Loss:         c.Loss,
		TrainingMeta: c.Metadata,
	}

	var optimizerState map[string]*tensor.RawTensor
	if c.Optimizer != nil {
		optimizerState = c.Optimizer.StateDict()
		meta.OptimizerType = c.Optimizer.Name()
		if meta.TrainingMeta == nil {
			meta.TrainingMeta = make(map[string]string)
		}
		if _, ok := meta.TrainingMeta["learning_rate"]; !ok {
			meta.TrainingMeta["learning_rate"] = strconv.FormatFloat(float64(c.Optimizer.GetLR()), 'g', -1, 32)
		}
	}

	return SaveCheckpointState(path, c.Model.StateDict(), optimizerState, meta)
}

// SaveCheckpointState writes already-captured model and optimizer state
// dicts as a checkpoint file. The training loop uses it to persist its
// best-epoch snapshot, which exists only as deep-copied state dicts.
func SaveCheckpointState(
	path string,
	modelState, optimizerState map[string]*tensor.RawTensor,
	meta *serialization.CheckpointMeta,
) (err error) {
	logrus.Info("=> Saving checkpoint")

	combined := make(map[string]*tensor.RawTensor, len(modelState)+len(optimizerState))
	for name, raw := range modelState {
		combined[name] = raw
	}
	for name, raw := range optimizerState {
		combined[optimizerPrefix+name] = raw
	}

	writer, err := serialization.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := serialization.Header{
		ModelType:      "Checkpoint",
		CheckpointMeta: meta,
	}
	if err := writer.WriteStateDictWithHeader(combined, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

// LoadCheckpoint restores a checkpoint from path into a pre-constructed
// model and optimizer of the same architecture.
//
// Any structural mismatch between the file and the given model or optimizer
// (missing parameters, extra parameters, shape differences) is an error and
// nothing useful can be assumed about the target state afterwards. A nil
// optimizer restores model weights only.
func LoadCheckpoint[B tensor.Backend](path string, model Module[B], optimizer OptimizerState) (cp *Checkpoint[B], err error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := reader.Header()
	if header.CheckpointMeta == nil || !header.CheckpointMeta.IsCheckpoint {
		return nil, fmt.Errorf("file %s is not a checkpoint", path)
	}

	stateDict, err := reader.ReadStateDict()
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	modelState := make(map[string]*tensor.RawTensor)
	optimizerState := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if strings.HasPrefix(name, optimizerPrefix) {
			optimizerState[strings.TrimPrefix(name, optimizerPrefix)] = raw
		} else {
			modelState[name] = raw
		}
	}

	if err := model.LoadStateDict(modelState); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}
	if optimizer != nil {
		if err := optimizer.LoadStateDict(optimizerState); err != nil {
			return nil, fmt.Errorf("failed to load optimizer state: %w", err)
		}
	}

	logrus.Info("=> Checkpoint loaded.")

	return &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     header.CheckpointMeta.Epoch,
		Step:      header.CheckpointMeta.Step,
		Loss:      header.CheckpointMeta.Loss,
		Metadata:  header.CheckpointMeta.TrainingMeta,
	}, nil
}
