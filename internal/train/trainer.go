package train

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loom-ml/loom/internal/amp"
	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/autodiff/ops"
	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/optim"
	"github.com/loom-ml/loom/internal/serialization"
	"github.com/loom-ml/loom/internal/tensor"
)

// TrainerConfig wires a model, optimizer and data loaders into a Trainer.
// Scaler, Out and Log may be left nil; output frequencies of zero mean
// every batch.
type TrainerConfig[B tensor.Backend] struct {
	Model       *nn.LSTMClassifier[*autodiff.AutodiffBackend[B]]
	Optimizer   optim.Optimizer
	Scaler      *amp.GradScaler
	TrainLoader *mnist.Loader[*autodiff.AutodiffBackend[B]]
	ValLoader   *mnist.Loader[*autodiff.AutodiffBackend[B]]

	// How often batch progress is printed, in batches.
	FreqOutputTrain int
	FreqOutputVal   int

	// Destination for progress output, os.Stdout when nil.
	Out io.Writer
	// Structured logger, logrus.StandardLogger when nil.
	Log *logrus.Logger
}

// Trainer runs the epoch loop: batched gradient descent on the training
// split, loss and accuracy tracking on the validation split, and capture
// of the best-performing weights.
type Trainer[B tensor.Backend] struct {
	backend   *autodiff.AutodiffBackend[B]
	model     *nn.LSTMClassifier[*autodiff.AutodiffBackend[B]]
	optimizer optim.Optimizer
	scaler    *amp.GradScaler

	// The mean-reduced loss drives the backward pass; the sum-reduced one
	// accumulates exact epoch totals.
	criterionMean *nn.CrossEntropyLoss[*autodiff.AutodiffBackend[B]]
	criterionSum  *nn.CrossEntropyLoss[*autodiff.AutodiffBackend[B]]

	trainLoader *mnist.Loader[*autodiff.AutodiffBackend[B]]
	valLoader   *mnist.Loader[*autodiff.AutodiffBackend[B]]

	freqTrain int
	freqVal   int

	out io.Writer
	log *logrus.Logger
}

// NewTrainer validates the configuration and builds a Trainer on the given
// recording backend.
func NewTrainer[B tensor.Backend](backend *autodiff.AutodiffBackend[B], cfg TrainerConfig[B]) (*Trainer[B], error) {
	if cfg.Model == nil {
		return nil, errors.New("trainer: model is required")
	}
	if cfg.Optimizer == nil {
		return nil, errors.New("trainer: optimizer is required")
	}
	if cfg.TrainLoader == nil {
		return nil, errors.New("trainer: training loader is required")
	}
	if cfg.ValLoader == nil {
		return nil, errors.New("trainer: validation loader is required")
	}
	if cfg.FreqOutputTrain < 0 || cfg.FreqOutputVal < 0 {
		return nil, fmt.Errorf("trainer: output frequencies must be non-negative, got %d and %d",
			cfg.FreqOutputTrain, cfg.FreqOutputVal)
	}

	scaler := cfg.Scaler
	if scaler == nil {
		scaler = amp.NewGradScaler(false)
	}
	freqTrain := cfg.FreqOutputTrain
	if freqTrain == 0 {
		freqTrain = 1
	}
	freqVal := cfg.FreqOutputVal
	if freqVal == 0 {
		freqVal = 1
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Trainer[B]{
		backend:       backend,
		model:         cfg.Model,
		optimizer:     cfg.Optimizer,
		scaler:        scaler,
		criterionMean: nn.NewCrossEntropyLoss(backend, ops.ReductionMean),
		criterionSum:  nn.NewCrossEntropyLoss(backend, ops.ReductionSum),
		trainLoader:   cfg.TrainLoader,
		valLoader:     cfg.ValLoader,
		freqTrain:     freqTrain,
		freqVal:       freqVal,
		out:           out,
		log:           log,
	}, nil
}

// History collects per-epoch metrics over a full training run. Accuracies
// are fractions in [0, 1]; losses are dataset-size-weighted means.
type History struct {
	StartedAt   time.Time `json:"started_at"`
	TrainLosses []float64 `json:"train_losses"`
	ValLosses   []float64 `json:"val_losses"`
	TrainAccs   []float64 `json:"train_accs"`
	ValAccs     []float64 `json:"val_accs"`
	BestEpoch   int       `json:"best_epoch"`
	MinValLoss  float64   `json:"min_val_loss"`
}

// NumEpochs returns how many epochs the history covers.
func (h *History) NumEpochs() int {
	return len(h.TrainLosses)
}

// BestCheckpoint holds deep copies of the model and optimizer state from
// the epoch with the lowest validation loss. Copies are taken at capture
// time, so later training steps cannot disturb them.
type BestCheckpoint struct {
	ModelState     map[string]*tensor.RawTensor
	OptimizerState map[string]*tensor.RawTensor
	Epoch          int
	ValLoss        float64
	OptimizerType  string
	LearningRate   float32
}

// Save writes the captured states as a checkpoint file at path.
func (c *BestCheckpoint) Save(path string) error {
	meta := &serialization.CheckpointMeta{
		IsCheckpoint:  true,
		Epoch:         c.Epoch,
		Loss:          c.ValLoss,
		OptimizerType: c.OptimizerType,
		TrainingMeta: map[string]string{
			"learning_rate": strconv.FormatFloat(float64(c.LearningRate), 'g', -1, 32),
		},
	}
	if step, ok := c.OptimizerState["step"]; ok && step.DType() == tensor.Int32 {
		meta.Step = int64(step.AsInt32()[0])
	}
	return nn.SaveCheckpointState(path, c.ModelState, c.OptimizerState, meta)
}

// TrainAndValidate runs numEpochs of training, each followed by a full
// validation pass, and returns the metric history together with the best
// checkpoint seen.
//
// Per batch, the training pass records the forward computation, seeds the
// backward pass with the scaler's loss scale and lets the scaler unscale
// the gradients and drive the optimizer. Epoch losses accumulate through
// the sum-reduced criterion and are divided by the dataset size at the
// end, so partial final batches carry their exact weight.
func (t *Trainer[B]) TrainAndValidate(numEpochs int) (*History, *BestCheckpoint, error) {
	if numEpochs < 1 {
		return nil, nil, fmt.Errorf("trainer: need at least one epoch, got %d", numEpochs)
	}

	history := &History{
		StartedAt:   time.Now(),
		TrainLosses: make([]float64, 0, numEpochs),
		ValLosses:   make([]float64, 0, numEpochs),
		TrainAccs:   make([]float64, 0, numEpochs),
		ValAccs:     make([]float64, 0, numEpochs),
		MinValLoss:  math.Inf(1),
	}
	best := &BestCheckpoint{
		ValLoss:       math.Inf(1),
		OptimizerType: t.optimizer.Name(),
		LearningRate:  t.optimizer.GetLR(),
	}

	t.log.WithFields(logrus.Fields{
		"epochs":        numEpochs,
		"train_samples": t.trainLoader.NumSamples(),
		"val_samples":   t.valLoader.NumSamples(),
		"batch_size":    t.trainLoader.BatchSize(),
		"amp":           t.scaler.Enabled(),
	}).Info("Starting training")

	for epoch := 0; epoch < numEpochs; epoch++ {
		epochStart := time.Now()

		trainLossSum, trainCorrect, trainSeen := t.trainEpoch(epoch, epochStart)
		valLossSum, valCorrect, valSeen := t.validateEpoch(epoch, epochStart)

		trainLoss := trainLossSum / float64(trainSeen)
		valLoss := valLossSum / float64(valSeen)
		trainAcc := float64(trainCorrect) / float64(trainSeen)
		valAcc := float64(valCorrect) / float64(valSeen)

		history.TrainLosses = append(history.TrainLosses, trainLoss)
		history.ValLosses = append(history.ValLosses, valLoss)
		history.TrainAccs = append(history.TrainAccs, trainAcc)
		history.ValAccs = append(history.ValAccs, valAcc)

		if valLoss < history.MinValLoss {
			history.MinValLoss = valLoss
			history.BestEpoch = epoch
			best.ModelState = cloneStateDict(t.model.StateDict())
			best.OptimizerState = cloneStateDict(t.optimizer.StateDict())
			best.Epoch = epoch
			best.ValLoss = valLoss
		}

		duration := time.Since(epochStart).Seconds()
		fmt.Fprintf(t.out,
			"\nEpoch %d: %.3f [sec]\tMean train/val loss: %.4f/%.4f\tTrain/val acc: %.2f %%/%.2f %%\n\n",
			epoch, duration, trainLoss, valLoss, 100*trainAcc, 100*valAcc)

		t.log.WithFields(logrus.Fields{
			"epoch":      epoch,
			"train_loss": trainLoss,
			"val_loss":   valLoss,
			"train_acc":  trainAcc,
			"val_acc":    valAcc,
			"duration":   duration,
		}).Debug("Training epoch completed")

		t.model.Train()
	}

	t.log.WithFields(logrus.Fields{
		"best_epoch":   history.BestEpoch,
		"min_val_loss": history.MinValLoss,
	}).Info("Training finished")

	return history, best, nil
}

// trainEpoch runs one pass over the training loader and returns the summed
// loss, the number of correct predictions and the number of samples seen.
func (t *Trainer[B]) trainEpoch(epoch int, epochStart time.Time) (lossSum float64, correct, seen int) {
	tape := t.backend.Tape()

	batchIdx := 0
	for b := range t.trainLoader.Batches() {
		t.model.Train()

		tape.Clear()
		tape.StartRecording()
		logits := t.model.Forward(b.Images)
		meanLoss := t.criterionMean.Forward(logits, b.Labels)
		tape.StopRecording()

		grads := autodiff.BackwardWithSeed(meanLoss, t.backend, t.scaler.Scale())
		t.scaler.Step(t.optimizer, grads)
		t.scaler.Update()

		detached := logits.Detach()
		lossSum += float64(t.criterionSum.Forward(detached, b.Labels).Item())

		t.model.Eval()
		correct += nn.CountCorrect(detached, b.Labels)
		seen += b.Size

		t.printBatchInfo("Train", epoch, batchIdx, t.trainLoader,
			float64(meanLoss.Item()), epochStart, t.freqTrain)
		batchIdx++
	}
	tape.Clear()

	return lossSum, correct, seen
}

// validateEpoch runs one pass over the validation loader with the model in
// eval mode and nothing recorded, returning the same accumulators as
// trainEpoch.
func (t *Trainer[B]) validateEpoch(epoch int, epochStart time.Time) (lossSum float64, correct, seen int) {
	t.model.Eval()

	t.backend.NoGrad(func() {
		batchIdx := 0
		for b := range t.valLoader.Batches() {
			logits := t.model.Forward(b.Images)
			batchLossSum := float64(t.criterionSum.Forward(logits, b.Labels).Item())

			lossSum += batchLossSum
			correct += nn.CountCorrect(logits, b.Labels)
			seen += b.Size

			t.printBatchInfo("Val", epoch, batchIdx, t.valLoader,
				batchLossSum/float64(b.Size), epochStart, t.freqVal)
			batchIdx++
		}
	})

	return lossSum, correct, seen
}

// printBatchInfo writes one progress line for the current batch when the
// batch index lands on the output frequency. The reported sample count is
// clamped to the dataset size on the final, possibly partial, batch.
func (t *Trainer[B]) printBatchInfo(
	mode string,
	epoch, batchIdx int,
	loader *mnist.Loader[*autodiff.AutodiffBackend[B]],
	loss float64,
	epochStart time.Time,
	frequency int,
) {
	if batchIdx%frequency != 0 {
		return
	}

	total := loader.NumSamples()
	current := (batchIdx + 1) * loader.BatchSize()
	if batchIdx == loader.NumBatches()-1 {
		current = total
	}
	progress := 100 * float64(current) / float64(total)
	width := len(strconv.Itoa(total))

	fmt.Fprintf(t.out, "%s epoch: %d  [%0*d / %d (%06.2f %%)]  %s loss: %.4f  Runtime: %.3f s\n",
		mode, epoch, width, current, total, progress, mode, loss, time.Since(epochStart).Seconds())
}

// cloneStateDict deep-copies every tensor in a state dict.
func cloneStateDict(src map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	dst := make(map[string]*tensor.RawTensor, len(src))
	for name, raw := range src {
		dst[name] = raw.Clone()
	}
	return dst
}
