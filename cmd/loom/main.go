// Package main provides the loom training CLI. It trains an LSTM digit
// classifier on MNIST end to end and leaves a checkpoint, loss and
// accuracy plots, a confusion matrix and gzipped metric archives behind.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loom-ml/loom/internal/amp"
	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/eval"
	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/optim"
	"github.com/loom-ml/loom/internal/report"
	"github.com/loom-ml/loom/internal/train"
)

type trainBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	opts := parseOptions()
	if err := run(log, opts); err != nil {
		log.WithError(err).Fatal("Run failed")
	}
}

// parseOptions binds the CLI flags onto the default configuration.
func parseOptions() train.Options {
	opts := train.DefaultOptions()
	flag.Float64Var(&opts.LearningRate, "learning_rate", opts.LearningRate, "learning rate for the Adam update rule")
	flag.IntVar(&opts.NumEpochs, "num_epochs", opts.NumEpochs, "number of epochs to train for")
	flag.IntVar(&opts.BatchSize, "batch_size", opts.BatchSize, "number of samples per optimizer update")
	flag.IntVar(&opts.HiddenSize, "hidden_size", opts.HiddenSize, "hidden size of the LSTM layers")
	flag.IntVar(&opts.NumLayers, "num_layers", opts.NumLayers, "number of stacked LSTM layers")
	flag.BoolVar(&opts.Bidirectional, "bidirectional", opts.Bidirectional, "use a bidirectional LSTM")
	flag.Float64Var(&opts.DropoutRate, "dropout_rate", opts.DropoutRate, "dropout rate between stacked LSTM layers")
	flag.Float64Var(&opts.TrainSplit, "train_split", opts.TrainSplit, "fraction of the training set to train on, the rest validates")
	flag.BoolVar(&opts.UseAMP, "use_amp", opts.UseAMP, "train with automatic mixed precision")
	flag.BoolVar(&opts.PinMemory, "pin_memory", opts.PinMemory, "pin batches ahead of device transfer")
	flag.IntVar(&opts.NumWorkers, "num_workers", opts.NumWorkers, "dataloader worker goroutines, 0 assembles batches inline")
	flag.StringVar(&opts.CompileMode, "compile_mode", opts.CompileMode, "compile mode hint: none, default, reduce-overhead or max-autotune")
	flag.IntVar(&opts.ChannelsImg, "channels_img", opts.ChannelsImg, "number of channels of the input images")
	flag.StringVar(&opts.DataDir, "data_dir", opts.DataDir, "directory holding the MNIST IDX files")
	flag.StringVar(&opts.SavingPath, "saving_path", opts.SavingPath, "directory for run artifacts (checkpoint, plots, archives)")
	flag.StringVar(&opts.LoadingPath, "loading_path", opts.LoadingPath, "checkpoint to restore before training")
	flag.Int64Var(&opts.SeedNumber, "seed_number", opts.SeedNumber, "RNG seed, negative seeds from the clock")
	flag.IntVar(&opts.FreqOutputTrain, "freq_output__train", opts.FreqOutputTrain, "print every n-th training batch")
	flag.IntVar(&opts.FreqOutputVal, "freq_output__val", opts.FreqOutputVal, "print every n-th validation batch")
	flag.Parse()
	return opts
}

func run(log *logrus.Logger, opts train.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	opts.Echo(os.Stdout)

	if opts.SavingPath != "" {
		if err := os.MkdirAll(opts.SavingPath, 0o755); err != nil {
			return fmt.Errorf("failed to create saving path: %w", err)
		}
	}

	seed := opts.SeedNumber
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	start := train.StartTimer()
	backend := autodiff.New(cpu.New())

	trainSet, valSet, testSet, err := loadDatasets(opts, rng)
	if err != nil {
		return err
	}
	fmt.Printf("# Train:val:test samples: %d:%d:%d \n",
		trainSet.NumSamples(), valSet.NumSamples(), testSet.NumSamples())

	// Row-by-row over the image: each of the 28 rows is one timestep of
	// 28 pixels.
	model := nn.NewLSTMClassifier(nn.ClassifierConfig{
		InputSize:     trainSet.Cols(),
		HiddenSize:    opts.HiddenSize,
		NumLayers:     opts.NumLayers,
		NumClasses:    mnist.NumClasses,
		SeqLen:        trainSet.Rows(),
		DropoutRate:   float32(opts.DropoutRate),
		Bidirectional: opts.Bidirectional,
	}, rng, backend)

	newLoader := func(ds *mnist.Dataset) (*mnist.Loader[trainBackend], error) {
		return mnist.NewLoader(ds, backend, mnist.LoaderConfig{
			BatchSize:  opts.BatchSize,
			Shuffle:    true,
			NumWorkers: opts.NumWorkers,
			PinMemory:  opts.PinMemory,
			Seed:       rng.Int63(),
		})
	}
	trainLoader, err := newLoader(trainSet)
	if err != nil {
		return err
	}
	valLoader, err := newLoader(valSet)
	if err != nil {
		return err
	}
	testLoader, err := newLoader(testSet)
	if err != nil {
		return err
	}

	optimizer := optim.NewAdam(model.NamedParameters(), optim.AdamConfig{
		LR: float32(opts.LearningRate),
	})

	if opts.LoadingPath != "" {
		cp, err := nn.LoadCheckpoint(opts.LoadingPath, model, optimizer)
		if err != nil {
			return fmt.Errorf("failed to restore checkpoint: %w", err)
		}
		log.WithFields(logrus.Fields{
			"path":  opts.LoadingPath,
			"epoch": cp.Epoch,
			"loss":  cp.Loss,
		}).Info("Resumed from checkpoint")
	}

	trainer, err := train.NewTrainer(backend, train.TrainerConfig[*cpu.CPUBackend]{
		Model:           model,
		Optimizer:       optimizer,
		Scaler:          amp.NewGradScaler(opts.UseAMP),
		TrainLoader:     trainLoader,
		ValLoader:       valLoader,
		FreqOutputTrain: opts.FreqOutputTrain,
		FreqOutputVal:   opts.FreqOutputVal,
		Out:             os.Stdout,
		Log:             log,
	})
	if err != nil {
		return err
	}

	history, best, err := trainer.TrainAndValidate(opts.NumEpochs)
	if err != nil {
		return err
	}
	train.EndTimerAndLog(os.Stdout, start,
		fmt.Sprintf("\nTraining of %d epoch(s) finished!", opts.NumEpochs))

	now := time.Now()
	ckptPath := filepath.Join(opts.SavingPath,
		nn.CheckpointFilename(opts.LearningRate, opts.BatchSize, now))
	if err := best.Save(ckptPath); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	report.CountParameters(model, os.Stdout)

	if _, err := eval.CheckAccuracy(model, trainLoader, "train", os.Stdout); err != nil {
		return err
	}
	if _, err := eval.CheckAccuracy(model, testLoader, "test", os.Stdout); err != nil {
		return err
	}

	if _, err := report.LossPlot(history.TrainLosses, history.ValLosses,
		opts.LearningRate, opts.SavingPath, now); err != nil {
		return err
	}
	if _, err := report.AccuracyPlot(history.TrainAccs, history.ValAccs,
		opts.SavingPath, now); err != nil {
		return err
	}

	matrix, err := eval.ComputeConfusionMatrix(model, testLoader, os.Stdout)
	if err != nil {
		return err
	}
	normalized, err := matrix.Normalize()
	if err != nil {
		return err
	}
	report.WriteConfusionMatrix(os.Stdout, normalized)
	if _, err := report.ConfusionHeatmap(normalized, opts.SavingPath, now); err != nil {
		return err
	}

	if _, err := report.SaveMetricsArchive(history, opts.LearningRate,
		opts.BatchSize, opts.SavingPath, now); err != nil {
		return err
	}
	if _, err := report.SaveConfusionArchive(normalized, opts.SavingPath, now); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"checkpoint": ckptPath,
		"best_epoch": best.Epoch,
	}).Info("Run artifacts written")
	return nil
}

// loadDatasets reads the MNIST IDX files and carves the training set into
// a train and a validation split.
func loadDatasets(opts train.Options, rng *rand.Rand) (trainSet, valSet, testSet *mnist.Dataset, err error) {
	full, err := mnist.LoadTraining(opts.DataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load training data: %w", err)
	}
	testSet, err = mnist.LoadTest(opts.DataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load test data: %w", err)
	}
	trainSet, valSet, err = full.Split(opts.TrainSplit, rng)
	if err != nil {
		return nil, nil, nil, err
	}
	return trainSet, valSet, testSet, nil
}
