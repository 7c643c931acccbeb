package train

import (
	"fmt"
	"io"
)

// Compile modes accepted by the --compile_mode flag. They are validated for
// configuration parity with accelerated runtimes; the CPU backend executes
// eagerly regardless.
const (
	CompileModeNone           = "none"
	CompileModeDefault        = "default"
	CompileModeReduceOverhead = "reduce-overhead"
	CompileModeMaxAutotune    = "max-autotune"
)

var compileModes = map[string]bool{
	CompileModeNone:           true,
	CompileModeDefault:        true,
	CompileModeReduceOverhead: true,
	CompileModeMaxAutotune:    true,
}

// Options is the full training configuration, populated from the CLI and
// read-only afterwards.
type Options struct {
	LearningRate    float64
	NumEpochs       int
	BatchSize       int
	HiddenSize      int
	NumLayers       int
	Bidirectional   bool
	DropoutRate     float64
	TrainSplit      float64
	UseAMP          bool
	PinMemory       bool
	NumWorkers      int
	CompileMode     string
	ChannelsImg     int
	DataDir         string
	SavingPath      string
	LoadingPath     string
	SeedNumber      int64 // negative means unseeded
	FreqOutputTrain int
	FreqOutputVal   int
}

// DefaultOptions returns the canonical hyperparameters for the MNIST run.
func DefaultOptions() Options {
	return Options{
		LearningRate:    1e-4,
		NumEpochs:       10,
		BatchSize:       1024,
		HiddenSize:      256,
		NumLayers:       3,
		DropoutRate:     0.0,
		TrainSplit:      5.0 / 6.0,
		CompileMode:     CompileModeNone,
		ChannelsImg:     1,
		DataDir:         "data",
		SeedNumber:      -1,
		FreqOutputTrain: 1,
		FreqOutputVal:   1,
	}
}

// Validate rejects invalid configurations before any training resource is
// allocated.
func (o *Options) Validate() error {
	if o.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, but is %g", o.LearningRate)
	}
	if o.NumEpochs < 0 {
		return fmt.Errorf("number of epochs must be non-negative, but is %d", o.NumEpochs)
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, but is %d", o.BatchSize)
	}
	if o.HiddenSize < 1 {
		return fmt.Errorf("hidden size must be positive, but is %d", o.HiddenSize)
	}
	if o.NumLayers < 1 {
		return fmt.Errorf("number of layers must be positive, but is %d", o.NumLayers)
	}
	// A zero rate disables the dropout layer entirely; an enabled rate must
	// lie in the open interval.
	if o.DropoutRate != 0 && !(o.DropoutRate > 0 && o.DropoutRate < 1) {
		return fmt.Errorf("dropout rate should be chosen between 0 and 1, but is %g", o.DropoutRate)
	}
	if !(o.TrainSplit > 0 && o.TrainSplit < 1) {
		return fmt.Errorf("train split should be chosen between 0 and 1, but is %g", o.TrainSplit)
	}
	if !compileModes[o.CompileMode] {
		return fmt.Errorf("%q is not a valid compile mode", o.CompileMode)
	}
	if o.NumWorkers < 0 {
		return fmt.Errorf("number of workers must be non-negative, but is %d", o.NumWorkers)
	}
	if o.PinMemory && o.NumWorkers < 1 {
		return fmt.Errorf("with pinned memory, a positive number of workers should be chosen")
	}
	if o.ChannelsImg != 1 {
		return fmt.Errorf("MNIST images have a single channel, but channels_img is %d", o.ChannelsImg)
	}
	if o.FreqOutputTrain < 1 || o.FreqOutputVal < 1 {
		return fmt.Errorf("output frequencies must be positive, but are %d and %d",
			o.FreqOutputTrain, o.FreqOutputVal)
	}
	return nil
}

// Echo writes the parsed configuration to w, mirroring the startup argument
// dump of the CLI.
func (o *Options) Echo(w io.Writer) {
	fmt.Fprintf(w, "%+v\n", *o)
}
