// Package mnist provides MNIST dataset loading for the Loom training
// framework.
//
// This package wraps the internal dataset implementation and exports a
// clean public API for reading IDX files, splitting the training set and
// serving shuffled mini-batches as backend tensors.
//
// Example usage:
//
//	import (
//	    "github.com/loom-ml/loom/mnist"
//	    "github.com/loom-ml/loom/autodiff"
//	    "github.com/loom-ml/loom/backend/cpu"
//	)
//
//	// Load the training set from a directory of IDX files
//	ds, err := mnist.LoadTraining("data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Split off a validation set
//	trainSet, valSet, err := ds.Split(5.0/6.0, rng)
//
//	// Serve mini-batches
//	backend := autodiff.New(cpu.New())
//	loader, err := mnist.NewLoader(trainSet, backend, mnist.LoaderConfig{
//	    BatchSize: 1024,
//	    Shuffle:   true,
//	})
//	for batch := range loader.Batches() {
//	    logits := model.Forward(batch.Images)
//	}
package mnist

import (
	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/tensor"
)

// NumClasses is the number of digit classes.
const NumClasses = mnist.NumClasses

// Standard file names inside the data directory. A ".gz" suffix on any of
// them is handled transparently.
const (
	TrainImagesFile = mnist.TrainImagesFile
	TrainLabelsFile = mnist.TrainLabelsFile
	TestImagesFile  = mnist.TestImagesFile
	TestLabelsFile  = mnist.TestLabelsFile
)

// Dataset is an in-memory collection of normalized images with labels.
// Subsets produced by Split share the backing arrays through an index view.
type Dataset = mnist.Dataset

// NewDataset creates a dataset from pre-normalized images and labels.
func NewDataset(images []float32, labels []int32, rows, cols int) (*Dataset, error) {
	return mnist.NewDataset(images, labels, rows, cols)
}

// LoadTraining reads the MNIST training set (60k samples) from dir.
func LoadTraining(dir string) (*Dataset, error) {
	return mnist.LoadTraining(dir)
}

// LoadTest reads the MNIST test set (10k samples) from dir.
func LoadTest(dir string) (*Dataset, error) {
	return mnist.LoadTest(dir)
}

// Batch is one mini-batch of images and labels as backend tensors.
type Batch[B tensor.Backend] = mnist.Batch[B]

// LoaderConfig configures a Loader.
type LoaderConfig = mnist.LoaderConfig

// Loader serves a dataset as mini-batches of backend tensors.
//
// Each call to Batches starts one epoch: a fresh (optionally shuffled)
// order over the dataset, cut into batches with the final batch holding
// the remainder.
type Loader[B tensor.Backend] = mnist.Loader[B]

// NewLoader creates a loader over dataset. The dataset must be non-empty
// and the batch size positive.
//
// Example:
//
//	loader, err := mnist.NewLoader(ds, backend, mnist.LoaderConfig{
//	    BatchSize:  1024,
//	    Shuffle:    true,
//	    NumWorkers: 2,
//	})
func NewLoader[B tensor.Backend](dataset *Dataset, backend B, cfg LoaderConfig) (*Loader[B], error) {
	return mnist.NewLoader(dataset, backend, cfg)
}
