// Package mnist loads the MNIST handwritten digit dataset from IDX files
// and serves it to the training loop as shuffled mini-batches.
package mnist

import (
	"fmt"
	"math/rand"
	"path/filepath"
)

// Standard file names inside the data directory. A ".gz" suffix on any of
// them is handled transparently.
const (
	TrainImagesFile = "train-images-idx3-ubyte"
	TrainLabelsFile = "train-labels-idx1-ubyte"
	TestImagesFile  = "t10k-images-idx3-ubyte"
	TestLabelsFile  = "t10k-labels-idx1-ubyte"
)

// NumClasses is the number of digit classes.
const NumClasses = 10

// Pixels are scaled to [0, 1] and then standardized with mean 0.5 and
// std 0.5, putting them in [-1, 1].
const (
	normalizeMean = 0.5
	normalizeStd  = 0.5
)

// Dataset is an in-memory collection of normalized images with labels.
// Subsets produced by Split share the backing arrays through an index view,
// so splitting 60k images does not copy pixel data.
type Dataset struct {
	images  []float32 // flattened, numSamples * rows * cols
	labels  []int32
	rows    int
	cols    int
	indices []int // nil means identity
}

// NewDataset wraps pre-normalized image data. Used directly by tests and by
// the IDX loaders.
func NewDataset(images []float32, labels []int32, rows, cols int) (*Dataset, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", rows, cols)
	}
	if len(images) != len(labels)*rows*cols {
		return nil, fmt.Errorf("image data length %d does not match %d samples of %dx%d",
			len(images), len(labels), rows, cols)
	}
	return &Dataset{images: images, labels: labels, rows: rows, cols: cols}, nil
}

// LoadTraining loads the 60k-sample training set from dir.
func LoadTraining(dir string) (*Dataset, error) {
	return load(filepath.Join(dir, TrainImagesFile), filepath.Join(dir, TrainLabelsFile))
}

// LoadTest loads the 10k-sample test set from dir.
func LoadTest(dir string) (*Dataset, error) {
	return load(filepath.Join(dir, TestImagesFile), filepath.Join(dir, TestLabelsFile))
}

func load(imagesPath, labelsPath string) (*Dataset, error) {
	pixels, rows, cols, err := readIDXImages(imagesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	rawLabels, err := readIDXLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}

	numSamples := len(pixels) / (rows * cols)
	if numSamples != len(rawLabels) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", numSamples, len(rawLabels))
	}

	images := make([]float32, len(pixels))
	for i, p := range pixels {
		images[i] = (float32(p)/255.0 - normalizeMean) / normalizeStd
	}
	labels := make([]int32, len(rawLabels))
	for i, l := range rawLabels {
		labels[i] = int32(l)
	}

	return NewDataset(images, labels, rows, cols)
}

// NumSamples returns the number of samples visible through this view.
func (d *Dataset) NumSamples() int {
	if d.indices != nil {
		return len(d.indices)
	}
	return len(d.labels)
}

// Rows returns the image height in pixels.
func (d *Dataset) Rows() int { return d.rows }

// Cols returns the image width in pixels.
func (d *Dataset) Cols() int { return d.cols }

// Label returns the class of sample i.
func (d *Dataset) Label(i int) int32 {
	return d.labels[d.index(i)]
}

// Image returns the normalized pixels of sample i as a view into the
// backing array. Callers must not modify the returned slice.
func (d *Dataset) Image(i int) []float32 {
	base := d.index(i) * d.rows * d.cols
	return d.images[base : base+d.rows*d.cols]
}

func (d *Dataset) index(i int) int {
	if d.indices != nil {
		return d.indices[i]
	}
	return i
}

// Split partitions the dataset into two disjoint random subsets, the first
// holding int(trainRatio * N) samples. Both subsets are index views over
// the receiver's storage.
func (d *Dataset) Split(trainRatio float64, rng *rand.Rand) (train, val *Dataset, err error) {
	if trainRatio <= 0 || trainRatio >= 1 {
		return nil, nil, fmt.Errorf("train ratio must be in (0, 1), got %g", trainRatio)
	}

	n := d.NumSamples()
	perm := rng.Perm(n)
	for i, p := range perm {
		perm[i] = d.index(p)
	}

	numTrain := int(trainRatio * float64(n))
	train = &Dataset{images: d.images, labels: d.labels, rows: d.rows, cols: d.cols,
		indices: perm[:numTrain]}
	val = &Dataset{images: d.images, labels: d.labels, rows: d.rows, cols: d.cols,
		indices: perm[numTrain:]}
	return train, val, nil
}
