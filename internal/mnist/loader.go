package mnist

import (
	"fmt"
	"math/rand"

	"github.com/loom-ml/loom/internal/parallel"
	"github.com/loom-ml/loom/internal/tensor"
)

// Batch is one mini-batch of images and labels ready for the model.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B] // [n, rows, cols]
	Labels *tensor.Tensor[int32, B]   // [n]
	Size   int
}

// LoaderConfig controls batching behavior.
type LoaderConfig struct {
	BatchSize  int
	Shuffle    bool  // reshuffle sample order at the start of every epoch
	NumWorkers int   // batch assembly goroutines; 0 assembles inline
	PinMemory  bool  // accepted for configuration parity, no-op on CPU
	Seed       int64 // shuffle seed
}

// Loader serves a dataset as mini-batches of backend tensors.
//
// Each call to Batches starts one epoch: a fresh (optionally shuffled)
// order over the dataset, cut into NumBatches batches with the final batch
// holding the remainder. With NumWorkers > 0 batches are assembled by a
// worker pool and handed over in order, so the consumer sees the same
// sequence as the inline path while assembly overlaps training.
type Loader[B tensor.Backend] struct {
	dataset *Dataset
	backend B
	cfg     LoaderConfig
	rng     *rand.Rand
	par     parallel.Config
}

// NewLoader creates a loader over dataset. The dataset must be non-empty
// and the batch size positive.
func NewLoader[B tensor.Backend](dataset *Dataset, backend B, cfg LoaderConfig) (*Loader[B], error) {
	if dataset.NumSamples() == 0 {
		return nil, fmt.Errorf("loader: dataset is empty")
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("loader: batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.NumWorkers < 0 {
		return nil, fmt.Errorf("loader: worker count must be non-negative, got %d", cfg.NumWorkers)
	}
	return &Loader[B]{
		dataset: dataset,
		backend: backend,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		par:     parallel.DefaultConfig(),
	}, nil
}

// NumSamples returns the dataset size.
func (l *Loader[B]) NumSamples() int {
	return l.dataset.NumSamples()
}

// BatchSize returns the nominal batch size. The final batch of an epoch may
// be smaller.
func (l *Loader[B]) BatchSize() int {
	return l.cfg.BatchSize
}

// NumBatches returns the number of batches per epoch.
func (l *Loader[B]) NumBatches() int {
	return (l.dataset.NumSamples() + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// Batches returns a channel yielding one epoch of batches. The channel must
// be drained; it is closed after the final batch.
func (l *Loader[B]) Batches() <-chan *Batch[B] {
	order := l.epochOrder()
	numBatches := l.NumBatches()

	out := make(chan *Batch[B], 1)
	if l.cfg.NumWorkers == 0 {
		go func() {
			defer close(out)
			for b := 0; b < numBatches; b++ {
				out <- l.assemble(order, b)
			}
		}()
		return out
	}

	// Workers pull batch ordinals and park results in per-batch slots; a
	// collector forwards the slots in order.
	slots := make([]chan *Batch[B], numBatches)
	for i := range slots {
		slots[i] = make(chan *Batch[B], 1)
	}
	jobs := make(chan int)
	for w := 0; w < l.cfg.NumWorkers; w++ {
		go func() {
			for b := range jobs {
				slots[b] <- l.assemble(order, b)
			}
		}()
	}
	go func() {
		for b := 0; b < numBatches; b++ {
			jobs <- b
		}
		close(jobs)
	}()
	go func() {
		defer close(out)
		for _, slot := range slots {
			out <- <-slot
		}
	}()
	return out
}

// epochOrder returns this epoch's sample order. The slice is private to the
// epoch so overlapping epochs cannot interfere.
func (l *Loader[B]) epochOrder() []int {
	n := l.dataset.NumSamples()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if l.cfg.Shuffle {
		l.rng.Shuffle(n, func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

// assemble builds batch b of the epoch, copying sample rows in parallel.
func (l *Loader[B]) assemble(order []int, b int) *Batch[B] {
	start := b * l.cfg.BatchSize
	end := start + l.cfg.BatchSize
	if end > len(order) {
		end = len(order)
	}
	n := end - start
	rows, cols := l.dataset.Rows(), l.dataset.Cols()
	sampleSize := rows * cols

	imagesRaw, err := tensor.NewRaw(tensor.Shape{n, rows, cols}, tensor.Float32)
	if err != nil {
		panic(fmt.Sprintf("loader: %v", err))
	}
	labelsRaw, err := tensor.NewRaw(tensor.Shape{n}, tensor.Int32)
	if err != nil {
		panic(fmt.Sprintf("loader: %v", err))
	}

	images := imagesRaw.AsFloat32()
	labels := labelsRaw.AsInt32()
	parallel.For(n, func(i int) {
		sample := order[start+i]
		copy(images[i*sampleSize:(i+1)*sampleSize], l.dataset.Image(sample))
		labels[i] = l.dataset.Label(sample)
	}, l.par)

	return &Batch[B]{
		Images: tensor.New[float32, B](imagesRaw, l.backend),
		Labels: tensor.New[int32, B](labelsRaw, l.backend),
		Size:   n,
	}
}
