package nn

import (
	"fmt"
	"math/rand"

	"github.com/loom-ml/loom/internal/tensor"
)

// Dropout zeroes each element with probability rate during training and
// scales the survivors by 1/(1-rate), so activations keep their expected
// magnitude and evaluation needs no rescaling (inverted dropout).
//
// In evaluation mode, or with rate 0, the input passes through untouched.
type Dropout[B tensor.Backend] struct {
	rate     float32
	training bool
	rng      *rand.Rand
	backend  B
}

// NewDropout creates a Dropout module. The rate must lie in [0, 1); 0
// disables dropout entirely.
func NewDropout[B tensor.Backend](rate float32, rng *rand.Rand, backend B) *Dropout[B] {
	if rate < 0 || rate >= 1 {
		panic(fmt.Sprintf("dropout: rate must be in [0, 1), got %v", rate))
	}
	return &Dropout[B]{
		rate:     rate,
		training: true,
		rng:      rng,
		backend:  backend,
	}
}

// Forward applies the dropout mask in training mode.
//
// The mask itself carries no gradient: the recorded multiplication routes
// grad * mask back to the input, which is exactly the dropout gradient.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.rate == 0 {
		return input
	}

	mask := tensor.Zeros[float32](input.Shape(), d.backend)
	maskData := mask.Data()
	keepScale := 1 / (1 - d.rate)
	for i := range maskData {
		if d.rng.Float32() >= d.rate {
			maskData[i] = keepScale
		}
	}

	return input.Mul(mask)
}

// Parameters returns an empty slice: dropout has nothing to train.
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}

// Rate returns the configured drop probability.
func (d *Dropout[B]) Rate() float32 {
	return d.rate
}

// StateDict returns an empty map: dropout is stateless.
func (d *Dropout[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for the stateless dropout module.
func (d *Dropout[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// Train enables the dropout mask.
func (d *Dropout[B]) Train() {
	d.training = true
}

// Eval disables the dropout mask.
func (d *Dropout[B]) Eval() {
	d.training = false
}
