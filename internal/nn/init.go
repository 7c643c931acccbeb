package nn

import (
	"math"
	"math/rand"

	"github.com/loom-ml/loom/internal/tensor"
)

// ScaledUniform initializes a weight tensor from U(-k, k) with k = 1/sqrt(fanIn).
//
// This is the default initialization for both recurrent and linear layers:
// every LSTM parameter uses k = 1/sqrt(hidden_size) and linear layers use
// k = 1/sqrt(in_features). The explicit random source keeps initialization
// reproducible under a fixed seed.
func ScaledUniform[B tensor.Backend](fanIn int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	bound := float32(1.0 / math.Sqrt(float64(fanIn)))
	return tensor.Uniform(shape, -bound, bound, rng, backend)
}

// Zeros creates a float32 tensor filled with zeros. Used for the initial
// hidden and cell states.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}
