package cpu

import (
	"fmt"
	"math"

	"github.com/loom-ml/loom/internal/tensor"
)

// Sigmoid computes the logistic function 1 / (1 + exp(-x)) element-wise.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return unaryFloat32("sigmoid", x, func(v float32) float32 {
		return float32(1.0 / (1.0 + math.Exp(-float64(v))))
	})
}

// Tanh computes the hyperbolic tangent element-wise.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return unaryFloat32("tanh", x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}

func unaryFloat32(name string, x *tensor.RawTensor, op func(float32) float32) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32 supported)", name, x.DType()))
	}

	result, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	src, dst := x.AsFloat32(), result.AsFloat32()
	for i, v := range src {
		dst[i] = op(v)
	}
	return result
}

// Softmax normalizes exp(x) to sum to one along dim. Inputs are shifted
// by the per-slice maximum before exponentiation so large logits cannot
// overflow.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("softmax: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("softmax: unsupported dtype %s (only float32 supported)", x.DType()))
	}

	result, err := tensor.NewRaw(shape, x.DType())
	if err != nil {
		panic(fmt.Sprintf("softmax: %v", err))
	}

	src := x.AsFloat32()
	dst := result.AsFloat32()
	strides := shape.ComputeStrides()
	n, step := shape[dim], strides[dim]

	rows := 1
	for ax, size := range shape {
		if ax != dim {
			rows *= size
		}
	}

	// Each row is one slice along dim; rem decodes the row number into
	// coordinates on the remaining axes.
	for row := 0; row < rows; row++ {
		base, rem := 0, row
		for ax := 0; ax < ndim; ax++ {
			if ax == dim {
				continue
			}
			base += (rem % shape[ax]) * strides[ax]
			rem /= shape[ax]
		}

		m := src[base]
		for i := 1; i < n; i++ {
			if v := src[base+i*step]; v > m {
				m = v
			}
		}

		var total float32
		for i := 0; i < n; i++ {
			idx := base + i*step
			e := float32(math.Exp(float64(src[idx] - m)))
			dst[idx] = e
			total += e
		}

		for i := 0; i < n; i++ {
			dst[base+i*step] /= total
		}
	}

	return result
}
