package ops

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// sumToShape reduces a gradient tensor to match the target shape,
// undoing any broadcasting the forward pass performed.
//
// Example:
//
//	Forward: a[3, 1] + b[3, 4] -> c[3, 4]  (a broadcast along dim 1)
//	Backward: grad_c[3, 4] -> grad_a[3, 1] (sum along dim 1)
func sumToShape(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone when shapes already match so later accumulation cannot alias
	// a gradient shared with another operation.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	if len(targetShape) == 0 {
		return backend.Sum(grad)
	}

	// Broadcasting aligns shapes from the right: first sum away leading
	// dimensions the target does not have, then sum dimensions where the
	// target is 1.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	for i := 0; i < len(targetShape); i++ {
		if targetShape[i] == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// expandToShape expands a gradient to the target shape by replication.
// Used by reduction backward passes where each input element received an
// equal share of the output.
func expandToShape(grad *tensor.RawTensor, targetShape tensor.Shape, _ tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad.Clone()
	}

	result, err := tensor.NewRaw(targetShape, grad.DType())
	if err != nil {
		panic(fmt.Sprintf("expandToShape: %v", err))
	}

	src := grad.AsFloat32()
	dst := result.AsFloat32()

	srcShape := grad.Shape()
	srcStrides := srcShape.ComputeStrides()
	dstStrides := targetShape.ComputeStrides()
	offset := len(targetShape) - len(srcShape)

	for i := range dst {
		srcIdx := 0
		remaining := i
		for d := 0; d < len(targetShape); d++ {
			coord := remaining / dstStrides[d]
			remaining %= dstStrides[d]

			sd := d - offset
			if sd < 0 || srcShape[sd] == 1 {
				continue
			}
			srcIdx += coord * srcStrides[sd]
		}
		dst[i] = src[srcIdx]
	}

	return result
}

// reinsertDim reinserts a reduced dimension of size 1 so the gradient can
// broadcast against the original input shape.
func reinsertDim(t *tensor.RawTensor, dim int, targetShape tensor.Shape) *tensor.RawTensor {
	ndim := len(targetShape)
	if dim < 0 {
		dim = ndim + dim
	}

	newShape := targetShape.Clone()
	newShape[dim] = 1

	result, err := tensor.NewRawFromBytes(newShape, t.DType(), append([]byte(nil), t.Data()...))
	if err != nil {
		panic(fmt.Sprintf("reinsertDim: %v", err))
	}
	return result
}

// negate returns -grad.
func negate(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.MulScalar(grad, float32(-1))
}
