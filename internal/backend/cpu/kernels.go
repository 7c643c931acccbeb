package cpu

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// Typed kernels for element-wise binary operations.

func vectorizedFloat32(dst, a, b []float32, op func(x, y float32) float32) {
	for i := range dst {
		dst[i] = op(a[i], b[i])
	}
}

func vectorizedInt32(dst, a, b []int32, op func(x, y int32) int32) {
	for i := range dst {
		dst[i] = op(a[i], b[i])
	}
}

func broadcastFloat32(dst, a, b []float32, aShape, bShape, outShape tensor.Shape, op func(x, y float32) float32) {
	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStrides(aShape, outShape)
	bStrides := computeBroadcastStrides(bShape, outShape)

	for i := range dst {
		aIdx := computeFlatIndex(i, outStrides, aStrides)
		bIdx := computeFlatIndex(i, outStrides, bStrides)
		dst[i] = op(a[aIdx], b[bIdx])
	}
}

func broadcastInt32(dst, a, b []int32, aShape, bShape, outShape tensor.Shape, op func(x, y int32) int32) {
	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStrides(aShape, outShape)
	bStrides := computeBroadcastStrides(bShape, outShape)

	for i := range dst {
		aIdx := computeFlatIndex(i, outStrides, aStrides)
		bIdx := computeFlatIndex(i, outStrides, bStrides)
		dst[i] = op(a[aIdx], b[bIdx])
	}
}

// computeBroadcastStrides computes strides for broadcasting inShape to
// outShape. Dimensions of size 1 (and left-padded dimensions) get stride 0.
func computeBroadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	inDim := len(inShape)
	offset := outDim - inDim
	origStrides := inShape.ComputeStrides()

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		switch {
		case inIdx < 0 || inIdx >= inDim:
			strides[i] = 0
		case inShape[inIdx] == 1:
			strides[i] = 0
		default:
			strides[i] = origStrides[inIdx]
		}
	}

	return strides
}

// computeFlatIndex maps a flat output index to the flat input index using
// broadcast-adjusted strides.
func computeFlatIndex(outIdx int, outStrides, inStrides []int) int {
	flatIdx := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		flatIdx += coord * inStrides[i]
	}
	return flatIdx
}

// transposeFloat32 permutes dimensions according to axes.
func transposeFloat32(dst, src []float32, shape tensor.Shape, axes []int) {
	ndim := len(shape)
	srcStrides := shape.ComputeStrides()

	dstShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		dstShape[i] = shape[ax]
	}
	dstStrides := dstShape.ComputeStrides()

	coords := make([]int, ndim)
	for i := range src {
		idx := i
		for dim := 0; dim < ndim; dim++ {
			coords[dim] = idx / srcStrides[dim]
			idx %= srcStrides[dim]
		}

		dstIdx := 0
		for dstDim, srcDim := range axes {
			dstIdx += coords[srcDim] * dstStrides[dstDim]
		}
		dst[dstIdx] = src[i]
	}
}

func transposeInt32(dst, src []int32, shape tensor.Shape, axes []int) {
	ndim := len(shape)
	srcStrides := shape.ComputeStrides()

	dstShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		dstShape[i] = shape[ax]
	}
	dstStrides := dstShape.ComputeStrides()

	coords := make([]int, ndim)
	for i := range src {
		idx := i
		for dim := 0; dim < ndim; dim++ {
			coords[dim] = idx / srcStrides[dim]
			idx %= srcStrides[dim]
		}

		dstIdx := 0
		for dstDim, srcDim := range axes {
			dstIdx += coords[srcDim] * dstStrides[dstDim]
		}
		dst[dstIdx] = src[i]
	}
}
