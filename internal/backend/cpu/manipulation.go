package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Cat joins tensors end to end along dim. Shapes must agree on every
// other dimension, and dtypes must match. Negative dim counts from the
// last dimension.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := tensors[0].Shape()
	ndim := len(shape)
	dtype := tensors[0].DType()

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	totalDim := 0
	for i, t := range tensors {
		tShape := t.Shape()
		if len(tShape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(tShape), ndim))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}
		for d := 0; d < ndim; d++ {
			if d == dim {
				totalDim += tShape[d]
			} else if tShape[d] != shape[d] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, d, tShape[d], shape[d]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[dim] = totalDim

	result, err := tensor.NewRaw(outShape, dtype)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// Treat each tensor as [outer, dimSize*inner] blocks: for a row-major
	// layout the slice along dim is contiguous per outer index, so blocks
	// can be copied with copy().
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	inner := 1
	for d := dim + 1; d < ndim; d++ {
		inner *= shape[d]
	}

	elemSize := dtype.Size()
	outData := result.Data()
	outBlock := totalDim * inner * elemSize

	offset := 0
	for _, t := range tensors {
		tBlock := t.Shape()[dim] * inner * elemSize
		src := t.Data()
		for o := 0; o < outer; o++ {
			dstStart := o*outBlock + offset
			copy(outData[dstStart:dstStart+tBlock], src[o*tBlock:(o+1)*tBlock])
		}
		offset += tBlock
	}

	return result
}

// Chunk cuts x into n same-size pieces along dim, which must divide the
// dimension evenly. Negative dim counts from the last dimension.
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	if n <= 0 {
		panic(fmt.Sprintf("chunk: n must be positive, got %d", n))
	}

	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("chunk: dimension %d out of range for %dD tensor", dim, ndim))
	}

	dimSize := shape[dim]
	if dimSize%n != 0 {
		panic(fmt.Sprintf("chunk: dimension %d size %d not divisible by %d", dim, dimSize, n))
	}

	chunkSize := dimSize / n
	chunkShape := shape.Clone()
	chunkShape[dim] = chunkSize

	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	inner := 1
	for d := dim + 1; d < ndim; d++ {
		inner *= shape[d]
	}

	elemSize := x.DType().Size()
	srcData := x.Data()
	srcBlock := dimSize * inner * elemSize
	chunkBlock := chunkSize * inner * elemSize

	results := make([]*tensor.RawTensor, n)
	for c := 0; c < n; c++ {
		chunk, err := tensor.NewRaw(chunkShape, x.DType())
		if err != nil {
			panic(fmt.Sprintf("chunk: %v", err))
		}
		dst := chunk.Data()
		for o := 0; o < outer; o++ {
			srcStart := o*srcBlock + c*chunkBlock
			copy(dst[o*chunkBlock:(o+1)*chunkBlock], srcData[srcStart:srcStart+chunkBlock])
		}
		results[c] = chunk
	}

	return results
}
