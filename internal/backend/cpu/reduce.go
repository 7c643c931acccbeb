package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Sum computes the total sum of all elements (scalar result).
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType())
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var sum float32
		for _, v := range x.AsFloat32() {
			sum += v
		}
		result.AsFloat32()[0] = sum
	case tensor.Int32:
		var sum int32
		for _, v := range x.AsInt32() {
			sum += v
		}
		result.AsInt32()[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// SumDim sums tensor elements along the specified dimension.
// Supports negative indexing (-1 = last dim). With keepDim the reduced
// dimension is retained with size 1, otherwise it is removed.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("sumdim: unsupported dtype %s (only float32 supported)", x.DType()))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, ndim-1)
		for i := 0; i < ndim; i++ {
			if i != dim {
				outShape = append(outShape, shape[i])
			}
		}
	}

	result, err := tensor.NewRaw(outShape, x.DType())
	if err != nil {
		panic(fmt.Sprintf("sumdim: %v", err))
	}

	data := x.AsFloat32()
	out := result.AsFloat32()
	strides := shape.ComputeStrides()

	keptShape := shape.Clone()
	keptShape[dim] = 1
	keptStrides := keptShape.ComputeStrides()

	for i := range data {
		outIdx := 0
		temp := i
		for d := 0; d < ndim; d++ {
			coord := temp / strides[d]
			temp %= strides[d]
			if d != dim {
				outIdx += coord * keptStrides[d]
			}
		}
		out[outIdx] += data[i]
	}

	return result
}

// MeanDim computes the mean of tensor elements along the specified dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	sumResult := cpu.SumDim(x, dim, keepDim)

	shape := x.Shape()
	if dim < 0 {
		dim = len(shape) + dim
	}
	divisor := float32(shape[dim])

	data := sumResult.AsFloat32()
	for i := range data {
		data[i] /= divisor
	}
	return sumResult
}

// Argmax returns int32 indices of the maximum value along the specified
// dimension. Ties resolve to the lowest index.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("argmax: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("argmax: unsupported dtype %s (only float32 supported)", x.DType()))
	}

	outShape := make(tensor.Shape, 0, ndim-1)
	for i := 0; i < ndim; i++ {
		if i != dim {
			outShape = append(outShape, shape[i])
		}
	}

	result, err := tensor.NewRaw(outShape, tensor.Int32)
	if err != nil {
		panic(fmt.Sprintf("argmax: %v", err))
	}

	data := x.AsFloat32()
	out := result.AsInt32()
	strides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	for group := range out {
		// Decompose the row-major output index into input coordinates,
		// skipping the reduced dimension.
		baseIdx := 0
		temp := group
		outDim := 0
		for i := 0; i < ndim; i++ {
			if i == dim {
				continue
			}
			coord := temp / outStrides[outDim]
			temp %= outStrides[outDim]
			baseIdx += coord * strides[i]
			outDim++
		}

		maxVal := data[baseIdx]
		maxIdx := int32(0)
		for i := 1; i < dimSize; i++ {
			idx := baseIdx + i*dimStride
			if data[idx] > maxVal {
				maxVal = data[idx]
				maxIdx = int32(i)
			}
		}

		out[group] = maxIdx
	}

	return result
}
