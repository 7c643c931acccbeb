package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// AddScalar adds a scalar value to each element of the tensor.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(fmt.Sprintf("addScalar: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		s := scalar.(float32)
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = v + s
		}
	case tensor.Int32:
		s := scalar.(int32)
		src, dst := x.AsInt32(), result.AsInt32()
		for i, v := range src {
			dst[i] = v + s
		}
	default:
		panic(fmt.Sprintf("addScalar: unsupported dtype %s", x.DType()))
	}

	return result
}

// MulScalar multiplies each element of the tensor by a scalar value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(fmt.Sprintf("mulScalar: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		s := scalar.(float32)
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = v * s
		}
	case tensor.Int32:
		s := scalar.(int32)
		src, dst := x.AsInt32(), result.AsInt32()
		for i, v := range src {
			dst[i] = v * s
		}
	default:
		panic(fmt.Sprintf("mulScalar: unsupported dtype %s", x.DType()))
	}

	return result
}
