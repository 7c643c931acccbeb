// Package cpu implements the tensor backend on the host CPU.
package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/parallel"
	"github.com/loom-ml/loom/internal/tensor"
)

// Verify interface compliance at compile time.
var _ tensor.Backend = (*CPUBackend)(nil)

// CPUBackend executes tensor operations on the host CPU.
//
// Operations allocate a fresh output tensor; inputs are never mutated.
// Large matrix multiplications are split across goroutines according to
// the parallel configuration.
type CPUBackend struct {
	par parallel.Config
}

// New creates a CPU backend with default parallelism.
func New() *CPUBackend {
	return &CPUBackend{par: parallel.DefaultConfig()}
}

// NewSequential creates a CPU backend that never spawns goroutines.
// Useful for deterministic profiling and small unit tests.
func NewSequential() *CPUBackend {
	return &CPUBackend{par: parallel.Config{}}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "cpu"
}

// Add performs element-wise addition with broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y int32) int32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y int32) int32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y int32) int32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y int32) int32 { return x / y })
}

// binaryOp dispatches an element-wise binary operation. Equal shapes take
// the fast vectorized path; otherwise inputs are broadcast to the common
// output shape.
func (cpu *CPUBackend) binaryOp(
	name string,
	a, b *tensor.RawTensor,
	opF32 func(x, y float32) float32,
	opI32 func(x, y int32) int32,
) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	outShape, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	if a.Shape().Equal(b.Shape()) {
		switch a.DType() {
		case tensor.Float32:
			vectorizedFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), opF32)
		case tensor.Int32:
			vectorizedInt32(result.AsInt32(), a.AsInt32(), b.AsInt32(), opI32)
		default:
			panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
		}
		return result
	}

	switch a.DType() {
	case tensor.Float32:
		broadcastFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(),
			a.Shape(), b.Shape(), outShape, opF32)
	case tensor.Int32:
		broadcastInt32(result.AsInt32(), a.AsInt32(), b.AsInt32(),
			a.Shape(), b.Shape(), outShape, opI32)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return result
}

// Reshape returns a tensor with the same data and a new shape.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if shape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			x.Shape(), x.NumElements(), shape, shape.NumElements()))
	}

	result, err := tensor.NewRawFromBytes(shape, x.DType(), append([]byte(nil), x.Data()...))
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Transpose permutes the tensor's dimensions. Called without axes on a 2D
// tensor it swaps the two dimensions; otherwise axes must be a full
// permutation of [0, ndim).
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		if ndim != 2 {
			panic(fmt.Sprintf("transpose: default transpose requires 2D tensor, got %dD", ndim))
		}
		axes = []int{1, 0}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes permutation %v", axes))
		}
		seen[ax] = true
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(outShape, x.DType())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		transposeFloat32(result.AsFloat32(), x.AsFloat32(), shape, axes)
	case tensor.Int32:
		transposeInt32(result.AsInt32(), x.AsInt32(), shape, axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", x.DType()))
	}
	return result
}
