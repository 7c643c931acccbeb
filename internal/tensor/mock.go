// Package tensor provides the core tensor types and operations for the Loom
// training framework.
package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a naive float32-only backend for tests in this package.
// Real computation lives in backend/cpu; this exists so tensor-level tests
// do not depend on it.
type MockBackend struct{}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x / y })
}

func (m *MockBackend) elementWise(a, b *RawTensor, op func(float32, float32) float32) *RawTensor {
	outShape, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result, err := NewRaw(outShape, a.DType())
	if err != nil {
		panic(err)
	}

	aData := a.AsFloat32()
	bData := b.AsFloat32()
	resultData := result.AsFloat32()

	for i := range resultData {
		aIdx := m.broadcastIndex(i, outShape, a.Shape())
		bIdx := m.broadcastIndex(i, outShape, b.Shape())
		resultData[i] = op(aData[aIdx], bData[bIdx])
	}

	return result
}

// broadcastIndex maps a flat output index to the flat input index under
// broadcasting.
func (m *MockBackend) broadcastIndex(outIdx int, outShape, inShape Shape) int {
	outStrides := outShape.ComputeStrides()
	inStrides := inShape.ComputeStrides()
	offset := len(outShape) - len(inShape)

	inIdx := 0
	remaining := outIdx
	for i := 0; i < len(outShape); i++ {
		coord := remaining / outStrides[i]
		remaining %= outStrides[i]

		inDim := i - offset
		if inDim < 0 {
			continue
		}
		if inShape[inDim] == 1 {
			continue
		}
		inIdx += coord * inStrides[inDim]
	}
	return inIdx
}

// MatMul performs naive 2D matrix multiplication.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 || aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: incompatible shapes %v and %v", aShape, bShape))
	}
	rows, inner, cols := aShape[0], aShape[1], bShape[1]

	result, err := NewRaw(Shape{rows, cols}, Float32)
	if err != nil {
		panic(err)
	}

	aData, bData, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var sum float32
			for k := 0; k < inner; k++ {
				sum += aData[i*inner+k] * bData[k*cols+j]
			}
			out[i*cols+j] = sum
		}
	}
	return result
}

// AddScalar adds a scalar to every element.
func (m *MockBackend) AddScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalar.(float32)
	return m.unary(x, func(v float32) float32 { return v + s })
}

// MulScalar multiplies every element by a scalar.
func (m *MockBackend) MulScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalar.(float32)
	return m.unary(x, func(v float32) float32 { return v * s })
}

// Sigmoid applies the logistic function element-wise.
func (m *MockBackend) Sigmoid(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float32) float32 {
		return float32(1 / (1 + math.Exp(-float64(v))))
	})
}

// Tanh applies the hyperbolic tangent element-wise.
func (m *MockBackend) Tanh(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}

func (m *MockBackend) unary(x *RawTensor, op func(float32) float32) *RawTensor {
	result, err := NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(err)
	}
	src, dst := x.AsFloat32(), result.AsFloat32()
	for i, v := range src {
		dst[i] = op(v)
	}
	return result
}

// Softmax computes softmax along dim (last dim only in the mock).
func (m *MockBackend) Softmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim = len(shape) + dim
	}
	if dim != len(shape)-1 {
		panic("mock softmax: only last dimension supported")
	}

	result, err := NewRaw(shape, x.DType())
	if err != nil {
		panic(err)
	}

	rowSize := shape[len(shape)-1]
	src, dst := x.AsFloat32(), result.AsFloat32()
	for base := 0; base < len(src); base += rowSize {
		maxVal := src[base]
		for i := 1; i < rowSize; i++ {
			if src[base+i] > maxVal {
				maxVal = src[base+i]
			}
		}
		var sum float32
		for i := 0; i < rowSize; i++ {
			e := float32(math.Exp(float64(src[base+i] - maxVal)))
			dst[base+i] = e
			sum += e
		}
		for i := 0; i < rowSize; i++ {
			dst[base+i] /= sum
		}
	}
	return result
}

// Sum reduces all elements to a scalar tensor.
func (m *MockBackend) Sum(x *RawTensor) *RawTensor {
	result, err := NewRaw(Shape{}, x.DType())
	if err != nil {
		panic(err)
	}
	var sum float32
	for _, v := range x.AsFloat32() {
		sum += v
	}
	result.AsFloat32()[0] = sum
	return result
}

// SumDim is unsupported in the mock.
func (m *MockBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	panic("mock: SumDim not implemented")
}

// MeanDim is unsupported in the mock.
func (m *MockBackend) MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	panic("mock: MeanDim not implemented")
}

// Argmax returns indices of maxima along the last dimension.
func (m *MockBackend) Argmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim = len(shape) + dim
	}
	if dim != len(shape)-1 {
		panic("mock argmax: only last dimension supported")
	}

	outShape := shape[:len(shape)-1].Clone()
	result, err := NewRaw(outShape, Int32)
	if err != nil {
		panic(err)
	}

	rowSize := shape[len(shape)-1]
	src, dst := x.AsFloat32(), result.AsInt32()
	for row := 0; row < len(dst); row++ {
		base := row * rowSize
		best := int32(0)
		for i := 1; i < rowSize; i++ {
			if src[base+i] > src[base+int(best)] {
				best = int32(i)
			}
		}
		dst[row] = best
	}
	return result
}

// Reshape returns a copy with a new shape.
func (m *MockBackend) Reshape(x *RawTensor, shape Shape) *RawTensor {
	if shape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: element count mismatch %v -> %v", x.Shape(), shape))
	}
	result := x.Clone()
	result.shape = shape.Clone()
	return result
}

// Transpose is unsupported in the mock.
func (m *MockBackend) Transpose(x *RawTensor, axes ...int) *RawTensor {
	panic("mock: Transpose not implemented")
}

// Cat is unsupported in the mock.
func (m *MockBackend) Cat(tensors []*RawTensor, dim int) *RawTensor {
	panic("mock: Cat not implemented")
}

// Chunk is unsupported in the mock.
func (m *MockBackend) Chunk(x *RawTensor, n, dim int) []*RawTensor {
	panic("mock: Chunk not implemented")
}
