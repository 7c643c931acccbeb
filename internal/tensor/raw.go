package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is the untyped, backend-independent tensor representation.
//
// It owns a contiguous row-major byte buffer plus shape and dtype metadata.
// RawTensor carries no autodiff state; gradient tracking lives in the typed
// Tensor wrapper and the autodiff tape. Buffers are never shared between
// RawTensors: Clone always deep-copies, so checkpointed weights stay isolated
// from in-place optimizer updates.
type RawTensor struct {
	shape Shape
	dtype DataType
	data  []byte
}

// NewRaw allocates a zero-filled RawTensor with the given shape and dtype.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	size := shape.NumElements() * dtype.Size()
	return &RawTensor{
		shape: shape.Clone(),
		dtype: dtype,
		data:  make([]byte, size),
	}, nil
}

// NewRawFromBytes wraps an existing buffer without copying.
// The buffer length must match shape.NumElements() * dtype.Size().
func NewRawFromBytes(shape Shape, dtype DataType, data []byte) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	expected := shape.NumElements() * dtype.Size()
	if len(data) != expected {
		return nil, fmt.Errorf("buffer size mismatch: got %d bytes, expected %d for shape %v dtype %s",
			len(data), expected, shape, dtype)
	}

	return &RawTensor{
		shape: shape.Clone(),
		dtype: dtype,
		data:  data,
	}, nil
}

// Shape returns the tensor's shape. Callers must not mutate it.
func (rt *RawTensor) Shape() Shape {
	return rt.shape
}

// DType returns the tensor's element type.
func (rt *RawTensor) DType() DataType {
	return rt.dtype
}

// NumElements returns the total element count.
func (rt *RawTensor) NumElements() int {
	return rt.shape.NumElements()
}

// Data returns the raw byte buffer.
func (rt *RawTensor) Data() []byte {
	return rt.data
}

// Clone returns a deep copy with its own buffer.
func (rt *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(rt.data))
	copy(data, rt.data)
	return &RawTensor{
		shape: rt.shape.Clone(),
		dtype: rt.dtype,
		data:  data,
	}
}

// CopyFrom overwrites this tensor's buffer with src's contents.
// Shapes and dtypes must match exactly.
func (rt *RawTensor) CopyFrom(src *RawTensor) error {
	if !rt.shape.Equal(src.shape) {
		return fmt.Errorf("shape mismatch: %v vs %v", rt.shape, src.shape)
	}
	if rt.dtype != src.dtype {
		return fmt.Errorf("dtype mismatch: %s vs %s", rt.dtype, src.dtype)
	}
	copy(rt.data, src.data)
	return nil
}

// AsFloat32 returns the buffer viewed as a []float32.
// Panics if the dtype is not Float32.
func (rt *RawTensor) AsFloat32() []float32 {
	if rt.dtype != Float32 {
		panic(fmt.Sprintf("cannot view %s tensor as float32", rt.dtype))
	}
	if len(rt.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&rt.data[0])), rt.NumElements())
}

// AsInt32 returns the buffer viewed as a []int32.
// Panics if the dtype is not Int32.
func (rt *RawTensor) AsInt32() []int32 {
	if rt.dtype != Int32 {
		panic(fmt.Sprintf("cannot view %s tensor as int32", rt.dtype))
	}
	if len(rt.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&rt.data[0])), rt.NumElements())
}

// String returns a short description like "RawTensor([2, 3], float32)".
func (rt *RawTensor) String() string {
	return fmt.Sprintf("RawTensor(%v, %s)", rt.shape, rt.dtype)
}
