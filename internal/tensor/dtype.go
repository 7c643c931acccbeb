package tensor

import "fmt"

// DType is the constraint for supported tensor element types.
//
// Loom keeps the set deliberately small: float32 carries model parameters,
// activations and gradients; int32 carries class labels and argmax indices.
type DType interface {
	float32 | int32
}

// DataType is the runtime representation of a tensor's element type.
type DataType uint8

const (
	// Float32 is a 32-bit IEEE 754 floating point type.
	Float32 DataType = iota
	// Int32 is a 32-bit signed integer type.
	Int32
)

// Size returns the size of the data type in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	default:
		panic(fmt.Sprintf("unknown data type: %d", dt))
	}
}

// String returns the lowercase Go name of the element type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("unknown(%d)", dt)
	}
}

// inferDataType maps a Go type parameter to its DataType tag.
func inferDataType[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	default:
		panic(fmt.Sprintf("unsupported type: %T", zero))
	}
}
