package tensor

import (
	"fmt"
	"slices"
)

// Shape represents the dimensions of a tensor.
//
// An empty Shape{} denotes a scalar (one element, zero dimensions).
type Shape []int

// NumElements returns the total number of elements in a tensor with this shape.
// A scalar shape returns 1.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that all dimensions are positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension %d at index %d: must be positive", dim, i)
		}
	}
	return nil
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

// String returns a human-readable representation like "[2, 3, 4]".
func (s Shape) String() string {
	if len(s) == 0 {
		return "[]"
	}
	result := "["
	for i, dim := range s {
		if i > 0 {
			result += ", "
		}
		result += fmt.Sprintf("%d", dim)
	}
	return result + "]"
}

// ComputeStrides returns row-major strides for this shape.
//
// The stride of a dimension is the number of elements to skip in the flat
// buffer to advance one step along that dimension.
func (s Shape) ComputeStrides() []int {
	if len(s) == 0 {
		return []int{}
	}
	strides := make([]int, len(s))
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BroadcastShapes computes the broadcast result shape of two shapes
// following NumPy/PyTorch semantics: shapes are aligned from the right,
// and each dimension pair must be equal or contain a 1.
func BroadcastShapes(a, b Shape) (Shape, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)

	for i := 0; i < maxLen; i++ {
		aDim := 1
		if i < len(a) {
			aDim = a[len(a)-1-i]
		}
		bDim := 1
		if i < len(b) {
			bDim = b[len(b)-1-i]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
		case bDim == 1:
			result[maxLen-1-i] = aDim
		default:
			return nil, fmt.Errorf("cannot broadcast shapes %v and %v: dimension mismatch %d vs %d",
				a, b, aDim, bDim)
		}
	}

	return result, nil
}
