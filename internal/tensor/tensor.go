package tensor

import (
	"fmt"
)

// Tensor is a typed, backend-aware tensor handle.
//
// T fixes the element type at compile time, B the backend. The handle wraps a
// RawTensor plus optional gradient state; operations delegate to the backend,
// which may be an autodiff decorator recording onto a tape.
type Tensor[T DType, B Backend] struct {
	raw          *RawTensor
	backend      B
	grad         *RawTensor
	requiresGrad bool
}

// New wraps a RawTensor in a typed handle. The raw dtype must match T.
func New[T DType, B Backend](raw *RawTensor, backend B) *Tensor[T, B] {
	expected := inferDataType[T]()
	if raw.DType() != expected {
		panic(fmt.Sprintf("dtype mismatch: raw tensor is %s, type parameter is %s",
			raw.DType(), expected))
	}
	return &Tensor[T, B]{
		raw:     raw,
		backend: backend,
	}
}

// FromSlice creates a tensor from a flat slice in row-major order.
// The slice length must equal shape.NumElements().
func FromSlice[T DType, B Backend](data []T, shape Shape, backend B) (*Tensor[T, B], error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}

	raw, err := NewRaw(shape, inferDataType[T]())
	if err != nil {
		return nil, err
	}

	copy(typedView[T](raw), data)
	return New[T, B](raw, backend), nil
}

// typedView returns the raw buffer as a []T.
func typedView[T DType](raw *RawTensor) []T {
	switch any(*new(T)).(type) {
	case float32:
		return any(raw.AsFloat32()).([]T)
	case int32:
		return any(raw.AsInt32()).([]T)
	default:
		panic("unsupported dtype")
	}
}

// Raw returns the underlying RawTensor.
func (t *Tensor[T, B]) Raw() *RawTensor {
	return t.raw
}

// Backend returns the backend this tensor is bound to.
func (t *Tensor[T, B]) Backend() B {
	return t.backend
}

// Shape returns the tensor's shape.
func (t *Tensor[T, B]) Shape() Shape {
	return t.raw.Shape()
}

// DType returns the tensor's element type.
func (t *Tensor[T, B]) DType() DataType {
	return t.raw.DType()
}

// NumElements returns the total element count.
func (t *Tensor[T, B]) NumElements() int {
	return t.raw.NumElements()
}

// Data returns the tensor's elements as a typed slice sharing the buffer.
func (t *Tensor[T, B]) Data() []T {
	return typedView[T](t.raw)
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor[T, B]) At(indices ...int) T {
	return t.Data()[t.flatIndex(indices)]
}

// Set writes the element at the given multi-dimensional index.
func (t *Tensor[T, B]) Set(value T, indices ...int) {
	t.Data()[t.flatIndex(indices)] = value
}

// Item returns the value of a single-element tensor.
func (t *Tensor[T, B]) Item() T {
	if t.raw.NumElements() != 1 {
		panic(fmt.Sprintf("item: tensor has %d elements, expected 1", t.raw.NumElements()))
	}
	return t.Data()[0]
}

func (t *Tensor[T, B]) flatIndex(indices []int) int {
	shape := t.raw.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("index rank %d does not match tensor rank %d", len(indices), len(shape)))
	}
	strides := shape.ComputeStrides()
	flat := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("index %d out of range for dimension %d (size %d)", idx, i, shape[i]))
		}
		flat += idx * strides[i]
	}
	return flat
}

// Clone returns a deep copy. Gradient state is not copied.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return New[T, B](t.raw.Clone(), t.backend)
}

// Detach returns a new handle on the same raw data with gradient
// tracking disabled. Operations on the detached tensor are not recorded.
func (t *Tensor[T, B]) Detach() *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     t.raw,
		backend: t.backend,
	}
}

// RequireGrad marks the tensor as a differentiation target.
func (t *Tensor[T, B]) RequireGrad() *Tensor[T, B] {
	t.requiresGrad = true
	return t
}

// RequiresGrad reports whether the tensor participates in autodiff.
func (t *Tensor[T, B]) RequiresGrad() bool {
	return t.requiresGrad
}

// Grad returns the accumulated gradient, or nil if none.
func (t *Tensor[T, B]) Grad() *RawTensor {
	return t.grad
}

// SetGrad installs a gradient tensor (used by the backward pass).
func (t *Tensor[T, B]) SetGrad(grad *RawTensor) {
	t.grad = grad
}

// ZeroGrad clears the accumulated gradient.
func (t *Tensor[T, B]) ZeroGrad() {
	t.grad = nil
}

// String returns a short description like "Tensor([2, 3], float32)".
func (t *Tensor[T, B]) String() string {
	return fmt.Sprintf("Tensor(%v, %s)", t.raw.Shape(), t.raw.DType())
}
