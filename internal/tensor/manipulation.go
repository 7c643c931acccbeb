package tensor

// Cat joins tensors along dim into one tensor.
//
// All tensors must share shape except along dim. Supports negative dim
// indexing (-1 = last dimension). A single tensor still goes through the
// backend so gradient recording sees the operation.
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	backend := tensors[0].backend
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}

	return New[T, B](backend.Cat(raws, dim), backend)
}

// Chunk splits the tensor along dim into n parts of equal size. Panics in
// the backend when the dimension is not divisible by n.
func (t *Tensor[T, B]) Chunk(n, dim int) []*Tensor[T, B] {
	parts := t.backend.Chunk(t.raw, n, dim)
	out := make([]*Tensor[T, B], len(parts))
	for i, raw := range parts {
		out[i] = New[T, B](raw, t.backend)
	}
	return out
}
