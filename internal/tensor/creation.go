package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, backend B) *Tensor[T, B] {
	raw, err := NewRaw(shape, inferDataType[T]())
	if err != nil {
		panic(err)
	}
	return New[T, B](raw, backend)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, backend B) *Tensor[T, B] {
	return Full[T, B](shape, T(1), backend)
}

// Full creates a tensor filled with the given value.
func Full[T DType, B Backend](shape Shape, value T, backend B) *Tensor[T, B] {
	t := Zeros[T, B](shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float32 tensor with standard normal samples drawn from rng.
//
// The explicit source keeps initialization reproducible when the caller
// seeds it. Uses the Box-Muller transform.
func Randn[B Backend](shape Shape, rng *rand.Rand, backend B) *Tensor[float32, B] {
	t := Zeros[float32, B](shape, backend)
	data := t.Data()
	for i := 0; i < len(data); i += 2 {
		u1 := rng.Float64()
		u2 := rng.Float64()
		for u1 == 0 {
			u1 = rng.Float64()
		}
		r := math.Sqrt(-2 * math.Log(u1))
		theta := 2 * math.Pi * u2
		data[i] = float32(r * math.Cos(theta))
		if i+1 < len(data) {
			data[i+1] = float32(r * math.Sin(theta))
		}
	}
	return t
}

// Uniform creates a float32 tensor with samples drawn uniformly from
// [low, high) using rng.
func Uniform[B Backend](shape Shape, low, high float32, rng *rand.Rand, backend B) *Tensor[float32, B] {
	t := Zeros[float32, B](shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = low + (high-low)*rng.Float32()
	}
	return t
}

// Arange creates a 1D int32 tensor with values [0, 1, ..., n-1].
func Arange[B Backend](n int, backend B) *Tensor[int32, B] {
	t := Zeros[int32, B](Shape{n}, backend)
	data := t.Data()
	for i := range data {
		data[i] = int32(i)
	}
	return t
}
