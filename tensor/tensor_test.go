// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/tensor"
)

// TestBackendInterface checks at compile time that the CPU backend
// satisfies the public Backend interface.
func TestBackendInterface(_ *testing.T) {
	var _ tensor.Backend = (*cpu.CPUBackend)(nil)
}

// TestRawTensorAPI exercises the RawTensor alias through the facade.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if !raw.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if dtype := raw.DType(); dtype != tensor.Float32 {
		t.Errorf("DType() = %v, want Float32", dtype)
	}
	if n := raw.NumElements(); n != 6 {
		t.Errorf("NumElements() = %d, want 6", n)
	}
	if got := len(raw.Data()); got != 6*4 {
		t.Errorf("Data() length = %d, want %d", got, 6*4)
	}
	if got := len(raw.AsFloat32()); got != 6 {
		t.Errorf("AsFloat32() length = %d, want 6", got)
	}

	// A clone owns its storage.
	raw.AsFloat32()[0] = 7
	clone := raw.Clone()
	clone.AsFloat32()[0] = 99
	if raw.AsFloat32()[0] != 7 {
		t.Errorf("Clone() shares storage, original[0] = %v, want 7", raw.AsFloat32()[0])
	}
}

// TestTensorCreationFunctions covers every constructor re-exported by the
// facade and checks the shapes they produce.
func TestTensorCreationFunctions(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(42))

	tests := []struct {
		name string
		make func() (tensor.Shape, error)
		want tensor.Shape
	}{
		{
			name: "Zeros",
			make: func() (tensor.Shape, error) {
				return tensor.Zeros[float32](tensor.Shape{3, 2}, backend).Shape(), nil
			},
			want: tensor.Shape{3, 2},
		},
		{
			name: "Ones",
			make: func() (tensor.Shape, error) {
				return tensor.Ones[int32](tensor.Shape{5}, backend).Shape(), nil
			},
			want: tensor.Shape{5},
		},
		{
			name: "Full",
			make: func() (tensor.Shape, error) {
				return tensor.Full[float32](tensor.Shape{2, 2}, 2.5, backend).Shape(), nil
			},
			want: tensor.Shape{2, 2},
		},
		{
			name: "Randn",
			make: func() (tensor.Shape, error) {
				return tensor.Randn(tensor.Shape{4, 3}, rng, backend).Shape(), nil
			},
			want: tensor.Shape{4, 3},
		},
		{
			name: "Uniform",
			make: func() (tensor.Shape, error) {
				return tensor.Uniform(tensor.Shape{6}, -0.1, 0.1, rng, backend).Shape(), nil
			},
			want: tensor.Shape{6},
		},
		{
			name: "Arange",
			make: func() (tensor.Shape, error) {
				return tensor.Arange(7, backend).Shape(), nil
			},
			want: tensor.Shape{7},
		},
		{
			name: "FromSlice",
			make: func() (tensor.Shape, error) {
				x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
				if err != nil {
					return nil, err
				}
				return x.Shape(), nil
			},
			want: tensor.Shape{2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.make()
			if err != nil {
				t.Fatalf("%s() returned error: %v", tt.name, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("%s() shape = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestDataTypeConstants checks the dtype descriptors reachable from the facade.
func TestDataTypeConstants(t *testing.T) {
	dtypes := []struct {
		name     string
		dtype    tensor.DataType
		wantSize int
	}{
		{"Float32", tensor.Float32, 4},
		{"Int32", tensor.Int32, 4},
	}

	for _, dt := range dtypes {
		t.Run(dt.name, func(t *testing.T) {
			if str := dt.dtype.String(); str == "" {
				t.Errorf("DataType.String() = %q, want non-empty", str)
			}
			if size := dt.dtype.Size(); size != dt.wantSize {
				t.Errorf("DataType.Size() = %d, want %d", size, dt.wantSize)
			}
		})
	}
}

// TestShapeAPI exercises the Shape alias methods.
func TestShapeAPI(t *testing.T) {
	shape := tensor.Shape{4, 2, 5}

	if n := shape.NumElements(); n != 40 {
		t.Errorf("NumElements() = %d, want 40", n)
	}
	if len(shape) != 3 {
		t.Errorf("rank = %d, want 3", len(shape))
	}
	if !shape.Equal(tensor.Shape{4, 2, 5}) {
		t.Error("Equal() = false for identical shapes")
	}
	if shape.Equal(tensor.Shape{4, 2}) {
		t.Error("Equal() = true across different ranks")
	}

	// Clones must not share backing storage.
	clone := shape.Clone()
	if !clone.Equal(shape) {
		t.Error("Clone() created non-equal shape")
	}
	clone[0] = -1
	if shape[0] == -1 {
		t.Error("mutating the clone changed the original")
	}
}

// TestBroadcastShapes checks right-aligned broadcasting, including rank
// promotion and the mismatch error.
func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		shapeA    tensor.Shape
		shapeB    tensor.Shape
		wantShape tensor.Shape
		wantErr   bool
	}{
		{
			name:      "identical shapes",
			shapeA:    tensor.Shape{4, 2},
			shapeB:    tensor.Shape{4, 2},
			wantShape: tensor.Shape{4, 2},
		},
		{
			name:      "scalar against matrix",
			shapeA:    tensor.Shape{1},
			shapeB:    tensor.Shape{4, 2},
			wantShape: tensor.Shape{4, 2},
		},
		{
			name:      "stretched column",
			shapeA:    tensor.Shape{5, 1},
			shapeB:    tensor.Shape{5, 6},
			wantShape: tensor.Shape{5, 6},
		},
		{
			name:      "rank promotion",
			shapeA:    tensor.Shape{3},
			shapeB:    tensor.Shape{2, 3},
			wantShape: tensor.Shape{2, 3},
		},
		{
			name:    "incompatible",
			shapeA:  tensor.Shape{3, 4},
			shapeB:  tensor.Shape{2, 4},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotShape, err := tensor.BroadcastShapes(tt.shapeA, tt.shapeB)

			if (err != nil) != tt.wantErr {
				t.Errorf("BroadcastShapes() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && !gotShape.Equal(tt.wantShape) {
				t.Errorf("BroadcastShapes() shape = %v, want %v", gotShape, tt.wantShape)
			}
		})
	}
}

// TestManipulationFunctions checks Cat through the typed wrapper.
func TestManipulationFunctions(t *testing.T) {
	backend := cpu.New()

	t.Run("Cat", func(t *testing.T) {
		a := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
		b := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
		c := tensor.Cat([]*tensor.Tensor[float32, *cpu.CPUBackend]{a, b}, 0)

		if !c.Shape().Equal(tensor.Shape{4, 3}) {
			t.Fatalf("Cat() shape = %v, want [4 3]", c.Shape())
		}

		// Ones first, zeros second.
		data := c.Data()
		if data[0] != 1 || data[len(data)-1] != 0 {
			t.Errorf("Cat() order wrong: first = %v, last = %v", data[0], data[len(data)-1])
		}
	})
}
