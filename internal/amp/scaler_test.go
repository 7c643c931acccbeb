package amp_test

import (
	"math"
	"testing"

	"github.com/loom-ml/loom/internal/amp"
	"github.com/loom-ml/loom/internal/tensor"
)

// stubOptimizer records the gradients it was stepped with.
type stubOptimizer struct {
	steps     int
	lastGrads map[*tensor.RawTensor]*tensor.RawTensor
}

func (o *stubOptimizer) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	o.steps++
	o.lastGrads = grads
}

func grad(t *testing.T, values []float32) *tensor.RawTensor {
	t.Helper()

	raw, err := tensor.NewRaw(tensor.Shape{len(values)}, tensor.Float32)
	if err != nil {
		t.Fatalf("Failed to create gradient: %v", err)
	}
	copy(raw.AsFloat32(), values)
	return raw
}

func TestGradScaler_Defaults(t *testing.T) {
	scaler := amp.NewGradScaler(true)

	if !scaler.Enabled() {
		t.Error("Expected scaler to be enabled")
	}
	if scaler.Scale() != 65536 {
		t.Errorf("Initial scale: got %f, want 65536", scaler.Scale())
	}
}

func TestGradScaler_Disabled(t *testing.T) {
	scaler := amp.NewGradScaler(false)
	opt := &stubOptimizer{}

	if scaler.Scale() != 1 {
		t.Errorf("Disabled scale: got %f, want 1", scaler.Scale())
	}

	// Even non-finite gradients step when scaling is disabled.
	g := grad(t, []float32{float32(math.Inf(1))})
	stepped := scaler.Step(opt, map[*tensor.RawTensor]*tensor.RawTensor{g: g})
	if !stepped || opt.steps != 1 {
		t.Errorf("Disabled scaler should always step: stepped=%v steps=%d", stepped, opt.steps)
	}

	scaler.Update()
	if scaler.Scale() != 1 {
		t.Errorf("Disabled scale after update: got %f, want 1", scaler.Scale())
	}
}

func TestGradScaler_UnscalesGradients(t *testing.T) {
	scaler := amp.NewGradScaler(true)
	opt := &stubOptimizer{}

	// Gradients as the backward pass would produce them: scaled by 65536.
	g := grad(t, []float32{65536, 131072, -32768})
	stepped := scaler.Step(opt, map[*tensor.RawTensor]*tensor.RawTensor{g: g})

	if !stepped {
		t.Fatal("Expected step with finite gradients")
	}
	if opt.steps != 1 {
		t.Fatalf("Expected 1 optimizer step, got %d", opt.steps)
	}

	want := []float32{1, 2, -0.5}
	got := g.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Unscaled gradient %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestGradScaler_SkipsOnNonFinite(t *testing.T) {
	for name, bad := range map[string]float32{
		"inf":  float32(math.Inf(1)),
		"-inf": float32(math.Inf(-1)),
		"nan":  float32(math.NaN()),
	} {
		t.Run(name, func(t *testing.T) {
			scaler := amp.NewGradScaler(true)
			opt := &stubOptimizer{}

			g := grad(t, []float32{1, bad, 3})
			stepped := scaler.Step(opt, map[*tensor.RawTensor]*tensor.RawTensor{g: g})

			if stepped {
				t.Error("Expected step to be skipped")
			}
			if opt.steps != 0 {
				t.Errorf("Optimizer should not have stepped, got %d steps", opt.steps)
			}

			// The following update backs the scale off.
			scaler.Update()
			if scaler.Scale() != 32768 {
				t.Errorf("Scale after backoff: got %f, want 32768", scaler.Scale())
			}
		})
	}
}

func TestGradScaler_GrowthAfterInterval(t *testing.T) {
	scaler := amp.NewGradScalerWithConfig(true, amp.GradScalerConfig{
		InitScale:      4,
		GrowthInterval: 3,
	})
	opt := &stubOptimizer{}

	for i := 0; i < 3; i++ {
		if scaler.Scale() != 4 {
			t.Fatalf("Scale before growth at step %d: got %f, want 4", i, scaler.Scale())
		}
		g := grad(t, []float32{4}) // unscales to 1
		if !scaler.Step(opt, map[*tensor.RawTensor]*tensor.RawTensor{g: g}) {
			t.Fatalf("Step %d unexpectedly skipped", i)
		}
		scaler.Update()
	}

	if scaler.Scale() != 8 {
		t.Errorf("Scale after %d clean steps: got %f, want 8", 3, scaler.Scale())
	}
}

func TestGradScaler_OverflowResetsGrowthTracker(t *testing.T) {
	scaler := amp.NewGradScalerWithConfig(true, amp.GradScalerConfig{
		InitScale:      4,
		GrowthInterval: 2,
	})
	opt := &stubOptimizer{}

	step := func(values []float32) {
		t.Helper()
		g := grad(t, values)
		scaler.Step(opt, map[*tensor.RawTensor]*tensor.RawTensor{g: g})
		scaler.Update()
	}

	// One clean step, then an overflow: the clean-step count starts over
	// and the scale backs off to 2.
	step([]float32{4})
	step([]float32{float32(math.Inf(1))})
	if scaler.Scale() != 2 {
		t.Fatalf("Scale after overflow: got %f, want 2", scaler.Scale())
	}

	// One clean step is not enough to grow again.
	step([]float32{2})
	if scaler.Scale() != 2 {
		t.Errorf("Scale should not have grown yet: got %f", scaler.Scale())
	}

	// The second consecutive clean step doubles it.
	step([]float32{2})
	if scaler.Scale() != 4 {
		t.Errorf("Scale after recovery: got %f, want 4", scaler.Scale())
	}
}

func TestGradScaler_SkipsNonFloatGradients(t *testing.T) {
	scaler := amp.NewGradScaler(true)
	opt := &stubOptimizer{}

	labels, err := tensor.NewRaw(tensor.Shape{2}, tensor.Int32)
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	copy(labels.AsInt32(), []int32{1, 2})

	g := grad(t, []float32{65536})
	stepped := scaler.Step(opt, map[*tensor.RawTensor]*tensor.RawTensor{g: g, labels: labels})

	if !stepped {
		t.Fatal("Expected step")
	}
	if labels.AsInt32()[0] != 1 || labels.AsInt32()[1] != 2 {
		t.Error("Int32 tensors must pass through unscaled")
	}
	if g.AsFloat32()[0] != 1 {
		t.Errorf("Float gradient not unscaled: got %f", g.AsFloat32()[0])
	}
}
