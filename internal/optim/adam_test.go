package optim_test

import (
	"math"
	"testing"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/optim"
	"github.com/loom-ml/loom/internal/tensor"
)

func floatEqual(a, b, eps float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < eps
}

// namedParam builds a single named parameter holding the given values.
func namedParam(t *testing.T, backend *cpu.CPUBackend, name string, values []float32, shape tensor.Shape) nn.NamedParameter[*cpu.CPUBackend] {
	t.Helper()

	x, err := tensor.FromSlice(values, shape, backend)
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	return nn.NamedParameter[*cpu.CPUBackend]{Name: name, Param: nn.NewParameter(name, x)}
}

func gradFor(t *testing.T, values []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()

	raw, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		t.Fatalf("Failed to create gradient: %v", err)
	}
	copy(raw.AsFloat32(), values)
	return raw
}

// TestAdam_SimpleUpdate verifies the first Adam step against the update rule.
func TestAdam_SimpleUpdate(t *testing.T) {
	backend := cpu.New()
	p := namedParam(t, backend, "x", []float32{1.0}, tensor.Shape{1})

	optimizer := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{p}, optim.AdamConfig{
		LR:    0.001,
		Betas: [2]float32{0.9, 0.999},
		Eps:   1e-8,
	})

	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		p.Param.Tensor().Raw(): gradFor(t, []float32{1.0}, tensor.Shape{1}),
	}
	optimizer.Step(grads)

	// With bias correction the first step is just lr in the gradient
	// direction:
	// m_1 = 0.1, v_1 = 0.001
	// m_hat = 0.1 / (1 - 0.9) = 1.0
	// v_hat = 0.001 / (1 - 0.999) = 1.0
	// x_new = 1.0 - 0.001 * 1.0 / (sqrt(1.0) + 1e-8) ≈ 0.999
	actual := p.Param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(actual, 0.999, 1e-5) {
		t.Errorf("Adam first step: got %f, want 0.999", actual)
	}
}

// TestAdam_Defaults verifies zero-valued config fields fall back to defaults.
func TestAdam_Defaults(t *testing.T) {
	backend := cpu.New()
	p := namedParam(t, backend, "x", []float32{1.0}, tensor.Shape{1})

	optimizer := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{p}, optim.AdamConfig{})

	if optimizer.GetLR() != 0.001 {
		t.Errorf("Default LR: got %f, want 0.001", optimizer.GetLR())
	}
	if optimizer.Name() != "Adam" {
		t.Errorf("Name: got %q, want Adam", optimizer.Name())
	}

	optimizer.SetLR(0.01)
	if optimizer.GetLR() != 0.01 {
		t.Errorf("GetLR after SetLR: got %f, want 0.01", optimizer.GetLR())
	}
}

// TestAdam_Timestep verifies the step counter and monotone movement under a
// constant positive gradient.
func TestAdam_Timestep(t *testing.T) {
	backend := cpu.New()
	p := namedParam(t, backend, "x", []float32{1.0}, tensor.Shape{1})

	optimizer := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{p}, optim.AdamConfig{LR: 0.01})

	if optimizer.GetTimestep() != 0 {
		t.Errorf("Initial timestep: got %d, want 0", optimizer.GetTimestep())
	}

	for i := 1; i <= 3; i++ {
		grads := map[*tensor.RawTensor]*tensor.RawTensor{
			p.Param.Tensor().Raw(): gradFor(t, []float32{1.0}, tensor.Shape{1}),
		}
		optimizer.Step(grads)

		if optimizer.GetTimestep() != i {
			t.Errorf("After step %d, timestep: got %d, want %d", i, optimizer.GetTimestep(), i)
		}
	}

	if final := p.Param.Tensor().Raw().AsFloat32()[0]; final >= 1.0 {
		t.Errorf("Parameter should decrease under positive gradient: got %f", final)
	}
}

// TestAdam_SkipsMissingGradient verifies parameters outside the gradient map
// are left untouched.
func TestAdam_SkipsMissingGradient(t *testing.T) {
	backend := cpu.New()
	active := namedParam(t, backend, "active", []float32{1.0}, tensor.Shape{1})
	frozen := namedParam(t, backend, "frozen", []float32{5.0}, tensor.Shape{1})

	optimizer := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{active, frozen}, optim.AdamConfig{LR: 0.1})

	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		active.Param.Tensor().Raw(): gradFor(t, []float32{1.0}, tensor.Shape{1}),
	}
	optimizer.Step(grads)

	if got := frozen.Param.Tensor().Raw().AsFloat32()[0]; got != 5.0 {
		t.Errorf("Parameter without gradient changed: got %f, want 5.0", got)
	}
	if got := active.Param.Tensor().Raw().AsFloat32()[0]; got >= 1.0 {
		t.Errorf("Parameter with gradient should have moved: got %f", got)
	}
}

// TestAdam_MultipleParameters verifies the first step moves every parameter
// by roughly lr in its gradient direction.
func TestAdam_MultipleParameters(t *testing.T) {
	backend := cpu.New()
	p1 := namedParam(t, backend, "p1", []float32{1.0, 2.0}, tensor.Shape{2})
	p2 := namedParam(t, backend, "p2", []float32{3.0}, tensor.Shape{1})

	optimizer := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{p1, p2}, optim.AdamConfig{LR: 0.001})

	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		p1.Param.Tensor().Raw(): gradFor(t, []float32{1.0, 2.0}, tensor.Shape{2}),
		p2.Param.Tensor().Raw(): gradFor(t, []float32{-0.5}, tensor.Shape{1}),
	}
	optimizer.Step(grads)

	p1Data := p1.Param.Tensor().Raw().AsFloat32()
	if !floatEqual(p1Data[0], 0.999, 1e-5) || !floatEqual(p1Data[1], 1.999, 1e-5) {
		t.Errorf("p1: got [%f, %f], want [0.999, 1.999]", p1Data[0], p1Data[1])
	}

	// Negative gradient moves the parameter up.
	p2Data := p2.Param.Tensor().Raw().AsFloat32()
	if !floatEqual(p2Data[0], 3.001, 1e-5) {
		t.Errorf("p2: got %f, want 3.001", p2Data[0])
	}
}

// TestAdam_Convergence verifies Adam minimizes f(x) = x².
func TestAdam_Convergence(t *testing.T) {
	backend := cpu.New()
	p := namedParam(t, backend, "x", []float32{3.0}, tensor.Shape{1})

	optimizer := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{p}, optim.AdamConfig{LR: 0.1})

	for i := 0; i < 100; i++ {
		current := p.Param.Tensor().Raw().AsFloat32()[0]
		grads := map[*tensor.RawTensor]*tensor.RawTensor{
			p.Param.Tensor().Raw(): gradFor(t, []float32{2.0 * current}, tensor.Shape{1}),
		}
		optimizer.Step(grads)
	}

	final := p.Param.Tensor().Raw().AsFloat32()[0]
	if math.Abs(float64(final)) > 0.1 {
		t.Errorf("Adam convergence: x = %f, expected close to 0", final)
	}
}

// TestAdam_StateDictRoundTrip verifies a restored optimizer continues
// exactly where the original left off.
func TestAdam_StateDictRoundTrip(t *testing.T) {
	backend := cpu.New()

	initial := []float32{1.0, -2.0, 0.5}
	gradValues := []float32{0.3, -0.1, 0.7}

	pA := namedParam(t, backend, "w", initial, tensor.Shape{3})
	optA := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{pA}, optim.AdamConfig{LR: 0.01})

	for i := 0; i < 2; i++ {
		optA.Step(map[*tensor.RawTensor]*tensor.RawTensor{
			pA.Param.Tensor().Raw(): gradFor(t, gradValues, tensor.Shape{3}),
		})
	}

	state := optA.StateDict()
	if step, ok := state["step"]; !ok || step.AsInt32()[0] != 2 {
		t.Fatalf("Expected step=2 in state dict, got %v", state["step"])
	}
	if _, ok := state["w.exp_avg"]; !ok {
		t.Fatal("Expected w.exp_avg in state dict")
	}
	if _, ok := state["w.exp_avg_sq"]; !ok {
		t.Fatal("Expected w.exp_avg_sq in state dict")
	}

	// Fresh parameter copied from A's current values, fresh optimizer with
	// restored state.
	pB := namedParam(t, backend, "w", []float32{0, 0, 0}, tensor.Shape{3})
	copy(pB.Param.Tensor().Raw().AsFloat32(), pA.Param.Tensor().Raw().AsFloat32())

	optB := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{pB}, optim.AdamConfig{LR: 0.01})
	if err := optB.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict failed: %v", err)
	}
	if optB.GetTimestep() != 2 {
		t.Errorf("Restored timestep: got %d, want 2", optB.GetTimestep())
	}

	// One more identical step on both must produce identical parameters.
	optA.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		pA.Param.Tensor().Raw(): gradFor(t, gradValues, tensor.Shape{3}),
	})
	optB.Step(map[*tensor.RawTensor]*tensor.RawTensor{
		pB.Param.Tensor().Raw(): gradFor(t, gradValues, tensor.Shape{3}),
	})

	aData := pA.Param.Tensor().Raw().AsFloat32()
	bData := pB.Param.Tensor().Raw().AsFloat32()
	for i := range aData {
		if aData[i] != bData[i] {
			t.Errorf("Element %d diverged after restore: %f vs %f", i, aData[i], bData[i])
		}
	}
}

// TestAdam_LoadStateDictErrors verifies structural mismatches fail fast.
func TestAdam_LoadStateDictErrors(t *testing.T) {
	backend := cpu.New()
	p := namedParam(t, backend, "w", []float32{1, 2}, tensor.Shape{2})
	optimizer := optim.NewAdam([]nn.NamedParameter[*cpu.CPUBackend]{p}, optim.AdamConfig{})

	stepEntry := func(v int32) *tensor.RawTensor {
		raw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int32)
		if err != nil {
			t.Fatalf("Failed to create step entry: %v", err)
		}
		raw.AsInt32()[0] = v
		return raw
	}

	t.Run("missing step", func(t *testing.T) {
		err := optimizer.LoadStateDict(map[string]*tensor.RawTensor{})
		if err == nil {
			t.Error("Expected error for missing step entry")
		}
	})

	t.Run("unexpected key", func(t *testing.T) {
		err := optimizer.LoadStateDict(map[string]*tensor.RawTensor{
			"step":       stepEntry(1),
			"w.momentum": gradFor(t, []float32{0, 0}, tensor.Shape{2}),
		})
		if err == nil {
			t.Error("Expected error for unexpected key")
		}
	})

	t.Run("unknown parameter", func(t *testing.T) {
		err := optimizer.LoadStateDict(map[string]*tensor.RawTensor{
			"step":          stepEntry(1),
			"ghost.exp_avg": gradFor(t, []float32{0, 0}, tensor.Shape{2}),
		})
		if err == nil {
			t.Error("Expected error for unknown parameter")
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		err := optimizer.LoadStateDict(map[string]*tensor.RawTensor{
			"step":      stepEntry(1),
			"w.exp_avg": gradFor(t, []float32{0, 0, 0}, tensor.Shape{3}),
		})
		if err == nil {
			t.Error("Expected error for shape mismatch")
		}
	})
}
