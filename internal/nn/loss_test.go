package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/autodiff/ops"
	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/tensor"
)

// TestCrossEntropy_HandComputed tests the loss against a worked example.
func TestCrossEntropy_HandComputed(t *testing.T) {
	backend := cpu.New()

	// softmax([2, 1, 0.1]) = [0.659001, 0.242433, 0.098566]
	// loss = -log(0.659001) = 0.417030
	logits, _ := tensor.FromSlice([]float32{2, 1, 0.1}, tensor.Shape{1, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{0}, tensor.Shape{1}, backend)

	criterion := nn.NewCrossEntropyLoss(backend, ops.ReductionMean)
	loss := criterion.Forward(logits, targets)

	if loss.NumElements() != 1 {
		t.Fatalf("Loss has %d elements, want 1", loss.NumElements())
	}
	got := loss.Raw().AsFloat32()[0]
	if !floatEqual(got, 0.417030, 1e-4) {
		t.Errorf("Loss = %f, want 0.417030", got)
	}
}

// TestCrossEntropy_Reductions tests that sum equals mean times batch size.
func TestCrossEntropy_Reductions(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(42))

	logits := tensor.Randn(tensor.Shape{4, 5}, rng, backend)
	targets, _ := tensor.FromSlice([]int32{1, 0, 4, 2}, tensor.Shape{4}, backend)

	mean := nn.NewCrossEntropyLoss(backend, ops.ReductionMean).Forward(logits, targets)
	sum := nn.NewCrossEntropyLoss(backend, ops.ReductionSum).Forward(logits, targets)

	m := mean.Raw().AsFloat32()[0]
	s := sum.Raw().AsFloat32()[0]
	if !floatEqual(s, m*4, 1e-4) {
		t.Errorf("Sum = %f, mean*batch = %f, should match", s, m*4)
	}
}

// TestCrossEntropy_UniformLogits tests the limit case of equal scores.
func TestCrossEntropy_UniformLogits(t *testing.T) {
	backend := cpu.New()

	// Equal logits give uniform softmax, so loss = log(num_classes).
	logits, _ := tensor.FromSlice([]float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		tensor.Shape{1, 10}, backend)
	targets, _ := tensor.FromSlice([]int32{7}, tensor.Shape{1}, backend)

	loss := nn.NewCrossEntropyLoss(backend, ops.ReductionMean).Forward(logits, targets)
	want := float32(math.Log(10))
	got := loss.Raw().AsFloat32()[0]
	if !floatEqual(got, want, 1e-5) {
		t.Errorf("Loss = %f, want log(10) = %f", got, want)
	}
}

// TestCrossEntropy_Backward tests the fused softmax-minus-onehot gradient.
func TestCrossEntropy_Backward(t *testing.T) {
	backend := autodiff.New(cpu.New())

	logits, _ := tensor.FromSlice([]float32{2, 1, 0.1}, tensor.Shape{1, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{0}, tensor.Shape{1}, backend)

	backend.Tape().StartRecording()
	loss := nn.NewCrossEntropyLoss(backend, ops.ReductionMean).Forward(logits, targets)
	backend.Tape().StopRecording()

	if backend.Tape().NumOps() != 1 {
		t.Fatalf("Recorded %d ops, want 1", backend.Tape().NumOps())
	}

	grads := autodiff.Backward(loss, backend)
	grad, ok := grads[logits.Raw()]
	if !ok {
		t.Fatal("No gradient for logits")
	}

	// grad = softmax(logits) - onehot(target), batch of one.
	expected := []float32{0.659001 - 1, 0.242433, 0.098566}
	for i, exp := range expected {
		if !floatEqual(grad.AsFloat32()[i], exp, 1e-4) {
			t.Errorf("Gradient[%d] = %f, want %f", i, grad.AsFloat32()[i], exp)
		}
	}
	backend.Tape().Clear()
}

// TestCountCorrect tests prediction counting.
func TestCountCorrect(t *testing.T) {
	backend := cpu.New()

	// Argmax per row: 1, 0, 2. Targets: 1, 2, 2. Two correct.
	logits, _ := tensor.FromSlice([]float32{
		0.1, 0.8, 0.1,
		0.9, 0.0, 0.1,
		0.2, 0.3, 0.5,
	}, tensor.Shape{3, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{1, 2, 2}, tensor.Shape{3}, backend)

	if got := nn.CountCorrect(logits, targets); got != 2 {
		t.Errorf("CountCorrect = %d, want 2", got)
	}
	if acc := nn.Accuracy(logits, targets); !floatEqual(acc, 2.0/3.0, 1e-6) {
		t.Errorf("Accuracy = %f, want %f", acc, 2.0/3.0)
	}
}

// TestCountCorrect_Panics tests shape validation.
func TestCountCorrect_Panics(t *testing.T) {
	backend := cpu.New()

	t.Run("non-2D logits", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic")
			}
		}()
		logits, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
		targets, _ := tensor.FromSlice([]int32{0, 1, 2}, tensor.Shape{3}, backend)
		nn.CountCorrect(logits, targets)
	})

	t.Run("batch mismatch", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic")
			}
		}()
		logits, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
		targets, _ := tensor.FromSlice([]int32{0}, tensor.Shape{1}, backend)
		nn.CountCorrect(logits, targets)
	})
}
