package nn_test

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/autodiff/ops"
	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/optim"
	"github.com/loom-ml/loom/internal/serialization"
	"github.com/loom-ml/loom/internal/tensor"
)

// TestCheckpointFilename tests the timestamped filename convention.
func TestCheckpointFilename(t *testing.T) {
	now := time.Date(2026, 8, 21, 14, 5, 33, 0, time.UTC)

	got := nn.CheckpointFilename(1e-4, 1024, now)
	want := "lstm-lr-0.0001-batch-1024-21p08p2026-14p05.loom"
	if got != want {
		t.Errorf("CheckpointFilename = %q, want %q", got, want)
	}

	got = nn.CheckpointFilename(0.001, 64, now)
	want = "lstm-lr-0.001-batch-64-21p08p2026-14p05.loom"
	if got != want {
		t.Errorf("CheckpointFilename = %q, want %q", got, want)
	}
}

// adBackend is the gradient-recording backend used by the round trip tests.
type adBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// trainOneStep runs a single forward/backward/update so the optimizer has
// non-trivial moments to checkpoint.
func trainOneStep(
	t *testing.T,
	backend adBackend,
	model *nn.LSTMClassifier[adBackend],
	opt *optim.Adam[adBackend],
	seed int64,
) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	input := tensor.Randn(tensor.Shape{2, 5, 4}, rng, backend)
	targets, err := tensor.FromSlice([]int32{0, 2}, tensor.Shape{2}, backend)
	if err != nil {
		t.Fatal(err)
	}

	backend.Tape().StartRecording()
	logits := model.Forward(input)
	loss := nn.NewCrossEntropyLoss(backend, ops.ReductionMean).Forward(logits, targets)
	backend.Tape().StopRecording()

	grads := autodiff.Backward(loss, backend)
	opt.Step(grads)
	backend.Tape().Clear()
}

// TestCheckpoint_SaveLoadRoundTrip tests that a saved checkpoint restores
// model weights, optimizer state and training progress exactly.
func TestCheckpoint_SaveLoadRoundTrip(t *testing.T) {
	backend := autodiff.New(cpu.New())
	path := filepath.Join(t.TempDir(), "model.loom")

	model := nn.NewLSTMClassifier(smallConfig(), rand.New(rand.NewSource(1)), backend)
	opt := optim.NewAdam(model.NamedParameters(), optim.AdamConfig{LR: 0.01})
	trainOneStep(t, backend, model, opt, 11)
	trainOneStep(t, backend, model, opt, 22)

	cp := &nn.Checkpoint[adBackend]{
		Model:     model,
		Optimizer: opt,
		Epoch:     3,
		Step:      int64(opt.GetTimestep()),
		Loss:      0.42,
		Metadata:  map[string]string{"dataset": "mnist"},
	}
	if err := cp.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Restore into a differently seeded model and a fresh optimizer.
	restored := nn.NewLSTMClassifier(smallConfig(), rand.New(rand.NewSource(2)), backend)
	restoredOpt := optim.NewAdam(restored.NamedParameters(), optim.AdamConfig{LR: 0.01})

	loaded, err := nn.LoadCheckpoint(path, restored, restoredOpt)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if loaded.Epoch != 3 {
		t.Errorf("Epoch = %d, want 3", loaded.Epoch)
	}
	if loaded.Step != int64(opt.GetTimestep()) {
		t.Errorf("Step = %d, want %d", loaded.Step, opt.GetTimestep())
	}
	if loaded.Loss != 0.42 {
		t.Errorf("Loss = %f, want 0.42", loaded.Loss)
	}
	if restoredOpt.GetTimestep() != opt.GetTimestep() {
		t.Errorf("Optimizer timestep = %d, want %d",
			restoredOpt.GetTimestep(), opt.GetTimestep())
	}

	// The restored model must agree with the original bit for bit.
	input := tensor.Randn(tensor.Shape{2, 5, 4}, rand.New(rand.NewSource(99)), backend)
	origOut := model.Forward(input).Raw().AsFloat32()
	restOut := restored.Forward(input).Raw().AsFloat32()
	for i := range origOut {
		if origOut[i] != restOut[i] {
			t.Fatalf("Forward outputs differ at %d: %f vs %f", i, origOut[i], restOut[i])
		}
	}

	// So must the next optimizer update.
	trainOneStep(t, backend, model, opt, 33)
	trainOneStep(t, backend, restored, restoredOpt, 33)
	origOut = model.Forward(input).Raw().AsFloat32()
	restOut = restored.Forward(input).Raw().AsFloat32()
	for i := range origOut {
		if origOut[i] != restOut[i] {
			t.Fatalf("Post-restore updates diverge at %d: %f vs %f", i, origOut[i], restOut[i])
		}
	}
}

// TestCheckpoint_WeightsOnly tests loading without optimizer state.
func TestCheckpoint_WeightsOnly(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "weights.loom")

	model := nn.NewLSTMClassifier(smallConfig(), rand.New(rand.NewSource(1)), backend)
	cp := &nn.Checkpoint[*cpu.CPUBackend]{
		Model: model,
		Epoch: 1,
	}
	if err := cp.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := nn.NewLSTMClassifier(smallConfig(), rand.New(rand.NewSource(2)), backend)
	if _, err := nn.LoadCheckpoint(path, restored, nil); err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}

	input := tensor.Randn(tensor.Shape{2, 5, 4}, rand.New(rand.NewSource(99)), backend)
	origOut := model.Forward(input).Raw().AsFloat32()
	restOut := restored.Forward(input).Raw().AsFloat32()
	for i := range origOut {
		if origOut[i] != restOut[i] {
			t.Fatalf("Forward outputs differ at %d", i)
		}
	}
}

// TestCheckpoint_ArchitectureMismatch tests that a checkpoint refuses to
// load into a differently shaped model.
func TestCheckpoint_ArchitectureMismatch(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.loom")

	model := nn.NewLSTMClassifier(smallConfig(), rand.New(rand.NewSource(1)), backend)
	cp := &nn.Checkpoint[*cpu.CPUBackend]{Model: model}
	if err := cp.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg := smallConfig()
	cfg.HiddenSize = 12
	other := nn.NewLSTMClassifier(cfg, rand.New(rand.NewSource(1)), backend)
	if _, err := nn.LoadCheckpoint(path, other, nil); err == nil {
		t.Error("Expected error loading into mismatched architecture")
	}

	cfg = smallConfig()
	cfg.NumLayers = 1
	shallow := nn.NewLSTMClassifier(cfg, rand.New(rand.NewSource(1)), backend)
	if _, err := nn.LoadCheckpoint(path, shallow, nil); err == nil {
		t.Error("Expected error loading into model with fewer layers")
	}
}

// TestCheckpoint_RejectsPlainStateDict tests that a weights file written
// without checkpoint metadata is not accepted as a checkpoint.
func TestCheckpoint_RejectsPlainStateDict(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "plain.loom")

	model := nn.NewLSTMClassifier(smallConfig(), rand.New(rand.NewSource(1)), backend)

	w, err := serialization.NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStateDict(model.StateDict(), "LSTMClassifier", nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := nn.LoadCheckpoint(path, model, nil); err == nil {
		t.Error("Expected error for file without checkpoint metadata")
	}
}
