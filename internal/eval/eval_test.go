package eval_test

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/eval"
	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/nn"
)

func newTestModel(backend *cpu.CPUBackend, numClasses int) *nn.LSTMClassifier[*cpu.CPUBackend] {
	rng := rand.New(rand.NewSource(7))
	return nn.NewLSTMClassifier(nn.ClassifierConfig{
		InputSize:  3,
		HiddenSize: 8,
		NumLayers:  1,
		NumClasses: numClasses,
		SeqLen:     4,
	}, rng, backend)
}

// syntheticLoader serves n two-class 4x3 samples with class-dependent
// constant pixels.
func syntheticLoader(t *testing.T, backend *cpu.CPUBackend, n, batchSize int) *mnist.Loader[*cpu.CPUBackend] {
	t.Helper()

	const rows, cols = 4, 3
	images := make([]float32, n*rows*cols)
	labels := make([]int32, n)
	for i := 0; i < n; i++ {
		class := i % 2
		value := float32(class)*2 - 1 + float32(i%4)*0.01
		for p := 0; p < rows*cols; p++ {
			images[i*rows*cols+p] = value
		}
		labels[i] = int32(class)
	}

	ds, err := mnist.NewDataset(images, labels, rows, cols)
	if err != nil {
		t.Fatalf("failed to build dataset: %v", err)
	}
	loader, err := mnist.NewLoader(ds, backend, mnist.LoaderConfig{BatchSize: batchSize})
	if err != nil {
		t.Fatalf("failed to build loader: %v", err)
	}
	return loader
}

// countCorrect replays the loader through the model and tallies argmax
// hits, independently of the function under test.
func countCorrect(model *nn.LSTMClassifier[*cpu.CPUBackend], loader *mnist.Loader[*cpu.CPUBackend]) int {
	correct := 0
	for b := range loader.Batches() {
		correct += nn.CountCorrect(model.Forward(b.Images), b.Labels)
	}
	return correct
}

func TestCheckAccuracy(t *testing.T) {
	backend := cpu.New()
	model := newTestModel(backend, 2)
	loader := syntheticLoader(t, backend, 8, 4)

	want := countCorrect(model, loader)

	var buf bytes.Buffer
	got, err := eval.CheckAccuracy(model, loader, "test", &buf)
	if err != nil {
		t.Fatalf("check accuracy failed: %v", err)
	}

	wantAcc := float64(want) / 8
	if got != wantAcc {
		t.Errorf("expected accuracy %g, got %g", wantAcc, got)
	}

	wantLine := fmt.Sprintf("Test data: Got %d/8 with accuracy %.2f %%\n", want, 100*wantAcc)
	if buf.String() != wantLine {
		t.Errorf("expected report %q, got %q", wantLine, buf.String())
	}
}

func TestCheckAccuracy_TrainMode(t *testing.T) {
	backend := cpu.New()
	model := newTestModel(backend, 2)
	loader := syntheticLoader(t, backend, 8, 4)

	var buf bytes.Buffer
	if _, err := eval.CheckAccuracy(model, loader, "train", &buf); err != nil {
		t.Fatalf("check accuracy failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Train data: Got ") {
		t.Errorf("expected capitalized train report, got %q", buf.String())
	}
}

func TestCheckAccuracy_InvalidMode(t *testing.T) {
	backend := cpu.New()
	model := newTestModel(backend, 2)
	loader := syntheticLoader(t, backend, 8, 4)

	var buf bytes.Buffer
	_, err := eval.CheckAccuracy(model, loader, "validation", &buf)
	if err == nil || !strings.Contains(err.Error(), "mode must be") {
		t.Fatalf("expected mode error, got: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output on error, got %q", buf.String())
	}
}

func TestConfusionMatrix(t *testing.T) {
	if _, err := eval.NewConfusionMatrix(1); err == nil {
		t.Error("expected error for single-class matrix")
	}

	m, err := eval.NewConfusionMatrix(2)
	if err != nil {
		t.Fatalf("failed to create matrix: %v", err)
	}

	m.Add(0, 0)
	m.Add(0, 0)
	m.Add(0, 0)
	m.Add(0, 1)
	m.Add(1, 1)
	m.Add(1, 1)

	if m.NumClasses() != 2 {
		t.Errorf("expected 2 classes, got %d", m.NumClasses())
	}
	if m.Total() != 6 {
		t.Errorf("expected 6 samples, got %d", m.Total())
	}
	if m.Count(0, 0) != 3 || m.Count(0, 1) != 1 || m.Count(1, 0) != 0 || m.Count(1, 1) != 2 {
		t.Errorf("unexpected counts: %v", m.Rows())
	}

	// Rows hands out copies, not the internal tally.
	rows := m.Rows()
	rows[0][0] = 99
	if m.Count(0, 0) != 3 {
		t.Errorf("mutating Rows output changed the matrix: %d", m.Count(0, 0))
	}
}

func TestConfusionMatrix_AddPanics(t *testing.T) {
	m, err := eval.NewConfusionMatrix(2)
	if err != nil {
		t.Fatalf("failed to create matrix: %v", err)
	}

	for _, classes := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Expected panic for classes %v", classes)
				}
			}()
			m.Add(classes[0], classes[1])
		}()
	}
}

func TestConfusionMatrix_Normalize(t *testing.T) {
	m, err := eval.NewConfusionMatrix(2)
	if err != nil {
		t.Fatalf("failed to create matrix: %v", err)
	}

	m.Add(0, 0)
	m.Add(0, 0)
	m.Add(0, 0)
	m.Add(0, 1)
	m.Add(1, 1)
	m.Add(1, 1)

	normalized, err := m.Normalize()
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	want := [][]float64{{0.75, 0.25}, {0, 1}}
	for i := range want {
		for j := range want[i] {
			if math.Abs(normalized[i][j]-want[i][j]) > 1e-12 {
				t.Errorf("normalized[%d][%d] = %g, want %g", i, j, normalized[i][j], want[i][j])
			}
		}
	}

	// Normalizing must not disturb the raw counts.
	if m.Count(0, 0) != 3 {
		t.Errorf("normalize changed the counts: %d", m.Count(0, 0))
	}
}

func TestConfusionMatrix_NormalizeEmptyClass(t *testing.T) {
	m, err := eval.NewConfusionMatrix(3)
	if err != nil {
		t.Fatalf("failed to create matrix: %v", err)
	}

	m.Add(0, 0)
	m.Add(1, 2)

	_, err = m.Normalize()
	if err == nil || !strings.Contains(err.Error(), "class 2") {
		t.Fatalf("expected zero-row error naming class 2, got: %v", err)
	}
}

func TestComputeConfusionMatrix(t *testing.T) {
	backend := cpu.New()
	model := newTestModel(backend, 2)
	loader := syntheticLoader(t, backend, 8, 4)

	// Tally expectations independently.
	wantCounts := [2][2]int{}
	model.Eval()
	for b := range loader.Batches() {
		preds := model.Forward(b.Images).Argmax(1).Data()
		labels := b.Labels.Data()
		for i, p := range preds {
			wantCounts[labels[i]][p]++
		}
	}

	var buf bytes.Buffer
	m, err := eval.ComputeConfusionMatrix(model, loader, &buf)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	if m.Total() != 8 {
		t.Errorf("expected 8 tallied samples, got %d", m.Total())
	}
	if !strings.Contains(buf.String(), "\nCounter: 8\n") {
		t.Errorf("expected counter line, got %q", buf.String())
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if m.Count(i, j) != wantCounts[i][j] {
				t.Errorf("count[%d][%d] = %d, want %d", i, j, m.Count(i, j), wantCounts[i][j])
			}
		}
	}

	correct := countCorrect(model, loader)
	if diag := m.Count(0, 0) + m.Count(1, 1); diag != correct {
		t.Errorf("diagonal sum %d disagrees with correct count %d", diag, correct)
	}
}
