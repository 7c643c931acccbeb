package report_test

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/report"
	"github.com/loom-ml/loom/internal/train"
)

var fixedTime = time.Date(2026, 8, 21, 14, 5, 33, 0, time.UTC)

func requireNonEmptyFile(t *testing.T, path string) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected artifact at %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Fatalf("artifact %s is empty", path)
	}
}

func TestCountParameters(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))
	model := nn.NewLSTMClassifier(nn.ClassifierConfig{
		InputSize:  4,
		HiddenSize: 6,
		NumLayers:  1,
		NumClasses: 3,
		SeqLen:     5,
	}, rng, backend)

	var buf bytes.Buffer
	total := report.CountParameters(model, &buf)

	if total != model.NumParameters() {
		t.Errorf("expected total %d, got %d", model.NumParameters(), total)
	}

	out := buf.String()
	for _, want := range []string{
		"lstm.weight_ih_l0",
		"lstm.bias_hh_l0",
		"fc.weight",
		"fc.bias",
		"Total trainable params: " + strconv.Itoa(total) + "\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table output to contain %q, got:\n%s", want, out)
		}
	}

	// Each parameter's element count appears as its own table cell.
	weightIH := 4 * 6 * 4
	if !strings.Contains(out, strconv.Itoa(weightIH)) {
		t.Errorf("expected input-hidden weight count %d in output:\n%s", weightIH, out)
	}
}

func TestLossPlot(t *testing.T) {
	dir := t.TempDir()

	path, err := report.LossPlot(
		[]float64{1.2, 0.8, 0.5, 0.4},
		[]float64{1.3, 0.9, 0.7, 0.6},
		1e-4, dir, fixedTime,
	)
	if err != nil {
		t.Fatalf("loss plot failed: %v", err)
	}

	want := filepath.Join(dir, "loss-lr-0.0001-21p08p2026-14p05.pdf")
	if path != want {
		t.Errorf("expected path %q, got %q", want, path)
	}
	requireNonEmptyFile(t, path)
}

func TestAccuracyPlot(t *testing.T) {
	dir := t.TempDir()

	path, err := report.AccuracyPlot(
		[]float64{0.4, 0.7, 0.9},
		[]float64{0.35, 0.6, 0.85},
		dir, fixedTime,
	)
	if err != nil {
		t.Fatalf("accuracy plot failed: %v", err)
	}

	want := filepath.Join(dir, "accuracy-plot-21p08p2026-14p05.pdf")
	if path != want {
		t.Errorf("expected path %q, got %q", want, path)
	}
	requireNonEmptyFile(t, path)
}

func TestPlots_LengthMismatch(t *testing.T) {
	dir := t.TempDir()

	if _, err := report.LossPlot([]float64{1, 2}, []float64{1}, 1e-4, dir, fixedTime); err == nil {
		t.Error("expected error for mismatched loss curves")
	}
	if _, err := report.AccuracyPlot(nil, nil, dir, fixedTime); err == nil {
		t.Error("expected error for empty accuracy curves")
	}
}

func TestWriteConfusionMatrix(t *testing.T) {
	var buf bytes.Buffer
	report.WriteConfusionMatrix(&buf, [][]float64{{0.75, 0.25}, {0, 1}})

	want := "\nConfusion matrix:\n\n0.7500  0.2500\n0.0000  1.0000\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestConfusionHeatmap(t *testing.T) {
	dir := t.TempDir()
	rows := [][]float64{
		{0.8, 0.1, 0.1},
		{0.2, 0.7, 0.1},
		{0.0, 0.3, 0.7},
	}

	path, err := report.ConfusionHeatmap(rows, dir, fixedTime)
	if err != nil {
		t.Fatalf("heatmap failed: %v", err)
	}

	want := filepath.Join(dir, "confusion-matrix-21p08p2026-14p05.pdf")
	if path != want {
		t.Errorf("expected path %q, got %q", want, path)
	}
	requireNonEmptyFile(t, path)
}

func TestConfusionHeatmap_Invalid(t *testing.T) {
	dir := t.TempDir()

	if _, err := report.ConfusionHeatmap(nil, dir, fixedTime); err == nil {
		t.Error("expected error for empty matrix")
	}

	notSquare := [][]float64{{1, 0}, {0.5}}
	if _, err := report.ConfusionHeatmap(notSquare, dir, fixedTime); err == nil ||
		!strings.Contains(err.Error(), "square") {
		t.Errorf("expected square-matrix error, got: %v", err)
	}
}

func TestMetricsArchive_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	history := &train.History{
		StartedAt:   fixedTime,
		TrainLosses: []float64{1.1, 0.6, 0.3},
		ValLosses:   []float64{1.2, 0.7, 0.5},
		TrainAccs:   []float64{0.5, 0.8, 0.95},
		ValAccs:     []float64{0.45, 0.75, 0.9},
		BestEpoch:   2,
		MinValLoss:  0.5,
	}

	path, err := report.SaveMetricsArchive(history, 1e-3, 64, dir, fixedTime)
	if err != nil {
		t.Fatalf("failed to save metrics archive: %v", err)
	}

	want := filepath.Join(dir, "metrics-lr-0.001-batch-64-21p08p2026-14p05.json.gz")
	if path != want {
		t.Errorf("expected path %q, got %q", want, path)
	}
	requireNonEmptyFile(t, path)

	loaded, err := report.LoadMetricsArchive(path)
	if err != nil {
		t.Fatalf("failed to load metrics archive: %v", err)
	}

	if !loaded.StartedAt.Equal(history.StartedAt) {
		t.Errorf("expected start time %v, got %v", history.StartedAt, loaded.StartedAt)
	}
	if !reflect.DeepEqual(loaded.TrainLosses, history.TrainLosses) ||
		!reflect.DeepEqual(loaded.ValLosses, history.ValLosses) ||
		!reflect.DeepEqual(loaded.TrainAccs, history.TrainAccs) ||
		!reflect.DeepEqual(loaded.ValAccs, history.ValAccs) {
		t.Errorf("metric sequences did not survive the round trip: %+v", loaded)
	}
	if loaded.BestEpoch != history.BestEpoch || loaded.MinValLoss != history.MinValLoss {
		t.Errorf("expected best epoch %d loss %g, got %d and %g",
			history.BestEpoch, history.MinValLoss, loaded.BestEpoch, loaded.MinValLoss)
	}
}

func TestConfusionArchive_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := [][]float64{{0.9, 0.1}, {0.25, 0.75}}

	path, err := report.SaveConfusionArchive(rows, dir, fixedTime)
	if err != nil {
		t.Fatalf("failed to save confusion archive: %v", err)
	}
	if want := filepath.Join(dir, "confusion-matrix-21p08p2026-14p05.json.gz"); path != want {
		t.Errorf("expected path %q, got %q", want, path)
	}

	loaded, err := report.LoadConfusionArchive(path)
	if err != nil {
		t.Fatalf("failed to load confusion archive: %v", err)
	}
	if !reflect.DeepEqual(loaded, rows) {
		t.Errorf("expected %v, got %v", rows, loaded)
	}
}

func TestLoadMetricsArchive_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json.gz")
	if err := os.WriteFile(path, []byte("not a gzip stream"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := report.LoadMetricsArchive(path); err == nil {
		t.Error("expected error for corrupt archive")
	}

	if _, err := report.LoadMetricsArchive(filepath.Join(t.TempDir(), "missing.json.gz")); err == nil {
		t.Error("expected error for missing archive")
	}
}
