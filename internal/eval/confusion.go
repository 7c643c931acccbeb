package eval

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"

	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/tensor"
)

// ConfusionMatrix tallies predictions by true class. Cell [t][p] counts
// samples of class t predicted as class p, so the diagonal holds the
// correct predictions.
type ConfusionMatrix struct {
	counts [][]int
	total  int
}

// NewConfusionMatrix creates an empty matrix over numClasses classes.
func NewConfusionMatrix(numClasses int) (*ConfusionMatrix, error) {
	if numClasses < 2 {
		return nil, fmt.Errorf("confusion matrix needs at least 2 classes, got %d", numClasses)
	}

	counts := make([][]int, numClasses)
	for i := range counts {
		counts[i] = make([]int, numClasses)
	}
	return &ConfusionMatrix{counts: counts}, nil
}

// NumClasses returns the matrix dimension.
func (m *ConfusionMatrix) NumClasses() int {
	return len(m.counts)
}

// Total returns the number of samples tallied so far.
func (m *ConfusionMatrix) Total() int {
	return m.total
}

// Count returns the tally for samples of trueClass predicted as predClass.
func (m *ConfusionMatrix) Count(trueClass, predClass int) int {
	return m.counts[trueClass][predClass]
}

// Add tallies one prediction. Classes outside [0, NumClasses) panic.
func (m *ConfusionMatrix) Add(trueClass, predClass int) {
	n := len(m.counts)
	if trueClass < 0 || trueClass >= n || predClass < 0 || predClass >= n {
		panic(fmt.Sprintf("confusion matrix: classes (%d, %d) outside %d classes",
			trueClass, predClass, n))
	}
	m.counts[trueClass][predClass]++
	m.total++
}

// Rows returns the counts as a fresh float64 matrix, one row per true
// class.
func (m *ConfusionMatrix) Rows() [][]float64 {
	rows := make([][]float64, len(m.counts))
	for i, row := range m.counts {
		rows[i] = make([]float64, len(row))
		for j, c := range row {
			rows[i][j] = float64(c)
		}
	}
	return rows
}

// Normalize returns the matrix with every row divided by its row sum, so
// each row reads as per-class prediction fractions. The split leaves class
// frequencies imbalanced, which is why rows are normalized separately.
//
// A class that never occurred as a true label would divide by zero; that is
// reported as an error naming the class.
func (m *ConfusionMatrix) Normalize() ([][]float64, error) {
	rows := m.Rows()
	for i, row := range rows {
		sum := floats.Sum(row)
		if sum == 0 {
			return nil, fmt.Errorf("confusion matrix: class %d has no samples, cannot normalize", i)
		}
		floats.Scale(1/sum, row)
	}
	return rows, nil
}

// ComputeConfusionMatrix runs the model over the loader in eval mode and
// tallies every prediction against its true label. The sample count is
// echoed to out. The model stays in eval mode.
func ComputeConfusionMatrix[B tensor.Backend](
	model *nn.LSTMClassifier[B],
	loader *mnist.Loader[B],
	out io.Writer,
) (*ConfusionMatrix, error) {
	m, err := NewConfusionMatrix(model.Config().NumClasses)
	if err != nil {
		return nil, err
	}

	model.Eval()

	for b := range loader.Batches() {
		logits := model.Forward(b.Images)
		preds := logits.Argmax(1).Data()
		labels := b.Labels.Data()
		for i, p := range preds {
			m.Add(int(labels[i]), int(p))
		}
	}

	fmt.Fprintf(out, "\nCounter: %d\n", m.Total())
	return m, nil
}
