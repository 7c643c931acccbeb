package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/loom-ml/loom/internal/nn"
)

// WriteConfusionMatrix prints the normalized matrix to out as aligned
// rows, true classes top to bottom.
func WriteConfusionMatrix(out io.Writer, rows [][]float64) {
	fmt.Fprint(out, "\nConfusion matrix:\n\n")
	for _, row := range rows {
		for j, v := range row {
			if j > 0 {
				fmt.Fprint(out, "  ")
			}
			fmt.Fprintf(out, "%.4f", v)
		}
		fmt.Fprintln(out)
	}
}

// matrixGrid adapts a row-major matrix to the heatmap grid. Row 0 is drawn
// at the top, the way confusion matrices are usually read.
type matrixGrid struct {
	rows [][]float64
}

func (g matrixGrid) Dims() (c, r int)   { return len(g.rows[0]), len(g.rows) }
func (g matrixGrid) Z(c, r int) float64 { return g.rows[len(g.rows)-1-r][c] }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }

// classTicks labels one tick per class index; flipped reverses the labels
// for the top-down y-axis.
type classTicks struct {
	n       int
	flipped bool
}

func (t classTicks) Ticks(min, max float64) []plot.Tick {
	ticks := make([]plot.Tick, 0, t.n)
	for i := 0; i < t.n; i++ {
		value := float64(i)
		if t.flipped {
			value = float64(t.n - 1 - i)
		}
		if value < min || value > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: value, Label: strconv.Itoa(i)})
	}
	return ticks
}

// ConfusionHeatmap renders the normalized matrix as a blue-to-red heatmap
// with predicted labels on x and true labels on y, saved as a PDF under
// dir. Returns the written path.
func ConfusionHeatmap(rows [][]float64, dir string, now time.Time) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("confusion heatmap needs a non-empty matrix")
	}
	n := len(rows)
	for i, row := range rows {
		if len(row) != n {
			return "", fmt.Errorf("confusion heatmap needs a square matrix, row %d has %d of %d columns",
				i, len(row), n)
		}
	}

	p := plot.New()
	p.X.Label.Text = "Predicted Label"
	p.Y.Label.Text = "True Label"
	p.X.Tick.Marker = classTicks{n: n}
	p.Y.Tick.Marker = classTicks{n: n, flipped: true}

	p.Add(plotter.NewHeatMap(matrixGrid{rows: rows}, moreland.SmoothBlueRed().Palette(255)))

	path := filepath.Join(dir, fmt.Sprintf("confusion-matrix-%s.pdf", now.Format(nn.TimestampLayout)))
	if err := p.Save(5*vg.Inch, 4.5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save heatmap: %w", err)
	}
	return path, nil
}
