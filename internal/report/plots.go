package report

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/loom-ml/loom/internal/nn"
)

// Major x-axis ticks on the curve plots sit at multiples of this many
// epochs.
const epochTickInterval = 5

// multipleTicks places labeled ticks at multiples of Base inside the axis
// range.
type multipleTicks struct {
	Base float64
}

func (t multipleTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for v := math.Ceil(min/t.Base) * t.Base; v <= max; v += t.Base {
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'g', -1, 64)})
	}
	return ticks
}

// LossPlot draws the training and validation loss curves over epochs
// 0..N-1 and saves them as a PDF under dir, returning the written path.
func LossPlot(trainLosses, valLosses []float64, lr float64, dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("loss-lr-%s-%s.pdf",
		strconv.FormatFloat(lr, 'g', -1, 64), now.Format(nn.TimestampLayout)))
	if err := saveCurves(trainLosses, valLosses, "Loss (Categorical Crossentropy)", path); err != nil {
		return "", err
	}
	return path, nil
}

// AccuracyPlot draws the training and validation accuracy curves over
// epochs 0..N-1 and saves them as a PDF under dir, returning the written
// path.
func AccuracyPlot(trainAccs, valAccs []float64, dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("accuracy-plot-%s.pdf", now.Format(nn.TimestampLayout)))
	if err := saveCurves(trainAccs, valAccs, "Accuracy", path); err != nil {
		return "", err
	}
	return path, nil
}

func saveCurves(train, val []float64, yLabel, path string) error {
	if len(train) == 0 || len(train) != len(val) {
		return fmt.Errorf("curve lengths must match and be non-empty, got %d and %d",
			len(train), len(val))
	}

	p := plot.New()
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = multipleTicks{Base: epochTickInterval}
	p.Legend.Top = true

	if err := plotutil.AddLines(p, "Training", curve(train), "Validation", curve(val)); err != nil {
		return fmt.Errorf("failed to add curves: %w", err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// curve maps per-epoch values onto XY points at x = 0, 1, 2, ...
func curve(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(i)
		xys[i].Y = v
	}
	return xys
}
