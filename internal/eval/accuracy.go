// Package eval measures trained-model quality: dataset-level accuracy
// checks and per-class confusion statistics.
package eval

import (
	"fmt"
	"io"
	"strings"

	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/tensor"
)

// CheckAccuracy runs the model over every batch of the loader in eval mode
// and reports the fraction of correct argmax predictions.
//
// mode must be "train" or "test"; it only labels the report line. The line
// written to out has the form
//
//	Test data: Got 9823/10000 with accuracy 98.23 %
//
// The model is left in training mode afterwards.
func CheckAccuracy[B tensor.Backend](
	model *nn.LSTMClassifier[B],
	loader *mnist.Loader[B],
	mode string,
	out io.Writer,
) (float64, error) {
	if mode != "train" && mode != "test" {
		return 0, fmt.Errorf("mode must be \"train\" or \"test\", got %q", mode)
	}

	model.Eval()

	correct, seen := 0, 0
	for b := range loader.Batches() {
		logits := model.Forward(b.Images)
		correct += nn.CountCorrect(logits, b.Labels)
		seen += b.Size
	}

	accuracy := float64(correct) / float64(seen)
	title := strings.ToUpper(mode[:1]) + mode[1:]
	fmt.Fprintf(out, "%s data: Got %d/%d with accuracy %.2f %%\n", title, correct, seen, 100*accuracy)

	model.Train()
	return accuracy, nil
}
