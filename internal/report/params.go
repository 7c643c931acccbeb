// Package report renders training artifacts: the parameter-count table,
// loss and accuracy curves, the confusion-matrix heatmap and compressed
// metric archives.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/tensor"
)

// CountParameters writes a two-column table of every trainable parameter
// and its element count to out, followed by the summed total, which is
// also returned.
func CountParameters[B tensor.Backend](model *nn.LSTMClassifier[B], out io.Writer) int {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Modules", "Parameters"})

	total := 0
	for _, param := range model.NamedParameters() {
		n := param.Param.NumElements()
		table.Append([]string{param.Name, strconv.Itoa(n)})
		total += n
	}
	table.SetFooter([]string{"Total", strconv.Itoa(total)})
	table.Render()

	fmt.Fprintf(out, "Total trainable params: %d\n", total)
	return total
}
