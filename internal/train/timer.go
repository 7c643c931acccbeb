package train

import (
	"fmt"
	"io"
	"time"
)

// StartTimer marks the beginning of a measured section.
func StartTimer() time.Time {
	return time.Now()
}

// EndTimerAndLog writes the elapsed time since start together with a caller
// message and returns the elapsed seconds.
func EndTimerAndLog(w io.Writer, start time.Time, localMsg string) float64 {
	elapsed := time.Since(start).Seconds()
	fmt.Fprintf(w, "%s\n\tTotal execution time = %.3f [sec]\n", localMsg, elapsed)
	return elapsed
}
