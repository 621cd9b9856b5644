// Package report turns a benchmark Timing into console output.
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/andresmejia3/edgebench/internal/types"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// ErrDegenerateTiming is returned when the parallel phase measured no time,
// which would otherwise be a division by zero.
var ErrDegenerateTiming = errors.New("parallel time cannot be zero")

var bold = color.New(color.Bold)

// Speedup returns sequential/parallel.
func Speedup(sequential, parallel time.Duration) (float64, error) {
	if parallel <= 0 {
		return 0, ErrDegenerateTiming
	}
	return sequential.Seconds() / parallel.Seconds(), nil
}

// Found prints the discovery count line.
func Found(w io.Writer, n int) {
	fmt.Fprintf(w, "Images found: %d\n", n)
}

// Sequential prints the sequential phase line.
func Sequential(w io.Writer, d time.Duration) {
	fmt.Fprintf(w, "Sequential time: %.2f seconds\n", d.Seconds())
}

// Parallel prints the parallel phase line.
func Parallel(w io.Writer, d time.Duration) {
	fmt.Fprintf(w, "Parallel time: %.2f seconds\n", d.Seconds())
}

// SpeedupLine prints the speedup, or the division-guard message when the
// parallel time is degenerate. The returned error is ErrDegenerateTiming in
// that case and is informational only.
func SpeedupLine(w io.Writer, t types.Timing) error {
	s, err := Speedup(t.Sequential, t.Parallel)
	if err != nil {
		fmt.Fprintf(w, "Error: %v.\n", err)
		return err
	}
	fmt.Fprintf(w, "Speedup: %.2f\n", s)
	return nil
}

// Summary renders both phases side by side.
func Summary(w io.Writer, t types.Timing) {
	_, _ = bold.Fprintln(w, "═══════════════════════════════════════════════════════════")
	_, _ = bold.Fprintf(w, "📊 Edge pipeline: %d images, %s backend\n", t.Images, t.Backend)
	_, _ = bold.Fprintln(w, "═══════════════════════════════════════════════════════════")

	table := tablewriter.NewWriter(w)
	table.Header("Phase", "Executor", "Workers", "Time", "Images/sec", "Failed")

	_ = table.Append([]string{
		"sequential", "sequential", "1",
		formatDuration(t.Sequential),
		formatRate(t.Images, t.Sequential),
		fmt.Sprintf("%d", t.SequentialFailed),
	})
	_ = table.Append([]string{
		"parallel", t.Executor, fmt.Sprintf("%d", t.Workers),
		formatDuration(t.Parallel),
		formatRate(t.Images, t.Parallel),
		fmt.Sprintf("%d", t.ParallelFailed),
	})

	_ = table.Render()
	fmt.Fprintln(w)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

func formatRate(images int, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", float64(images)/d.Seconds())
}
