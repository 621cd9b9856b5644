package types

import "time"

// Result is the outcome of running the filter pipeline on a single image.
// A nil Err means all three outputs were written.
type Result struct {
	Index    int
	Path     string
	Outputs  []string
	Err      error
	Duration time.Duration
}

// OK reports whether the image was processed successfully.
func (r Result) OK() bool { return r.Err == nil }

// Timing captures one benchmark run: both phases measured over the same input set.
type Timing struct {
	StartedAt        time.Time
	InputDir         string
	Images           int
	Executor         string
	Workers          int
	Backend          string
	Sequential       time.Duration
	Parallel         time.Duration
	SequentialFailed int
	ParallelFailed   int
}

// CountFailed returns how many results carry an error.
func CountFailed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}
