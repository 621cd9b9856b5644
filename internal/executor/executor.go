// Package executor runs the filter pipeline over a batch of images. Every
// implementation blocks until each path has either completed or failed, and
// returns results in input order.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/edgebench/internal/types"
)

// Names accepted by the --executor flag.
const (
	KindProcess = "process"
	KindThread  = "thread"
)

// Task processes one image and returns the files it wrote.
type Task func(path string) ([]string, error)

// ResultFunc observes each result as it completes. Calls are serialized.
type ResultFunc func(types.Result)

// Executor is the blocking submit-all/await-all contract shared by the
// sequential baseline and the parallel pools.
type Executor interface {
	Name() string
	Workers() int
	Run(ctx context.Context, paths []string, onResult ResultFunc) []types.Result
}

// ValidateKind checks an --executor value.
func ValidateKind(kind string) error {
	switch kind {
	case KindProcess, KindThread:
		return nil
	default:
		return fmt.Errorf("unknown executor %q (want %s or %s)", kind, KindProcess, KindThread)
	}
}

func runTask(task Task, index int, path string) types.Result {
	start := time.Now()
	outputs, err := task(path)
	if err != nil {
		outputs = nil
	}
	return types.Result{
		Index:    index,
		Path:     path,
		Outputs:  outputs,
		Err:      err,
		Duration: time.Since(start),
	}
}

func failed(index int, path string, err error) types.Result {
	return types.Result{Index: index, Path: path, Err: err}
}

// collect drains ch into results by index, forwarding each to onResult.
// It returns once ch is closed.
func collect(ch <-chan types.Result, results []types.Result, onResult ResultFunc) {
	for r := range ch {
		results[r.Index] = r
		if onResult != nil {
			onResult(r)
		}
	}
}
