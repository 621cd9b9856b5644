package executor

import (
	"context"

	"github.com/andresmejia3/edgebench/internal/types"
)

// Sequential processes one image at a time in discovery order.
type Sequential struct {
	task Task
}

// NewSequential returns the single-threaded baseline executor.
func NewSequential(task Task) *Sequential {
	return &Sequential{task: task}
}

func (s *Sequential) Name() string { return "sequential" }

func (s *Sequential) Workers() int { return 1 }

func (s *Sequential) Run(ctx context.Context, paths []string, onResult ResultFunc) []types.Result {
	results := make([]types.Result, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			results[i] = failed(i, path, err)
		} else {
			results[i] = runTask(s.task, i, path)
		}
		if onResult != nil {
			onResult(results[i])
		}
	}
	return results
}
