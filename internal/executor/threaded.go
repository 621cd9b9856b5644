package executor

import (
	"context"
	"runtime"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/andresmejia3/edgebench/internal/types"
)

// Threaded runs the task on a fixed pool of goroutines sharing one process.
type Threaded struct {
	task    Task
	workers int
}

// NewThreaded returns a thread-pool executor. workers <= 0 means NumCPU.
func NewThreaded(task Task, workers int) *Threaded {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Threaded{task: task, workers: workers}
}

func (t *Threaded) Name() string { return KindThread }

func (t *Threaded) Workers() int { return t.workers }

func (t *Threaded) Run(ctx context.Context, paths []string, onResult ResultFunc) []types.Result {
	results := make([]types.Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	pool := workerpool.New(t.workers)
	defer pool.Close()

	ch := make(chan types.Result, len(paths))
	done := make(chan struct{})
	go func() {
		collect(ch, results, onResult)
		close(done)
	}()

	// Workers pull the next index atomically, so slow images don't leave
	// other workers idle.
	pool.ParallelForAtomic(len(paths), func(i int) {
		if err := ctx.Err(); err != nil {
			ch <- failed(i, paths[i], err)
			return
		}
		ch <- runTask(t.task, i, paths[i])
	})

	close(ch)
	<-done
	return results
}
