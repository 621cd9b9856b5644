package executor

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/andresmejia3/edgebench/internal/types"
	"github.com/andresmejia3/edgebench/internal/utils"
	"github.com/andresmejia3/edgebench/internal/worker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// CommandFunc builds the (unstarted) command for worker id.
type CommandFunc func(id int) (*utils.SafeCommand, error)

// ProcessPool fans paths out to a fixed set of child processes, each with its
// own address space. A child that crashes fails only the image it was
// working on; it is restarted before taking the next one.
type ProcessPool struct {
	workers int
	command CommandFunc
	log     zerolog.Logger
}

// NewProcessPool returns a process-pool executor. workers <= 0 means NumCPU.
func NewProcessPool(command CommandFunc, workers int, log zerolog.Logger) *ProcessPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ProcessPool{workers: workers, command: command, log: log}
}

func (p *ProcessPool) Name() string { return KindProcess }

func (p *ProcessPool) Workers() int { return p.workers }

func (p *ProcessPool) Run(ctx context.Context, paths []string, onResult ResultFunc) []types.Result {
	results := make([]types.Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	tasks := make(chan int)
	ch := make(chan types.Result, len(paths))
	done := make(chan struct{})
	go func() {
		collect(ch, results, onResult)
		close(done)
	}()

	var g errgroup.Group

	// Dispatcher: hands out indices until the batch is exhausted or the
	// context is cancelled, in which case the rest are failed immediately.
	g.Go(func() error {
		defer close(tasks)
		for i := range paths {
			select {
			case tasks <- i:
			case <-ctx.Done():
				for j := i; j < len(paths); j++ {
					ch <- failed(j, paths[j], ctx.Err())
				}
				return nil
			}
		}
		return nil
	})

	for id := range min(p.workers, len(paths)) {
		g.Go(func() error {
			p.serve(id, paths, tasks, ch)
			return nil
		})
	}

	_ = g.Wait()
	close(ch)
	<-done
	return results
}

// serve owns one child process for the duration of the batch.
func (p *ProcessPool) serve(id int, paths []string, tasks <-chan int, out chan<- types.Result) {
	var w *worker.ProcessWorker
	defer func() {
		if w != nil {
			p.shutdown(w)
		}
	}()

	for i := range tasks {
		if w == nil {
			var err error
			if w, err = p.spawn(id); err != nil {
				out <- failed(i, paths[i], err)
				continue
			}
		}

		start := time.Now()
		reply, err := w.Process(paths[i])
		if err != nil {
			p.log.Warn().Int("worker", id).Str("path", paths[i]).Err(err).Msg("worker crashed, restarting")
			// Wait first so the stderr copier has flushed everything.
			p.shutdown(w)
			crashErr := fmt.Errorf("%w (stderr: %s)", err, w.Cmd.StderrTail(512))
			w = nil
			out <- failed(i, paths[i], crashErr)
			continue
		}

		out <- types.Result{
			Index:    i,
			Path:     paths[i],
			Outputs:  reply.Outputs,
			Err:      reply.Err,
			Duration: time.Since(start),
		}
	}
}

func (p *ProcessPool) spawn(id int) (*worker.ProcessWorker, error) {
	cmd, err := p.command(id)
	if err != nil {
		return nil, fmt.Errorf("build worker %d command: %w", id, err)
	}
	w, err := worker.NewProcessWorker(id, cmd)
	if err != nil {
		return nil, err
	}
	p.log.Debug().Int("worker", id).Int("pid", w.Cmd.Process.Pid).Msg("worker started")
	return w, nil
}

func (p *ProcessPool) shutdown(w *worker.ProcessWorker) {
	if err := w.Close(); err != nil {
		p.log.Debug().Int("worker", w.ID).Err(err).Msg("worker exited with error")
	}
}
