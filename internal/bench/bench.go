// Package bench runs the sequential and parallel phases back to back over the
// same inputs and reports the speedup.
package bench

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/andresmejia3/edgebench/internal/executor"
	"github.com/andresmejia3/edgebench/internal/report"
	"github.com/andresmejia3/edgebench/internal/types"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// ErrNoImages signals an empty input set. Callers treat it as a normal end.
var ErrNoImages = errors.New("no images found in the input directory")

// Config wires a run together. Sequential and Parallel must both be set for
// Run; RunParallel only needs Parallel.
type Config struct {
	Sequential executor.Executor
	Parallel   executor.Executor
	InputDir   string
	Backend    string
	Log        zerolog.Logger
	// Out receives the report lines. Defaults to os.Stdout.
	Out io.Writer
	// Progress draws a bar on stderr per phase and demotes per-image
	// success lines to debug so they don't tear the bar.
	Progress bool
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (c *Config) defaults() {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Run executes both phases strictly one after the other. The parallel phase
// never starts before the sequential timer has stopped. Every image is
// processed twice; the second pass overwrites the first with identical bytes.
func Run(ctx context.Context, cfg Config, paths []string) (types.Timing, error) {
	cfg.defaults()
	if len(paths) == 0 {
		return types.Timing{}, ErrNoImages
	}

	timing := types.Timing{
		StartedAt: cfg.Clock(),
		InputDir:  cfg.InputDir,
		Images:    len(paths),
		Executor:  cfg.Parallel.Name(),
		Workers:   cfg.Parallel.Workers(),
		Backend:   cfg.Backend,
	}
	report.Found(cfg.Out, len(paths))

	var seqResults []types.Result
	timing.Sequential, seqResults = phase(ctx, cfg, cfg.Sequential, paths)
	timing.SequentialFailed = types.CountFailed(seqResults)
	report.Sequential(cfg.Out, timing.Sequential)
	if err := ctx.Err(); err != nil {
		return timing, err
	}

	var parResults []types.Result
	timing.Parallel, parResults = phase(ctx, cfg, cfg.Parallel, paths)
	timing.ParallelFailed = types.CountFailed(parResults)
	report.Parallel(cfg.Out, timing.Parallel)
	if err := ctx.Err(); err != nil {
		return timing, err
	}

	// A degenerate timing has already been reported as an error line.
	_ = report.SpeedupLine(cfg.Out, timing)
	return timing, nil
}

// RunParallel is the production path: one pass through the parallel executor
// with no sequential baseline.
func RunParallel(ctx context.Context, cfg Config, paths []string) (time.Duration, []types.Result, error) {
	cfg.defaults()
	if len(paths) == 0 {
		return 0, nil, ErrNoImages
	}
	report.Found(cfg.Out, len(paths))
	elapsed, results := phase(ctx, cfg, cfg.Parallel, paths)
	report.Parallel(cfg.Out, elapsed)
	return elapsed, results, ctx.Err()
}

// phase times one blocking executor run. The clock brackets the whole call,
// including pool start-up and shutdown.
func phase(ctx context.Context, cfg Config, ex executor.Executor, paths []string) (time.Duration, []types.Result) {
	log := cfg.Log.With().Str("phase", ex.Name()).Logger()

	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("🖼️  "+ex.Name()),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	onResult := func(r types.Result) {
		if bar != nil {
			_ = bar.Add(1)
		}
		logResult(log, r, cfg.Progress)
	}

	start := cfg.Clock()
	results := ex.Run(ctx, paths, onResult)
	elapsed := cfg.Clock().Sub(start)

	if bar != nil {
		_ = bar.Finish()
	}
	return elapsed, results
}

func logResult(log zerolog.Logger, r types.Result, quiet bool) {
	if r.Err != nil {
		log.Error().Str("path", r.Path).Err(r.Err).Msg("failed")
		return
	}
	ev := log.Info()
	if quiet {
		ev = log.Debug()
	}
	ev.Str("path", r.Path).Dur("took", r.Duration).Msg("processed")
}
