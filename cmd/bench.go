package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/andresmejia3/edgebench/internal/bench"
	"github.com/andresmejia3/edgebench/internal/discovery"
	"github.com/andresmejia3/edgebench/internal/executor"
	"github.com/andresmejia3/edgebench/internal/filter"
	"github.com/andresmejia3/edgebench/internal/report"
	"github.com/andresmejia3/edgebench/internal/utils"
	"github.com/spf13/cobra"
)

const noImagesNotice = "No images found in the input directory."

// selfCommand builds the command that re-executes this binary.
var selfCommand = utils.NewSelfCommand

var benchOpts Options

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the edge pipeline sequentially, then in parallel, and report the speedup",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd.Context(), benchOpts, cmd.OutOrStdout())
	},
}

func init() {
	addPipelineFlags(benchCmd, &benchOpts)
	rootCmd.AddCommand(benchCmd)
}

// addPipelineFlags binds the flags shared by bench and process.
func addPipelineFlags(c *cobra.Command, opts *Options) {
	c.Flags().StringVarP(&opts.InputDir, "input", "i", "images/", "Directory of input images (not recursive)")
	c.Flags().StringVarP(&opts.OutputDir, "output", "o", "output/", "Directory for gray_, blurred_ and edges_ outputs")
	c.Flags().StringSliceVar(&opts.Extensions, "ext", []string{"jpg", "png", "bmp", "tiff"}, "Image extensions to pick up")
	c.Flags().StringVarP(&opts.Executor, "executor", "x", executor.KindProcess, "Parallel executor: process or thread")
	c.Flags().IntVarP(&opts.Workers, "workers", "w", runtime.NumCPU(), "Number of parallel workers")
	c.Flags().StringVarP(&opts.Backend, "backend", "b", string(filter.BackendCPU), "Filter backend: cpu or simd")
	c.Flags().BoolVar(&opts.Progress, "progress", false, "Show a progress bar on stderr")
}

// validateBenchFlags checks and normalizes opts and returns the parsed backend.
func validateBenchFlags(opts *Options) (filter.Backend, error) {
	if opts.InputDir == "" {
		return "", errors.New("input directory must not be empty")
	}
	info, err := os.Stat(opts.InputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("input directory does not exist: %w", err)
		}
		return "", fmt.Errorf("unable to access input directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("input path %s is not a directory", opts.InputDir)
	}
	if opts.OutputDir == "" {
		return "", errors.New("output directory must not be empty")
	}
	if err := executor.ValidateKind(opts.Executor); err != nil {
		return "", err
	}
	backend, err := filter.ParseBackend(opts.Backend)
	if err != nil {
		return "", err
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	opts.Extensions = discovery.NormalizeExtensions(opts.Extensions)
	if len(opts.Extensions) == 0 {
		return "", errors.New("at least one extension is required")
	}
	return backend, nil
}

// pipelineSetup is everything bench and process share once the flags are valid.
type pipelineSetup struct {
	paths    []string
	pipeline *filter.Pipeline
	parallel executor.Executor
}

// preparePipeline discovers inputs and builds the parallel executor. A nil
// setup with a nil error means there was nothing to process.
func preparePipeline(opts *Options, out io.Writer) (*pipelineSetup, error) {
	backend, err := validateBenchFlags(opts)
	if err != nil {
		return nil, err
	}

	paths, err := discovery.Find(opts.InputDir, opts.Extensions)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, noImagesNotice)
		return nil, nil
	}

	if err := filter.EnsureOutputDir(opts.OutputDir); err != nil {
		return nil, err
	}
	pipe, err := filter.New(filter.Config{OutputDir: opts.OutputDir, Backend: backend})
	if err != nil {
		return nil, err
	}

	return &pipelineSetup{
		paths:    paths,
		pipeline: pipe,
		parallel: newParallelExecutor(opts, pipe),
	}, nil
}

func newParallelExecutor(opts *Options, pipe *filter.Pipeline) executor.Executor {
	if opts.Executor == executor.KindThread {
		return executor.NewThreaded(pipe.Apply, opts.Workers)
	}
	command := func(int) (*utils.SafeCommand, error) {
		return selfCommand(workerCmdName,
			"--output", pipe.OutputDir(),
			"--backend", string(pipe.Backend()),
			"--log-level", "warn",
		)
	}
	return executor.NewProcessPool(command, opts.Workers, log)
}

func runBench(ctx context.Context, opts Options, out io.Writer) error {
	setup, err := preparePipeline(&opts, out)
	if err != nil || setup == nil {
		return err
	}

	log.Info().
		Int("images", len(setup.paths)).
		Str("executor", setup.parallel.Name()).
		Int("workers", setup.parallel.Workers()).
		Str("backend", string(setup.pipeline.Backend())).
		Msg("starting benchmark")

	timing, err := bench.Run(ctx, bench.Config{
		Sequential: executor.NewSequential(setup.pipeline.Apply),
		Parallel:   setup.parallel,
		InputDir:   opts.InputDir,
		Backend:    string(setup.pipeline.Backend()),
		Log:        log,
		Out:        out,
		Progress:   opts.Progress,
	}, setup.paths)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	report.Summary(out, timing)

	if DB != nil {
		id, err := DB.SaveRun(ctx, timing)
		if err != nil {
			return err
		}
		log.Info().Int64("run", id).Msg("saved run to history")
	}
	return nil
}
