package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/andresmejia3/edgebench/internal/bench"
	"github.com/andresmejia3/edgebench/internal/types"
	"github.com/spf13/cobra"
)

var processOpts Options

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the edge pipeline once with the parallel executor",
	Long:  "Processes every image a single time with the parallel executor. No sequential baseline is taken and nothing is stored in the run history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), processOpts, cmd.OutOrStdout())
	},
}

func init() {
	addPipelineFlags(processCmd, &processOpts)
	rootCmd.AddCommand(processCmd)
}

func runProcess(ctx context.Context, opts Options, out io.Writer) error {
	setup, err := preparePipeline(&opts, out)
	if err != nil || setup == nil {
		return err
	}

	_, results, err := bench.RunParallel(ctx, bench.Config{
		Parallel: setup.parallel,
		InputDir: opts.InputDir,
		Backend:  string(setup.pipeline.Backend()),
		Log:      log,
		Out:      out,
		Progress: opts.Progress,
	}, setup.paths)
	if err != nil {
		return err
	}

	if failed := types.CountFailed(results); failed > 0 {
		fmt.Fprintf(out, "Failed: %d of %d images\n", failed, len(results))
	}
	return nil
}
