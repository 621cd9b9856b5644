package cmd

import (
	"io"

	"github.com/andresmejia3/edgebench/internal/filter"
	"github.com/andresmejia3/edgebench/internal/utils"
	"github.com/andresmejia3/edgebench/internal/worker"
	"github.com/spf13/cobra"
)

const workerCmdName = "worker"

var workerOpts struct {
	OutputDir string
	Backend   string
}

// workerCmd is the child side of the process pool. It reads paths from stdin
// and answers on the data pipe until stdin closes.
var workerCmd = &cobra.Command{
	Use:    workerCmdName,
	Short:  "Serve pipeline requests from a parent process",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(cmd.InOrStdin())
	},
}

func init() {
	workerCmd.Flags().StringVarP(&workerOpts.OutputDir, "output", "o", "output/", "Output directory")
	workerCmd.Flags().StringVarP(&workerOpts.Backend, "backend", "b", string(filter.BackendCPU), "Filter backend: cpu or simd")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(in io.Reader) error {
	backend, err := filter.ParseBackend(workerOpts.Backend)
	if err != nil {
		return err
	}
	pipe, err := filter.New(filter.Config{OutputDir: workerOpts.OutputDir, Backend: backend})
	if err != nil {
		return err
	}

	out, err := worker.DataPipe()
	if err != nil {
		// Started by hand rather than by the process pool.
		utils.Die("Worker started without a data pipe", err, nil)
	}
	defer out.Close()

	log.Debug().Str("backend", string(backend)).Msg("worker ready")
	if err := worker.Serve(in, out, pipe.Apply); err != nil {
		log.Error().Err(err).Msg("worker stopped")
		return err
	}
	return nil
}
