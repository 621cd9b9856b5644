package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored benchmark runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(cmd, historyLimit, cmd.OutOrStdout())
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, limit int, out io.Writer) error {
	if DB == nil {
		return errors.New("run history needs a database: pass --db or set POSTGRES_HOST")
	}
	runs, err := DB.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No benchmark runs found in database.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("ID", "Started", "Images", "Executor", "Workers", "Backend", "Sequential", "Parallel", "Speedup", "Failed")
	for _, r := range runs {
		speedup := "n/a"
		if s := r.Speedup(); s > 0 {
			speedup = fmt.Sprintf("%.2f", s)
		}
		_ = table.Append([]string{
			fmt.Sprintf("%d", r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", r.Images),
			r.Executor,
			fmt.Sprintf("%d", r.Workers),
			r.Backend,
			fmt.Sprintf("%.2fs", r.Sequential.Seconds()),
			fmt.Sprintf("%.2fs", r.Parallel.Seconds()),
			speedup,
			fmt.Sprintf("%d/%d", r.SequentialFailed, r.ParallelFailed),
		})
	}
	return table.Render()
}
