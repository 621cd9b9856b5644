package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resetDB    bool
	resetFiles bool
	resetYes   bool
	resetDir   string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset state (output images, run history)",
	Long:  "Clears generated data. By default, it resets everything. Use flags to clear specific components.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetFiles {
			resetDB = true
			resetFiles = true
		}
		return runReset(cmd, bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "history", false, "Drop the run history table")
	resetCmd.Flags().BoolVar(&resetFiles, "files", false, "Delete the output directory")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	resetCmd.Flags().StringVarP(&resetDir, "output", "o", "output/", "Output directory to delete")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, in *bufio.Reader, out io.Writer) error {
	if resetDB {
		switch {
		case DB == nil:
			fmt.Fprintln(out, "ℹ️  No database configured, skipping run history.")
		case confirm(in, out, "⚠️  Are you sure you want to DROP the run history table?"):
			fmt.Fprintln(out, "🗑️  Clearing run history...")
			if err := DB.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("failed to reset database: %w", err)
			}
		}
	}

	if resetFiles {
		if confirm(in, out, fmt.Sprintf("⚠️  Are you sure you want to delete %s?", resetDir)) {
			fmt.Fprintf(out, "🗑️  Clearing %s...\n", resetDir)
			removeDir(resetDir)
		}
	}

	fmt.Fprintln(out, "✨ Reset Complete.")
	return nil
}

func confirm(r *bufio.Reader, w io.Writer, prompt string) bool {
	if resetYes {
		return true
	}
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}
