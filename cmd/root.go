package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/edgebench/internal/logger"
	"github.com/andresmejia3/edgebench/internal/store"
	"github.com/andresmejia3/edgebench/internal/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the bench and process commands
type Options struct {
	InputDir   string
	OutputDir  string
	Extensions []string
	Executor   string
	Workers    int
	Backend    string
	Progress   bool
}

var (
	// DB is the optional run-history store. It stays nil unless a
	// connection string was resolved.
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// logLevel is the raw --log-level value
	logLevel string
	// log is built in PersistentPreRunE once the level is known
	log = logger.NewStderr(zerolog.InfoLevel)
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "edgebench",
	Short:         "Sequential vs parallel edge-detection benchmark",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log = logger.NewStderr(level)

		// Workers never touch the database.
		if cmd.Name() == workerCmdName {
			return nil
		}

		url := resolveDBURL(dbURL)
		if url == "" {
			return nil
		}
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// The main context may already be cancelled by Ctrl+C.
			DB.Close(context.Background())
		}
	},
}

// resolveDBURL prefers the flag, then falls back to the POSTGRES_* variables.
// An empty result disables run history.
func resolveDBURL(flag string) string {
	if flag != "" {
		return flag
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := os.Getenv("POSTGRES_DB")
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		utils.ShowError("edgebench failed", err, nil)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string for run history (default: $POSTGRES_HOST etc., disabled if unset)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
