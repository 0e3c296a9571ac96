package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dalylak/internal/bootstrap"
	"github.com/kirillkom/dalylak/internal/config"
	"github.com/kirillkom/dalylak/internal/observability/logging"
)

var (
	logLevel  string
	projectID string
)

var rootCmd = &cobra.Command{
	Use:   "nlpctl",
	Short: "Operate the car catalog assistant from the command line",
	Long: `nlpctl indexes project chunks into the vector store, inspects collections,
runs retrieval and answers questions against the configured backends.
Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "project id")
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	logger := logging.New(cmd.ErrOrStderr(), "nlpctl", logLevel)
	slog.SetDefault(logger)
	return logger
}

func openApp(ctx context.Context, cmd *cobra.Command, options bootstrap.Options) (*bootstrap.App, error) {
	cfg := config.Load()
	app, err := bootstrap.New(ctx, cfg, newLogger(cmd), options)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return app, nil
}

func requireProject() error {
	if projectID == "" {
		return fmt.Errorf("--project is required")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
