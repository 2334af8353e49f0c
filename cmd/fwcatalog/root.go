// fwcatalog generates a static firmware release catalog from the GitHub
// releases API and can serve the generated site for local preview.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"fwcatalog/internal/config"
	"fwcatalog/internal/logger"
	"fwcatalog/internal/observability"
	"fwcatalog/internal/version"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "fwcatalog",
	Short: "Firmware release catalog generator",
	Long: "fwcatalog queries the GitHub releases API for a firmware repository,\n" +
		"classifies the binary assets of every release, and writes a static,\n" +
		"searchable catalog page plus machine-readable release data.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeRuntime configures structured logging and observability for a
// command run. The returned cleanup flushes buffered telemetry and closes any
// log file handle; callers must defer it.
func initializeRuntime(cfg *config.Config) (func(), error) {
	ver := version.GetInfo()

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(log)

	provider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
		if closer != nil {
			closer.Close()
		}
	}
	return cleanup, nil
}
