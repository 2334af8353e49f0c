package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fwcatalog/internal/config"
	"fwcatalog/internal/server"
)

var (
	serveAddr string
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generated site for local preview",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "Directory containing the generated site")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if serveDir != "" {
		cfg.Serve.Dir = serveDir
	}

	if _, err := os.Stat(cfg.Serve.Dir); err != nil {
		return fmt.Errorf("site directory %s is not readable, run generate first: %w", cfg.Serve.Dir, err)
	}

	cleanup, err := initializeRuntime(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	routeOpts := []server.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, server.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	srv := server.New(cfg.Serve, cfg.Metrics, routeOpts...)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}
