package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"fwcatalog/internal/catalog"
	"fwcatalog/internal/config"
	"fwcatalog/internal/export"
	"fwcatalog/internal/github"
	"fwcatalog/internal/observability"
	"fwcatalog/internal/render"
)

var (
	generateRepo      string
	generateToken     string
	generateOutputDir string
	generateSQLite    string
	generateTitle     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the catalog page and release data",
	Long: "Fetch all published releases of the configured repository, classify\n" +
		"their assets, and write index.html and releases.json to the output\n" +
		"directory. Optionally export a SQLite snapshot of the catalog.",
	RunE: runGenerate,
}

func init() {
	registerGenerateFlags(generateCmd)

	// Invoking the bare root command generates the catalog, mirroring the
	// single-purpose upstream workflow.
	rootCmd.RunE = runGenerate
	registerGenerateFlags(rootCmd)
}

func registerGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&generateRepo, "repo", "", "GitHub repository in owner/name format")
	cmd.Flags().StringVar(&generateToken, "token", "", "GitHub API token")
	cmd.Flags().StringVar(&generateOutputDir, "output-dir", "", "Directory for the generated files")
	cmd.Flags().StringVar(&generateSQLite, "sqlite", "", "Optional SQLite snapshot path")
	cmd.Flags().StringVar(&generateTitle, "title", "", "Catalog page title")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if generateRepo != "" {
		cfg.Site.Repo = generateRepo
	}
	if generateToken != "" {
		cfg.GitHub.Token = generateToken
	}
	if generateOutputDir != "" {
		cfg.Output.Dir = generateOutputDir
	}
	if generateSQLite != "" {
		cfg.Output.SQLitePath = generateSQLite
	}
	if generateTitle != "" {
		cfg.Site.Title = generateTitle
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Site.Repo == "" {
		return fmt.Errorf("a repository is required: pass --repo or set FWCATALOG_REPO")
	}
	if cfg.GitHub.Token == "" {
		return fmt.Errorf("a GitHub token is required: pass --token or set GITHUB_TOKEN")
	}

	cleanup, err := initializeRuntime(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := generate(ctx, cfg); err != nil {
		slog.Error("Generation failed", "error", err)
		return err
	}
	return nil
}

// generate runs the fetch, classify, render, write pipeline.
func generate(ctx context.Context, cfg *config.Config) error {
	// The output directory is created before anything is fetched, so a
	// failed run still leaves the target in place.
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var src github.Source = github.NewClient(cfg.GitHub.Token,
		github.WithBaseURL(cfg.GitHub.APIBaseURL),
		github.WithHTTPClient(&http.Client{Timeout: cfg.GitHub.Timeout}),
		github.WithPageSize(cfg.GitHub.PageSize),
	)

	// Wrap the source with instrumentation if telemetry is enabled
	if cfg.Metrics.Enabled || cfg.Observability.Tracing.Enabled {
		instrumented, err := observability.NewInstrumentedSource(src)
		if err != nil {
			return fmt.Errorf("failed to create instrumented source: %w", err)
		}
		src = instrumented
	}

	slog.Info("Fetching releases", "repo", cfg.Site.Repo)
	cat, err := catalog.Build(ctx, src, cfg.Site.Repo)
	if err != nil {
		return err
	}
	slog.Info("Catalog built",
		"releases", cat.Stats.ReleasesTotal,
		"devices", cat.Stats.DevicesTotal,
		"sources", cat.Stats.SourcesTotal)

	renderer, err := render.NewRenderer(cfg.Site.Title)
	if err != nil {
		return err
	}

	page, err := renderer.HTML(cat)
	if err != nil {
		return err
	}
	indexPath := filepath.Join(cfg.Output.Dir, "index.html")
	if err := os.WriteFile(indexPath, page, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", indexPath, err)
	}
	slog.Info("Wrote catalog page", "path", indexPath)

	data, err := render.JSON(cat.Releases)
	if err != nil {
		return err
	}
	dataPath := filepath.Join(cfg.Output.Dir, "releases.json")
	if err := os.WriteFile(dataPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dataPath, err)
	}
	slog.Info("Wrote release data", "path", dataPath)

	if cfg.Output.SQLitePath != "" {
		if err := export.WriteSQLite(ctx, cfg.Output.SQLitePath, cat); err != nil {
			return fmt.Errorf("failed to write sqlite snapshot: %w", err)
		}
		slog.Info("Wrote catalog snapshot", "path", cfg.Output.SQLitePath)
	}

	return nil
}
