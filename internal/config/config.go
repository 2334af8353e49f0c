// Package config defines the fwcatalog configuration: catalog site settings,
// GitHub API access, output targets, logging, the preview server, and
// observability. Values are layered defaults < YAML file < environment <
// command-line flags, with validation applied to the final result.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure containing all tool settings.
type Config struct {
	Site          SiteConfig          `yaml:"site" json:"site"`                   // Catalog page identity
	GitHub        GitHubConfig        `yaml:"github" json:"github"`               // GitHub API client
	Output        OutputConfig        `yaml:"output" json:"output"`               // Generated artifact targets
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Logging and output configuration
	Serve         ServeConfig         `yaml:"serve" json:"serve"`                 // Preview server
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Preview server metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing and telemetry identity
}

// SiteConfig identifies the catalog being generated.
type SiteConfig struct {
	Title string `yaml:"title" json:"title"` // Page heading and <title>
	Repo  string `yaml:"repo" json:"repo"`   // GitHub repository in owner/name format
}

// GitHubConfig holds the REST API client settings.
type GitHubConfig struct {
	Token      string        `yaml:"token" json:"token"`
	APIBaseURL string        `yaml:"api_base_url" json:"api_base_url"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	PageSize   int           `yaml:"page_size" json:"page_size"`
}

// OutputConfig names the files the generator writes.
type OutputConfig struct {
	Dir        string `yaml:"dir" json:"dir"`                 // Directory for index.html and releases.json
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"` // Optional SQLite export, empty disables
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type ServeConfig struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Dir          string        `yaml:"dir" json:"dir"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
}

// NewDefaultConfig creates a configuration that works out of the box for a
// public repository once a repo and token are supplied.
//
// Default Values Rationale:
// - 30-second API timeout: generous enough for large asset listings
// - Page size 100: the GitHub API maximum, fewest round trips
// - Text logs on stderr: keeps stdout clean for piping generated output
// - Metrics enabled: the preview server exposes /metrics unless disabled
func NewDefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Title: "Firmware Release Catalog",
		},
		GitHub: GitHubConfig{
			APIBaseURL: "https://api.github.com",
			Timeout:    30 * time.Second,
			PageSize:   100,
		},
		Output: OutputConfig{
			Dir: "site",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Serve: ServeConfig{
			Addr:         ":8080",
			Dir:          "site",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Observability: ObservabilityConfig{
			ServiceName: "fwcatalog",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("invalid site config: %w", err)
	}

	if err := c.GitHub.Validate(); err != nil {
		return fmt.Errorf("invalid github config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("invalid output config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Serve.Validate(); err != nil {
		return fmt.Errorf("invalid serve config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

// Validate checks the site section. The repository is optional here because
// the serve and version subcommands run without one; the generate command
// enforces presence separately.
func (sc *SiteConfig) Validate() error {
	if sc.Title == "" {
		return errors.New("site title cannot be empty")
	}

	if sc.Repo != "" {
		owner, name, ok := strings.Cut(sc.Repo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("repository must be in owner/name format: %s", sc.Repo)
		}
	}

	return nil
}

func (gc *GitHubConfig) Validate() error {
	if gc.APIBaseURL == "" {
		return errors.New("api base url cannot be empty")
	}

	if gc.Timeout <= 0 {
		return errors.New("github timeout must be positive")
	}

	if gc.PageSize < 1 || gc.PageSize > 100 {
		return errors.New("page size must be between 1 and 100")
	}

	return nil
}

func (oc *OutputConfig) Validate() error {
	if oc.Dir == "" {
		return errors.New("output dir cannot be empty")
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, vl := range validLevels {
		if lc.Level == vl {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	validFormats := []string{"json", "text", "pretty"}
	found = false
	for _, vf := range validFormats {
		if lc.Format == vf {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	validOutputs := []string{"stdout", "stderr", "file"}
	found = false
	for _, vo := range validOutputs {
		if lc.Output == vo {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (svc *ServeConfig) Validate() error {
	if svc.Addr == "" {
		return errors.New("serve addr cannot be empty")
	}

	if svc.Dir == "" {
		return errors.New("serve dir cannot be empty")
	}

	if svc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if svc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if svc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if !strings.HasPrefix(mc.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %s", mc.Path)
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}

	if !oc.Tracing.Enabled {
		return nil
	}

	validExporters := []string{"stdout", "otlp"}
	found := false
	for _, ve := range validExporters {
		if oc.Tracing.Exporter == ve {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid tracing exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("tracing sample rate must be between 0 and 1")
	}

	if oc.Tracing.Exporter == "otlp" && oc.Tracing.OTLPEndpoint == "" {
		return errors.New("OTLP endpoint is required when tracing exporter is otlp")
	}

	return nil
}
