package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Start with default configuration
	config := NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *Config) {
	// Site configuration
	if title := os.Getenv("FWCATALOG_SITE_TITLE"); title != "" {
		config.Site.Title = title
	}

	if repo := os.Getenv("FWCATALOG_REPO"); repo != "" {
		config.Site.Repo = repo
	}

	// GitHub API configuration. The plain GITHUB_TOKEN fallback keeps the
	// tool drop-in compatible with GitHub Actions workflows.
	if token := os.Getenv("FWCATALOG_GITHUB_TOKEN"); token != "" {
		config.GitHub.Token = token
	} else if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.GitHub.Token = token
	}

	if baseURL := os.Getenv("FWCATALOG_GITHUB_API_BASE_URL"); baseURL != "" {
		config.GitHub.APIBaseURL = baseURL
	}

	if timeout := os.Getenv("FWCATALOG_GITHUB_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.GitHub.Timeout = d
		}
	}

	if pageSize := os.Getenv("FWCATALOG_GITHUB_PAGE_SIZE"); pageSize != "" {
		if n, err := strconv.Atoi(pageSize); err == nil {
			config.GitHub.PageSize = n
		}
	}

	// Output configuration
	if dir := os.Getenv("FWCATALOG_OUTPUT_DIR"); dir != "" {
		config.Output.Dir = dir
	}

	if path := os.Getenv("FWCATALOG_SQLITE_PATH"); path != "" {
		config.Output.SQLitePath = path
	}

	// Logging configuration
	if level := os.Getenv("FWCATALOG_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("FWCATALOG_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("FWCATALOG_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("FWCATALOG_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Preview server configuration
	if addr := os.Getenv("FWCATALOG_SERVE_ADDR"); addr != "" {
		config.Serve.Addr = addr
	}

	if dir := os.Getenv("FWCATALOG_SERVE_DIR"); dir != "" {
		config.Serve.Dir = dir
	}

	if timeout := os.Getenv("FWCATALOG_SERVE_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Serve.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("FWCATALOG_SERVE_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Serve.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("FWCATALOG_SERVE_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Serve.IdleTimeout = d
		}
	}

	// Metrics configuration
	if metrics := os.Getenv("FWCATALOG_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("FWCATALOG_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	// Observability configuration
	if name := os.Getenv("FWCATALOG_SERVICE_NAME"); name != "" {
		config.Observability.ServiceName = name
	}

	if tracing := os.Getenv("FWCATALOG_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("FWCATALOG_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("FWCATALOG_TRACING_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}

	if rate := os.Getenv("FWCATALOG_TRACING_SAMPLE_RATE"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Observability.Tracing.SampleRate = f
		}
	}
}
