package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rosterly/rosterly/pkg/observability"
)

// Config holds all client configuration
type Config struct {
	// API configuration
	API APIConfig `yaml:"api"`

	// Permission cache configuration
	Permissions PermissionsConfig `yaml:"permissions"`

	// Local state configuration
	Keystore KeystoreConfig `yaml:"keystore"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// Duration is a time.Duration that decodes from YAML strings like "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL   string   `yaml:"base_url"`
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
}

// PermissionsConfig holds permission cache settings
type PermissionsConfig struct {
	// Validity is the staleness window for cached entries
	Validity Duration `yaml:"validity"`
	// WaitTimeout bounds waiting on a peer's in-flight load
	WaitTimeout Duration `yaml:"wait_timeout"`
}

// KeystoreConfig holds local storage settings
type KeystoreConfig struct {
	Path string `yaml:"path"`
}

// ObservabilityConfig holds logging, metrics and tracing settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Load builds configuration from defaults, an optional YAML file
// (ROSTERLY_CONFIG or ~/.rosterly.yaml) and environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := configFilePath(); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://127.0.0.1:8000",
			Timeout:   Duration(20 * time.Second),
			UserAgent: "rosterly-client",
		},
		Permissions: PermissionsConfig{
			Validity:    Duration(5 * time.Minute),
			WaitTimeout: Duration(5 * time.Second),
		},
		Keystore: KeystoreConfig{
			Path: defaultKeystorePath(),
		},
		Observability: ObservabilityConfig{
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "rosterly-client",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

func defaultKeystorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rosterly.db"
	}
	return filepath.Join(home, ".rosterly", "state.db")
}

func configFilePath() string {
	if path := os.Getenv("ROSTERLY_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".rosterly.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnv("ROSTERLY_API_URL", cfg.API.BaseURL)
	cfg.API.Timeout = Duration(getEnvDuration("ROSTERLY_API_TIMEOUT", cfg.API.Timeout.Std()))
	cfg.API.UserAgent = getEnv("ROSTERLY_USER_AGENT", cfg.API.UserAgent)

	cfg.Permissions.Validity = Duration(getEnvDuration("ROSTERLY_PERMISSION_VALIDITY", cfg.Permissions.Validity.Std()))
	cfg.Permissions.WaitTimeout = Duration(getEnvDuration("ROSTERLY_PERMISSION_WAIT_TIMEOUT", cfg.Permissions.WaitTimeout.Std()))

	cfg.Keystore.Path = getEnv("ROSTERLY_KEYSTORE_PATH", cfg.Keystore.Path)

	cfg.Observability.LogLevelName = getEnv("ROSTERLY_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("ROSTERLY_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = getEnvBool("ROSTERLY_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("ROSTERLY_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("ROSTERLY_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelServiceVersion = getEnv("ROSTERLY_OTEL_SERVICE_VERSION", cfg.Observability.OTelServiceVersion)
	cfg.Observability.OTelInsecure = getEnvBool("ROSTERLY_OTEL_INSECURE", cfg.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("API base URL must be an http(s) URL: %s", c.API.BaseURL)
	}
	if c.Permissions.Validity <= 0 {
		return fmt.Errorf("permission validity must be positive")
	}
	if c.Permissions.WaitTimeout <= 0 {
		return fmt.Errorf("permission wait timeout must be positive")
	}
	if c.Keystore.Path == "" {
		return fmt.Errorf("keystore path is required")
	}
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
