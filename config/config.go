// Package config provides configuration loading and validation.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/saasgate/domain/route"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Settings SettingsConfig `yaml:"settings"`
	Auth     AuthConfig     `yaml:"auth"`
	Locale   LocaleConfig   `yaml:"locale"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures settings storage.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn"`
}

// SettingsConfig configures the settings schema and value storage.
type SettingsConfig struct {
	FragmentFiles []string `yaml:"fragment_files"` // YAML fragments contributing extra fields
	EncryptionKey string   `yaml:"encryption_key"` // Seals sensitive values; empty stores them unsealed
}

// AuthConfig configures auth callback routing.
type AuthConfig struct {
	CallbackRoutes  []CallbackRouteConfig `yaml:"callback_routes"`
	DefaultRedirect string                `yaml:"default_redirect"`
}

// CallbackRouteConfig names one callback pattern, e.g. /auth/[lang]/callback.
type CallbackRouteConfig struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// LocaleConfig configures the supported languages.
type LocaleConfig struct {
	Languages []string `yaml:"languages"`
	Default   string   `yaml:"default"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"` // Enable /swagger endpoints
}

// Load reads configuration from a YAML file. Relative fragment file paths
// are resolved against the directory holding the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i, f := range cfg.Settings.FragmentFiles {
		if !filepath.IsAbs(f) {
			cfg.Settings.FragmentFiles[i] = filepath.Join(dir, f)
		}
	}
	return cfg, nil
}

// Parse builds configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{
		Metrics: MetricsConfig{Enabled: true},
		OpenAPI: OpenAPIConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	SAASGATE_SERVER_HOST          - Server host (default: 0.0.0.0)
//	SAASGATE_SERVER_PORT          - Server port (default: 8080)
//	SAASGATE_DATABASE_DRIVER      - sqlite or memory (default: sqlite)
//	SAASGATE_DATABASE_DSN         - Database path (default: saasgate.db)
//	SAASGATE_SETTINGS_FRAGMENTS   - Comma-separated fragment files
//	SAASGATE_SETTINGS_KEY         - Encryption key for sensitive settings
//	SAASGATE_AUTH_DEFAULT_REDIRECT - Redirect target after auth callbacks (default: /)
//	SAASGATE_LOCALE_LANGUAGES     - Comma-separated languages (default: en)
//	SAASGATE_LOCALE_DEFAULT       - Default language (default: first language)
//	SAASGATE_LOG_LEVEL            - Log level: debug, info, warn, error (default: info)
//	SAASGATE_LOG_FORMAT           - Log format: json or console (default: json)
//	SAASGATE_METRICS_ENABLED      - Enable /metrics endpoint (default: true)
//	SAASGATE_OPENAPI_ENABLED      - Enable Swagger UI (default: true)
func LoadFromEnv() (*Config, error) {
	cfg := Config{
		Metrics: MetricsConfig{Enabled: true},
		OpenAPI: OpenAPIConfig{Enabled: true},
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies SAASGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("SAASGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SAASGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SAASGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SAASGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("SAASGATE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SAASGATE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Settings configuration
	if v := os.Getenv("SAASGATE_SETTINGS_FRAGMENTS"); v != "" {
		cfg.Settings.FragmentFiles = splitList(v)
	}
	if v := os.Getenv("SAASGATE_SETTINGS_KEY"); v != "" {
		cfg.Settings.EncryptionKey = v
	}

	// Auth configuration
	if v := os.Getenv("SAASGATE_AUTH_DEFAULT_REDIRECT"); v != "" {
		cfg.Auth.DefaultRedirect = v
	}

	// Locale configuration
	if v := os.Getenv("SAASGATE_LOCALE_LANGUAGES"); v != "" {
		cfg.Locale.Languages = splitList(v)
	}
	if v := os.Getenv("SAASGATE_LOCALE_DEFAULT"); v != "" {
		cfg.Locale.Default = v
	}

	// Logging configuration
	if v := os.Getenv("SAASGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SAASGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("SAASGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SAASGATE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// OpenAPI configuration
	if v := os.Getenv("SAASGATE_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "saasgate.db"
	}

	if len(cfg.Auth.CallbackRoutes) == 0 {
		cfg.Auth.CallbackRoutes = []CallbackRouteConfig{
			{Name: "callback", Pattern: "/auth/callback"},
			{Name: "localized_callback", Pattern: "/auth/[lang]/callback"},
		}
	}
	if cfg.Auth.DefaultRedirect == "" {
		cfg.Auth.DefaultRedirect = "/"
	}

	if len(cfg.Locale.Languages) == 0 {
		cfg.Locale.Languages = []string{"en"}
	}
	if cfg.Locale.Default == "" {
		cfg.Locale.Default = cfg.Locale.Languages[0]
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for sqlite"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be 'sqlite' or 'memory', got %q", cfg.Database.Driver))
	}

	if key := cfg.Settings.EncryptionKey; key != "" && len(decodeKey(key)) < 16 {
		errs = append(errs, errors.New("settings.encryption_key must be at least 16 bytes"))
	}

	names := make(map[string]bool)
	for i, r := range cfg.Auth.CallbackRoutes {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("auth.callback_routes[%d].name is required", i))
		} else if names[r.Name] {
			errs = append(errs, fmt.Errorf("auth.callback_routes[%d]: duplicate name %q", i, r.Name))
		}
		names[r.Name] = true
		if _, err := route.ParsePattern(r.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("auth.callback_routes[%d]: %w", i, err))
		}
	}
	if !strings.HasPrefix(cfg.Auth.DefaultRedirect, "/") || strings.HasPrefix(cfg.Auth.DefaultRedirect, "//") {
		errs = append(errs, fmt.Errorf("auth.default_redirect must be a local path, got %q", cfg.Auth.DefaultRedirect))
	}

	if !slices.Contains(cfg.Locale.Languages, cfg.Locale.Default) {
		errs = append(errs, fmt.Errorf("locale.default %q is not in locale.languages", cfg.Locale.Default))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level))
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}

// Key returns the configured key material. Values prefixed with
// "base64:" are decoded.
func (s SettingsConfig) Key() string {
	return string(decodeKey(s.EncryptionKey))
}

func decodeKey(key string) []byte {
	if rest, ok := strings.CutPrefix(key, "base64:"); ok {
		b, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil
		}
		return b
	}
	return []byte(key)
}
