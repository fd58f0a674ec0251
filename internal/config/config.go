package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all dreams configuration.
type Config struct {
	// SQLite file holding entries and settings
	DatabasePath string `yaml:"database_path" json:"database_path"`

	Server  ServerConfig  `yaml:"server" json:"server"`
	Theme   ThemeConfig   `yaml:"theme" json:"theme"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig configures the local web journal.
type ServerConfig struct {
	Addr            string `yaml:"addr" json:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// ThemeConfig configures day/night inference.
type ThemeConfig struct {
	PrefersDark     bool   `yaml:"prefers_dark" json:"prefers_dark"`
	RefreshInterval string `yaml:"refresh_interval" json:"refresh_interval"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"` // debug, info, warn, error
	Development bool   `yaml:"development" json:"development"`
}

// DefaultDir returns ~/.dreams, or .dreams when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dreams"
	}
	return filepath.Join(home, ".dreams")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: filepath.Join(DefaultDir(), "dreams_static_db.sqlite"),
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: "5s",
		},
		Theme: ThemeConfig{
			RefreshInterval: "15m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DREAMS_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("DREAMS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DREAMS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks values that are parsed lazily.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database_path must be set")
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid server.shutdown_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Theme.RefreshInterval); err != nil {
		return fmt.Errorf("invalid theme.refresh_interval: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	return nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetShutdownTimeout returns the server shutdown timeout.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetRefreshInterval returns how often the theme is re-derived.
func (c *Config) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.Theme.RefreshInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// BuildLogger creates the zap logger described by the logging section.
// verbose forces debug level.
func (c *Config) BuildLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
