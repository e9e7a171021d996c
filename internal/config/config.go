// Package config loads the optional YAML configuration for the scan tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the scan tool configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scan    ScanConfig    `yaml:"scan"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds repository server settings.
type ServerConfig struct {
	// Root is the repository base URL; usually supplied via the SERVER_ROOT
	// environment variable rather than the config file.
	Root       string `yaml:"root"`
	TimeoutSec int    `yaml:"timeout_sec"`
	UserAgent  string `yaml:"user_agent"`
}

// ScanConfig holds scan tuning settings.
type ScanConfig struct {
	MinItems     int `yaml:"min_items"`
	MaxItems     int `yaml:"max_items"`
	BatchSize    int `yaml:"batch_size"`
	MaxCheck     int `yaml:"max_check"`
	GatherTarget int `yaml:"gather_target"`
	SleepMS      int `yaml:"sleep_ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"` // debug, info, warn, error (default: info)
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration, mirroring the scan constants
// the tool has always used.
func Default() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file, expands ${VAR} references from
// the environment, applies defaults, and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Server.TimeoutSec <= 0 {
		c.Server.TimeoutSec = 10
	}
	if c.Server.UserAgent == "" {
		c.Server.UserAgent = "collection-size-query/1.0"
	}
	if c.Scan.MinItems <= 0 {
		c.Scan.MinItems = 5
	}
	if c.Scan.MaxItems <= 0 {
		c.Scan.MaxItems = 50
	}
	if c.Scan.BatchSize <= 0 {
		c.Scan.BatchSize = 100
	}
	if c.Scan.MaxCheck <= 0 {
		c.Scan.MaxCheck = 200
	}
	if c.Scan.GatherTarget <= 0 {
		c.Scan.GatherTarget = 2
	}
	if c.Scan.SleepMS <= 0 {
		c.Scan.SleepMS = 500
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Scan.MaxItems < c.Scan.MinItems {
		return fmt.Errorf("scan.max_items (%d) must be >= scan.min_items (%d)",
			c.Scan.MaxItems, c.Scan.MinItems)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q",
			c.Logging.Level)
	}
	return nil
}

// Sleep returns the inter-request delay as a duration.
func (c *Config) Sleep() time.Duration {
	return time.Duration(c.Scan.SleepMS) * time.Millisecond
}

// Timeout returns the per-request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSec) * time.Second
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
