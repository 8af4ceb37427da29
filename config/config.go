// Package config provides configuration loading and management for SkillOps.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete SkillOps configuration.
type Config struct {
	Model Model `yaml:"model"`
	Store Store `yaml:"store"`
	Chaos Chaos `yaml:"chaos"`
	Retry Retry `yaml:"retry"`
}

// Model configures the generative service endpoint.
type Model struct {
	// Provider selects the API dialect: ollama, openai or anthropic.
	Provider string `yaml:"provider"`
	// Name is the model to use (e.g. "qwen2.5-coder:32b").
	Name string `yaml:"name"`
	// Endpoint is the API base URL (default: local Ollama).
	Endpoint string `yaml:"endpoint"`
	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// MaxTokens bounds completion length.
	MaxTokens int `yaml:"max_tokens"`
}

// Store configures the incident database.
type Store struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// Chaos configures the fault-injection event log.
type Chaos struct {
	// LogDir is the directory holding chaos event logs. Empty disables
	// the recent-systems bias.
	LogDir string `yaml:"log_dir"`
	// Pattern overrides the log file glob.
	Pattern string `yaml:"pattern"`
}

// Retry configures the generation retry policy.
type Retry struct {
	// MaxAttempts is the incident-generation attempt budget.
	MaxAttempts int `yaml:"max_attempts"`
	// AttemptTimeout bounds each service call.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	// BackoffBase is the delay before the second attempt, doubled on
	// each further retry.
	BackoffBase time.Duration `yaml:"backoff_base"`
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: Model{
			Provider:    "ollama",
			Name:        "qwen2.5-coder:32b",
			Endpoint:    "http://localhost:11434/v1",
			Temperature: 0.7,
			MaxTokens:   2048,
		},
		Store: Store{
			Path: defaultStorePath(),
		},
		Retry: Retry{
			MaxAttempts:    3,
			AttemptTimeout: 20 * time.Second,
			BackoffBase:    2 * time.Second,
			MaxBackoff:     30 * time.Second,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "skillops.db"
	}
	return filepath.Join(home, ".local", "share", "skillops", "skillops.db")
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "ollama", "openai", "anthropic":
	default:
		return fmt.Errorf("model.provider %q must be ollama, openai or anthropic", c.Model.Provider)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Model.MaxTokens < 1 {
		return fmt.Errorf("model.max_tokens must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.AttemptTimeout <= 0 {
		return fmt.Errorf("retry.attempt_timeout must be positive")
	}
	if c.Retry.BackoffBase <= 0 {
		return fmt.Errorf("retry.backoff_base must be positive")
	}
	if c.Retry.MaxBackoff < c.Retry.BackoffBase {
		return fmt.Errorf("retry.max_backoff must be at least retry.backoff_base")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Model.Provider != "" {
		c.Model.Provider = other.Model.Provider
	}
	if other.Model.Name != "" {
		c.Model.Name = other.Model.Name
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.MaxTokens != 0 {
		c.Model.MaxTokens = other.Model.MaxTokens
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	if other.Chaos.LogDir != "" {
		c.Chaos.LogDir = other.Chaos.LogDir
	}
	if other.Chaos.Pattern != "" {
		c.Chaos.Pattern = other.Chaos.Pattern
	}

	if other.Retry.MaxAttempts != 0 {
		c.Retry.MaxAttempts = other.Retry.MaxAttempts
	}
	if other.Retry.AttemptTimeout != 0 {
		c.Retry.AttemptTimeout = other.Retry.AttemptTimeout
	}
	if other.Retry.BackoffBase != 0 {
		c.Retry.BackoffBase = other.Retry.BackoffBase
	}
	if other.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = other.Retry.MaxBackoff
	}
}
