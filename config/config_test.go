package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Provider != "ollama" {
		t.Errorf("expected default provider ollama, got %s", cfg.Model.Provider)
	}
	if cfg.Model.Name != "qwen2.5-coder:32b" {
		t.Errorf("expected default model qwen2.5-coder:32b, got %s", cfg.Model.Name)
	}
	if cfg.Model.Endpoint != "http://localhost:11434/v1" {
		t.Errorf("expected default endpoint http://localhost:11434/v1, got %s", cfg.Model.Endpoint)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 generation attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.AttemptTimeout != 20*time.Second {
		t.Errorf("expected 20s attempt timeout, got %v", cfg.Retry.AttemptTimeout)
	}
	if cfg.Store.Path == "" {
		t.Error("expected a default store path")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			modify:  func(c *Config) { c.Model.Provider = "bedrock" },
			wantErr: true,
		},
		{
			name:    "missing model name",
			modify:  func(c *Config) { c.Model.Name = "" },
			wantErr: true,
		},
		{
			name:    "missing model endpoint",
			modify:  func(c *Config) { c.Model.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "temperature too low",
			modify:  func(c *Config) { c.Model.Temperature = -0.1 },
			wantErr: true,
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.Model.Temperature = 1.1 },
			wantErr: true,
		},
		{
			name:    "zero max tokens",
			modify:  func(c *Config) { c.Model.MaxTokens = 0 },
			wantErr: true,
		},
		{
			name:    "missing store path",
			modify:  func(c *Config) { c.Store.Path = "" },
			wantErr: true,
		},
		{
			name:    "zero retry budget",
			modify:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "backoff cap below base",
			modify:  func(c *Config) { c.Retry.MaxBackoff = time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
model:
  provider: "openai"
  name: "test-model"
  endpoint: "http://test:1234/v1"
  temperature: 0.5
store:
  path: "/test/incidents.db"
chaos:
  log_dir: "/var/log/chaos"
retry:
  max_attempts: 2
  attempt_timeout: 10s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Model.Provider != "openai" {
		t.Errorf("expected provider openai, got %s", cfg.Model.Provider)
	}
	if cfg.Model.Name != "test-model" {
		t.Errorf("expected model test-model, got %s", cfg.Model.Name)
	}
	if cfg.Model.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %f", cfg.Model.Temperature)
	}
	if cfg.Store.Path != "/test/incidents.db" {
		t.Errorf("expected store path /test/incidents.db, got %s", cfg.Store.Path)
	}
	if cfg.Chaos.LogDir != "/var/log/chaos" {
		t.Errorf("expected chaos dir /var/log/chaos, got %s", cfg.Chaos.LogDir)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.AttemptTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Retry.AttemptTimeout)
	}
	// Unset fields keep their defaults.
	if cfg.Retry.BackoffBase != 2*time.Second {
		t.Errorf("expected default backoff base, got %v", cfg.Retry.BackoffBase)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Model: Model{
			Name: "override-model",
		},
		Store: Store{
			Path: "/override/incidents.db",
		},
		Chaos: Chaos{
			LogDir: "/override/chaos",
		},
	}

	base.Merge(override)

	if base.Model.Name != "override-model" {
		t.Errorf("expected model override-model, got %s", base.Model.Name)
	}
	// Endpoint should remain from base since override didn't set it
	if base.Model.Endpoint != "http://localhost:11434/v1" {
		t.Errorf("expected endpoint to remain default, got %s", base.Model.Endpoint)
	}
	if base.Store.Path != "/override/incidents.db" {
		t.Errorf("expected store path /override/incidents.db, got %s", base.Store.Path)
	}
	if base.Chaos.LogDir != "/override/chaos" {
		t.Errorf("expected chaos dir /override/chaos, got %s", base.Chaos.LogDir)
	}
	if base.Retry.MaxAttempts != 3 {
		t.Errorf("expected retry budget to remain default, got %d", base.Retry.MaxAttempts)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Model.Name = "saved-model"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Model.Name != "saved-model" {
		t.Errorf("expected model saved-model, got %s", loaded.Model.Name)
	}
}
