// Package config provides configuration for the e2e suite.
package config

import "time"

// DefaultLLMURL is where the mock LLM server listens by default. The
// engine talks OpenAI wire format to it, and the suite reads its /stats
// and /requests endpoints for call verification.
const DefaultLLMURL = "http://localhost:11434"

// Generative endpoint defaults for the e2e run.
const (
	DefaultProvider = "openai"
	DefaultModel    = "mock"
)

// Default timeouts.
const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultSetupTimeout   = 60 * time.Second
	DefaultStageTimeout   = 30 * time.Second
)

// Config holds the e2e suite configuration.
type Config struct {
	// LLMURL is the base URL of the mock LLM server.
	LLMURL string `json:"llm_url"`

	Provider string `json:"provider"`
	Model    string `json:"model"`

	CommandTimeout time.Duration `json:"command_timeout"`
	SetupTimeout   time.Duration `json:"setup_timeout"`
	StageTimeout   time.Duration `json:"stage_timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LLMURL:         DefaultLLMURL,
		Provider:       DefaultProvider,
		Model:          DefaultModel,
		CommandTimeout: DefaultCommandTimeout,
		SetupTimeout:   DefaultSetupTimeout,
		StageTimeout:   DefaultStageTimeout,
	}
}
