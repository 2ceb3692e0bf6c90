// Package config provides configuration loading and management for liminal.
package config

import (
	"path/filepath"
	"time"
)

// Supported LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultOpenAIModel           = "gpt-4o"
	defaultGeminiModel           = "gemini-2.5-flash"
	defaultTemperature           = 0.7
	defaultTimeoutSeconds        = 120
	defaultMaxRetries            = 2
	defaultGenerateMaxIterations = 30
	defaultEditMaxIterations     = 10
	defaultHistoryLimit          = 20
	defaultKeepLast              = 50
	defaultKeepDays              = 30
)

// Config is the root configuration.
type Config struct {
	DataDir   string          `json:"data_dir"  mapstructure:"data_dir"`
	LLM       LLMConfig       `json:"llm"       mapstructure:"llm"`
	Agent     AgentConfig     `json:"agent"     mapstructure:"agent"`
	Retention RetentionConfig `json:"retention" mapstructure:"retention"`
}

// LLMConfig selects and configures the language model backend.
type LLMConfig struct {
	Provider    string  `json:"provider"              mapstructure:"provider"`
	Model       string  `json:"model,omitempty"       mapstructure:"model"`
	BaseURL     string  `json:"base_url,omitempty"    mapstructure:"base_url"`
	APIKey      string  `json:"api_key,omitempty"     mapstructure:"api_key"`
	APIKeyEnv   string  `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	Timeout     int     `json:"timeout,omitempty"     mapstructure:"timeout"`
	Temperature float64 `json:"temperature"           mapstructure:"temperature"`
	MaxRetries  int     `json:"max_retries,omitempty" mapstructure:"max_retries"`
}

// AgentConfig bounds the agent loops.
type AgentConfig struct {
	GenerateMaxIterations int `json:"generate_max_iterations" mapstructure:"generate_max_iterations"`
	EditMaxIterations     int `json:"edit_max_iterations"     mapstructure:"edit_max_iterations"`
	HistoryLimit          int `json:"history_limit"           mapstructure:"history_limit"`
}

// RetentionConfig controls how many agent run logs "runs prune" keeps.
type RetentionConfig struct {
	KeepLast int `json:"keep_last" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days" mapstructure:"keep_days"`
}

// Defaults returns the settings used for keys missing from the config file,
// keyed the way viper expects them.
func Defaults(home string) map[string]any {
	return map[string]any{
		"data_dir":                      filepath.Join(home, ".liminal"),
		"llm.provider":                  ProviderOpenAI,
		"llm.timeout":                   defaultTimeoutSeconds,
		"llm.temperature":               defaultTemperature,
		"llm.max_retries":               defaultMaxRetries,
		"agent.generate_max_iterations": defaultGenerateMaxIterations,
		"agent.edit_max_iterations":     defaultEditMaxIterations,
		"agent.history_limit":           defaultHistoryLimit,
		"retention.keep_last":           defaultKeepLast,
		"retention.keep_days":           defaultKeepDays,
	}
}

// ResolvedModel returns the configured model or the provider's default.
func (c LLMConfig) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderGemini {
		return defaultGeminiModel
	}
	return defaultOpenAIModel
}

// TimeoutDuration returns the request timeout, zero when unset.
func (c LLMConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 0
	}
	return time.Duration(c.Timeout) * time.Second
}

// ProjectsDir is where project folders live.
func (c Config) ProjectsDir() string {
	return filepath.Join(c.DataDir, "projects")
}

// DBPath is the sqlite database holding chat sessions and agent events.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "liminal.db")
}
