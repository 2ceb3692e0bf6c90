package openaiapi

import "time"

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultAPIKeyEnv = "OPENAI_API_KEY"
	defaultTimeout   = 60 * time.Second
)

// Config is OpenAI-compatible chat completions client configuration.
type Config struct {
	Model      string
	BaseURL    string
	APIKey     string
	APIKeyEnv  string
	Timeout    time.Duration
	MaxRetries int
}
