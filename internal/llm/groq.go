package llm

import (
	"fmt"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqConfig holds configuration for the Groq provider.
type GroqConfig struct {
	APIKey string
	Model  string
}

// NewGroqProvider creates a provider backed by the Groq API, which is
// OpenAI-compatible. Groq supports longer outputs, so the token budget is
// higher than the OpenAI default.
func NewGroqProvider(cfg GroqConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   groqBaseURL,
		Model:     cfg.Model,
		MaxTokens: 2000,
	})
}
