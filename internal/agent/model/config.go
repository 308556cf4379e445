package model

import (
	"fmt"
	"strings"
	"time"
)

// ================ Config ================
type ConversationConfig struct {
	Store string `envconfig:"SESSION_STORE" default:"file"`
	Dir   string `envconfig:"SESSION_DIR" default:"data/conversations"`
	TTL   string `envconfig:"CONVERSATION_TTL" default:"168h"`
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"3"`
	}
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"20"`
	}
}

// TTLDuration parses TTL; an empty value means no expiry.
func (c ConversationConfig) TTLDuration() (time.Duration, error) {
	if strings.TrimSpace(c.TTL) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", c.TTL, err)
	}
	return d, nil
}

type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

type LLMConfig struct {
	Provider      LLMProvider `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey  string      `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string      `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string      `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string      `envconfig:"OPENAI_BASE_URL"`
}

// Validate checks that the selected provider has a key.
func (c LLMConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.Provider)
	}
	return nil
}

// RouterModelConfig drives the agent loop that picks a capability.
type RouterModelConfig struct {
	Model       string  `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ROUTER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"ROUTER_TEMPERATURE" default:"0.2"`
}

// UtilityModelConfig drives single-shot prompts: extraction, e-mail drafting, flood analysis.
type UtilityModelConfig struct {
	Model       string  `envconfig:"UTILITY_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"UTILITY_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"UTILITY_TEMPERATURE" default:"0.1"`
}
