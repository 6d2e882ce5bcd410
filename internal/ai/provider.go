package ai

import (
	"context"
	"time"
)

// Provider is the external completion-service boundary.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Complete performs one text completion.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CountTokens estimates the token count for a text.
	CountTokens(text string) (int, error)

	// MaxTokens returns the maximum context window size.
	MaxTokens() int

	// ValidateConfig validates the provider configuration.
	ValidateConfig() error

	// Close releases provider resources.
	Close() error
}

// CompletionRequest is one completion call.
type CompletionRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	Model        string  `json:"model,omitempty"`
}

// CompletionResponse is the provider's reply.
type CompletionResponse struct {
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason"`
	Model        string      `json:"model"`
	Usage        *TokenUsage `json:"usage,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
