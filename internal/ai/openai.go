package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenAIConfig configures the OpenAI-compatible chat provider.
type OpenAIConfig struct {
	APIKey             string        `yaml:"api_key"`
	BaseURL            string        `yaml:"base_url"`
	DefaultModel       string        `yaml:"model"`
	DefaultTemperature float64       `yaml:"temperature"`
	MaxTokens          int           `yaml:"max_tokens"`
	Timeout            time.Duration `yaml:"timeout"`
}

// DefaultOpenAIConfig returns the default provider configuration.
func DefaultOpenAIConfig() *OpenAIConfig {
	return &OpenAIConfig{
		BaseURL:            "https://api.openai.com",
		DefaultModel:       "gpt-4o-mini",
		DefaultTemperature: 0.2,
		MaxTokens:          8192,
		Timeout:            30 * time.Second,
	}
}

// Validate checks the configuration.
func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return NewProviderError(ErrTypeConfiguration, "api_key is required", "openai")
	}
	if c.BaseURL == "" {
		return NewProviderError(ErrTypeConfiguration, "base_url is required", "openai")
	}
	if c.MaxTokens <= 0 {
		return NewProviderError(ErrTypeConfiguration, "max_tokens must be positive", "openai")
	}
	if c.Timeout <= 0 {
		return NewProviderError(ErrTypeConfiguration, "timeout must be positive", "openai")
	}
	return nil
}

// OpenAIProvider talks to an OpenAI-compatible chat completions endpoint.
// Requests are made exactly once; transient failures surface to the caller
// instead of being retried.
type OpenAIProvider struct {
	config  *OpenAIConfig
	client  *http.Client
	baseURL *url.URL
}

// NewOpenAIProvider creates a provider from config.
func NewOpenAIProvider(config *OpenAIConfig) (*OpenAIProvider, error) {
	if config == nil {
		config = DefaultOpenAIConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, NewProviderErrorWithCause(ErrTypeConfiguration, "invalid base URL", "openai", err)
	}

	return &OpenAIProvider{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: baseURL,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, NewProviderError(ErrTypeValidation, "completion request is required", "openai")
	}

	chatReq := p.buildChatRequest(req)

	chatResp, err := p.sendChatRequest(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	if len(chatResp.Choices) == 0 {
		return nil, NewProviderError(ErrTypeProvider, "response contained no choices", "openai")
	}

	choice := chatResp.Choices[0]
	resp := &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Model:        chatResp.Model,
		CreatedAt:    time.Unix(chatResp.Created, 0),
	}
	if chatResp.Usage != nil {
		resp.Usage = &TokenUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		}
	}
	return resp, nil
}

func (p *OpenAIProvider) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)) + len(text)/4, nil
}

func (p *OpenAIProvider) MaxTokens() int {
	return p.config.MaxTokens
}

func (p *OpenAIProvider) ValidateConfig() error {
	return p.config.Validate()
}

func (p *OpenAIProvider) Close() error {
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *OpenAIProvider) buildChatRequest(req *CompletionRequest) *chatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.config.DefaultModel
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.config.DefaultTemperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens / 2
	}

	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	return &chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

func (p *OpenAIProvider) sendChatRequest(ctx context.Context, req *chatCompletionRequest) (*chatCompletionResponse, error) {
	endpoint := p.baseURL.JoinPath("/v1/chat/completions")

	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewProviderErrorWithCause(ErrTypeProvider, "failed to marshal request", "openai", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, NewProviderErrorWithCause(ErrTypeNetwork, "failed to create request", "openai", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewProviderErrorWithCause(ErrTypeTimeout, "request canceled or timed out", "openai", err)
		}
		return nil, NewProviderErrorWithCause(ErrTypeNetwork, "request failed", "openai", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, NewProviderErrorWithCause(ErrTypeProvider, "failed to decode response", "openai", err)
	}
	return &chatResp, nil
}

func (p *OpenAIProvider) handleErrorResponse(resp *http.Response) error {
	message := fmt.Sprintf("request failed with status %d", resp.StatusCode)

	if body, err := io.ReadAll(resp.Body); err == nil {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
	}

	pe := &ProviderError{Message: message, Provider: "openai", StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		pe.Type = ErrTypeAuthentication
	case http.StatusBadRequest:
		pe.Type = ErrTypeValidation
	default:
		pe.Type = ErrTypeProvider
	}
	return pe
}
