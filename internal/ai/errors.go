package ai

import (
	"fmt"
	"strings"
)

// ErrorType categorizes completion-boundary failures.
type ErrorType string

const (
	ErrTypeProvider       ErrorType = "provider"
	ErrTypeConfiguration  ErrorType = "configuration"
	ErrTypeAuthentication ErrorType = "authentication"
	ErrTypeNetwork        ErrorType = "network"
	ErrTypeTimeout        ErrorType = "timeout"
	ErrTypeValidation     ErrorType = "validation"
)

// ProviderError is the error type crossing the AI boundary. Nothing past
// the integrator ever sees it; the integrator converts failures into a
// degraded-report reason string.
type ProviderError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Provider   string    `json:"provider,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Cause      error     `json:"-"`
}

func (e *ProviderError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.Provider))
	}
	parts = append(parts, fmt.Sprintf("type=%s", e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%s", e.Cause.Error()))
	}
	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is matches on error type so callers can test categories.
func (e *ProviderError) Is(target error) bool {
	if pe, ok := target.(*ProviderError); ok {
		return e.Type == pe.Type
	}
	return false
}

// NewProviderError creates a provider error.
func NewProviderError(errType ErrorType, message, provider string) *ProviderError {
	return &ProviderError{Type: errType, Message: message, Provider: provider}
}

// NewProviderErrorWithCause creates a provider error wrapping a cause.
func NewProviderErrorWithCause(errType ErrorType, message, provider string, cause error) *ProviderError {
	return &ProviderError{Type: errType, Message: message, Provider: provider, Cause: cause}
}
