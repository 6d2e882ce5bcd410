package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/yildizm/go-promptfmt"

	"github.com/yildizm/diagd/internal/logger"
	"github.com/yildizm/diagd/internal/prompt"
)

// DefaultTimeout bounds a single completion attempt.
const DefaultTimeout = 45 * time.Second

// Analysis is the outcome of one completion attempt. Response is nil when
// the reply was not parseable JSON; Raw always carries the reply text.
type Analysis struct {
	Response *prompt.DiagnosisResponse
	Raw      string
	Model    string
	Usage    *TokenUsage
}

// Integrator drives the optional completion step. It makes exactly one
// attempt per analysis, bounded by a timeout, and converts every failure
// into a reason string so the rest of the pipeline never handles AI errors.
type Integrator struct {
	provider Provider
	timeout  time.Duration
	log      *logger.Logger
}

// NewIntegrator creates an integrator. A nil provider is allowed and makes
// every Analyze call report the service as unconfigured.
func NewIntegrator(provider Provider, timeout time.Duration, log *logger.Logger) *Integrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Integrator{provider: provider, timeout: timeout, log: log}
}

// Analyze sends the prompt to the completion service. On failure it returns
// a nil analysis and a human-readable reason; it never returns an error.
func (i *Integrator) Analyze(ctx context.Context, p *promptfmt.Prompt) (*Analysis, string) {
	if i.provider == nil {
		return nil, "no completion provider configured"
	}
	if p == nil {
		return nil, "no prompt was produced"
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req := &CompletionRequest{
		Prompt:       p.String(),
		SystemPrompt: p.SystemPrompt,
	}

	resp, err := i.provider.Complete(ctx, req)
	if err != nil {
		i.log.Warn("completion attempt failed: %v", err)
		return nil, fmt.Sprintf("completion service unavailable: %v", err)
	}
	if resp == nil || resp.Content == "" {
		return nil, "completion service returned an empty reply"
	}

	analysis := &Analysis{
		Raw:   resp.Content,
		Model: resp.Model,
		Usage: resp.Usage,
	}

	var parsed prompt.DiagnosisResponse
	if result := promptfmt.NewResponse(resp.Content).TryParseJSON(&parsed); result.Success {
		analysis.Response = &parsed
	} else {
		i.log.Debug("reply was not parseable JSON, keeping raw text")
	}

	return analysis, ""
}
