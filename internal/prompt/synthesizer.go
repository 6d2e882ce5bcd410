package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/go-promptfmt"

	"github.com/yildizm/diagd/internal/classify"
	"github.com/yildizm/diagd/internal/correlate"
	"github.com/yildizm/diagd/internal/knowledge"
)

// Options tunes prompt assembly. Zero values select defaults.
type Options struct {
	// MaxChars is the overall prompt length ceiling. When exceeded,
	// knowledge excerpts are trimmed first, then correlations; the issue
	// list is never trimmed.
	MaxChars int

	// ExcerptCap is the per-retrieval cap on knowledge excerpts kept
	// when trimming begins.
	ExcerptCap int
}

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = 6000
	}
	if o.ExcerptCap <= 0 {
		o.ExcerptCap = 2
	}
	return o
}

// DiagnosisResponse is the JSON shape requested from the completion
// service and parsed back out of its reply.
type DiagnosisResponse struct {
	Summary     string `json:"summary"`
	HealthScore int    `json:"health_score"`
	Issues      []struct {
		Title       string `json:"title"`
		Component   string `json:"component"`
		Severity    string `json:"severity"`
		Explanation string `json:"explanation"`
	} `json:"issues"`
	Recommendations []struct {
		Title       string   `json:"title"`
		Priority    string   `json:"priority"`
		ActionItems []string `json:"action_items"`
	} `json:"recommendations"`
}

// Synthesizer merges log context, correlation findings, and retrieved
// knowledge into one bounded prompt. Output is deterministic for
// identical inputs.
type Synthesizer struct {
	opts Options
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(opts Options) *Synthesizer {
	return &Synthesizer{opts: opts.withDefaults()}
}

// Synthesize builds the diagnosis prompt. Sections appear in fixed order
// and are omitted entirely when their source data is empty.
func (s *Synthesizer) Synthesize(logCtx *knowledge.LogContext, findings []*correlate.Finding, items []*knowledge.Item, health map[string]float64) *promptfmt.Prompt {
	issues := issuesSection(logCtx)
	healthSection := healthSection(health)
	correlations := correlationsSection(findings)
	excerpts := knowledgeSection(items, len(items))

	// Enforce the ceiling: drop knowledge excerpts beyond the cap, then
	// entirely, then correlations. The issue list always survives.
	budget := s.opts.MaxChars - len(summaryText(logCtx)) - len(issues) - len(healthSection)
	if len(correlations)+len(excerpts) > budget {
		excerpts = knowledgeSection(items, s.opts.ExcerptCap)
	}
	if len(correlations)+len(excerpts) > budget {
		excerpts = ""
	}
	if len(correlations) > budget {
		correlations = ""
	}

	pb := promptfmt.New().
		System("You are a diagnostic assistant for an endpoint security product. "+
			"Analyze agent diagnostics and produce a precise, actionable assessment.").
		User("%s", summaryText(logCtx))

	if issues != "" {
		pb.AddContext("prioritized_issues", issues)
	}
	if healthSection != "" {
		pb.AddContext("component_health", healthSection)
	}
	if correlations != "" {
		pb.AddContext("correlation_findings", correlations)
	}
	if excerpts != "" {
		pb.AddContext("reference_documentation", excerpts)
	}

	return pb.ExpectJSON(&DiagnosisResponse{}).Build()
}

func summaryText(logCtx *knowledge.LogContext) string {
	if logCtx == nil || logCtx.TotalEntries == 0 {
		return "Diagnose the following endpoint agent artifacts. No classifiable log entries were found; assess overall state from the metadata."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Diagnose the following endpoint agent state: %d classified entries", logCtx.TotalEntries)
	if len(logCtx.Components) > 0 {
		fmt.Fprintf(&b, " across components %s", strings.Join(logCtx.Components, ", "))
	}
	if len(logCtx.ErrorCategories) > 0 {
		fmt.Fprintf(&b, "; observed error categories: %s", strings.Join(logCtx.ErrorCategories, ", "))
	}
	if logCtx.HasCritical {
		b.WriteString("; CRITICAL conditions present")
	}
	b.WriteString(".")
	return b.String()
}

func issuesSection(logCtx *knowledge.LogContext) string {
	if logCtx == nil || len(logCtx.MainIssues) == 0 {
		return ""
	}

	var b strings.Builder
	for i, issue := range logCtx.MainIssues {
		fmt.Fprintf(&b, "%d. [%s] %s: %s", i+1, issue.Severity, issue.Component, issue.Message)
		if issue.HasTimestamp {
			fmt.Fprintf(&b, " (at %s)", issue.Timestamp.Format(time.RFC3339))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func healthSection(health map[string]float64) string {
	if len(health) == 0 {
		return ""
	}

	var b strings.Builder
	for _, component := range classify.UnhealthyComponents(health, 1.01) {
		fmt.Fprintf(&b, "%s: %.2f\n", component, health[component])
	}
	return b.String()
}

func correlationsSection(findings []*correlate.Finding) string {
	if len(findings) == 0 {
		return ""
	}

	var b strings.Builder
	for _, finding := range findings {
		fmt.Fprintf(&b, "- [%s] %s\n", finding.Kind, finding.Description)
	}
	return b.String()
}

func knowledgeSection(items []*knowledge.Item, limit int) string {
	if len(items) == 0 || limit <= 0 {
		return ""
	}
	if limit > len(items) {
		limit = len(items)
	}

	var b strings.Builder
	for _, item := range items[:limit] {
		fmt.Fprintf(&b, "From %q, section %q (relevance %.2f):\n%s\n\n", item.Title, item.Section, item.Score, item.Excerpt)
	}
	return strings.TrimSpace(b.String())
}
