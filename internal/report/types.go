package report

import (
	"time"

	"github.com/yildizm/diagd/internal/classify"
	"github.com/yildizm/diagd/internal/correlate"
	"github.com/yildizm/diagd/internal/knowledge"
)

// SectionStatus records how much of a section could be produced.
type SectionStatus string

const (
	// StatusFull means the section was produced from complete inputs.
	StatusFull SectionStatus = "full"
	// StatusDegraded means the section is present but built from partial
	// inputs, with Reason saying what was missing.
	StatusDegraded SectionStatus = "degraded"
	// StatusAbsent means the section could not be produced at all.
	StatusAbsent SectionStatus = "absent"
)

// SectionMeta is embedded in every report section so readers can tell a
// complete section from a degraded or missing one.
type SectionMeta struct {
	Status SectionStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Full marks the section complete.
func Full() SectionMeta {
	return SectionMeta{Status: StatusFull}
}

// Degraded marks the section partial with a reason.
func Degraded(reason string) SectionMeta {
	return SectionMeta{Status: StatusDegraded, Reason: reason}
}

// Absent marks the section missing with a reason.
func Absent(reason string) SectionMeta {
	return SectionMeta{Status: StatusAbsent, Reason: reason}
}

// Report is the result of one diagnostic analysis. Sections degrade
// independently; a report is produced even when only the processing
// section has content.
type Report struct {
	SessionID   string    `json:"session_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	Processing   ProcessingSection  `json:"processing"`
	Issues       IssuesSection      `json:"issues"`
	Health       HealthSection      `json:"health"`
	Correlations CorrelationSection `json:"correlations"`
	Knowledge    KnowledgeSection   `json:"knowledge"`
	AIAnalysis   AISection          `json:"ai_analysis"`
}

// ArtifactStats summarizes how one artifact was processed.
type ArtifactStats struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Kind            string  `json:"kind"`
	Encoding        string  `json:"encoding,omitempty"`
	TotalLines      int     `json:"total_lines"`
	ClassifiedLines int     `json:"classified_lines"`
	SkippedLines    int     `json:"skipped_lines"`
	SuccessRate     float64 `json:"success_rate"`
	Degraded        bool    `json:"degraded"`
	Error           string  `json:"error,omitempty"`
}

// ProcessingSection reports per-artifact classification statistics.
type ProcessingSection struct {
	SectionMeta
	Artifacts []ArtifactStats `json:"artifacts"`
}

// IssuesSection carries the prioritized issue list.
type IssuesSection struct {
	SectionMeta
	MainIssues     []*classify.Entry `json:"main_issues"`
	SeverityCounts map[string]int    `json:"severity_counts"`
	TotalEntries   int               `json:"total_entries"`
}

// HealthSection carries per-component health scores in [0, 1].
type HealthSection struct {
	SectionMeta
	Components map[string]float64 `json:"components"`
	Unhealthy  []string           `json:"unhealthy,omitempty"`
}

// CorrelationSection carries cross-artifact findings.
type CorrelationSection struct {
	SectionMeta
	Findings []*correlate.Finding `json:"findings"`
}

// KnowledgeSection carries retrieved documentation excerpts.
type KnowledgeSection struct {
	SectionMeta
	Items []*knowledge.Item `json:"items"`
}

// AIIssue is one issue from the completion service's structured reply.
type AIIssue struct {
	Title       string `json:"title"`
	Component   string `json:"component"`
	Severity    string `json:"severity"`
	Explanation string `json:"explanation"`
}

// AIRecommendation is one recommendation from the structured reply.
type AIRecommendation struct {
	Title       string   `json:"title"`
	Priority    string   `json:"priority"`
	ActionItems []string `json:"action_items"`
}

// AISection carries the optional completion-service assessment. Raw holds
// the unparsed reply text when the structured fields could not be filled.
type AISection struct {
	SectionMeta
	Summary         string             `json:"summary,omitempty"`
	HealthScore     int                `json:"health_score,omitempty"`
	Issues          []AIIssue          `json:"issues,omitempty"`
	Recommendations []AIRecommendation `json:"recommendations,omitempty"`
	Raw             string             `json:"raw,omitempty"`
	Model           string             `json:"model,omitempty"`
}
