package knowledge

import (
	"context"
	"errors"

	"github.com/yildizm/diagd/internal/classify"
)

// ErrStoreUnavailable is returned by Store implementations when the
// underlying index cannot be reached. The retriever degrades to an empty
// result set instead of failing the analysis.
var ErrStoreUnavailable = errors.New("knowledge store unavailable")

// Store is the black-box knowledge index boundary. Implementations score
// their own results; the retriever only shapes queries and re-ranks the
// merged set.
type Store interface {
	// Search returns scored excerpts for a query, optionally restricted
	// to one component, capped at maxResults.
	Search(ctx context.Context, query, component string, maxResults int) ([]*Item, error)
}

// Item is a scored reference-document excerpt. Ephemeral: recomputed per
// analysis, never persisted.
type Item struct {
	Title   string  `json:"title"`
	Section string  `json:"section"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Excerpt string  `json:"excerpt,omitempty"`
}

// LogContext is the structured summary of classified entries used to shape
// retrieval queries and the synthesized prompt.
type LogContext struct {
	Components      []string            `json:"components"`
	ErrorCategories []string            `json:"error_categories"`
	Severities      []classify.Severity `json:"severities"`
	MainIssues      []*classify.Entry   `json:"main_issues"`
	HasCritical     bool                `json:"has_critical"`
	TotalEntries    int                 `json:"total_entries"`
}

// QueryPriority weights a query for the bounded search budget and the
// blended re-ranking score.
type QueryPriority int

const (
	PriorityNormal QueryPriority = iota
	PriorityHigh
	PriorityEmergency
)

func (p QueryPriority) weight() float64 {
	switch p {
	case PriorityEmergency:
		return 1.0
	case PriorityHigh:
		return 0.85
	default:
		return 0.7
	}
}

// Query is one shaped retrieval query.
type Query struct {
	Text      string        `json:"text"`
	Component string        `json:"component,omitempty"`
	Priority  QueryPriority `json:"priority"`
}
