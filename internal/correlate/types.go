package correlate

import (
	"time"

	"github.com/yildizm/diagd/internal/classify"
)

// Kind is the correlation category of a finding.
type Kind string

const (
	KindTiming    Kind = "timing"
	KindComponent Kind = "component"
	KindSignature Kind = "issue-signature"
)

// Finding is a cross-artifact relationship between two or more classified
// entries from different artifacts.
type Finding struct {
	Kind        Kind              `json:"kind"`
	Description string            `json:"description"`
	Entries     []*classify.Entry `json:"entries"`
	Score       float64           `json:"score,omitempty"`
}

// earliest returns the earliest timestamp among the finding's entries, or
// zero when none carries one. Used for stable group ordering.
func (f *Finding) earliest() time.Time {
	var ts time.Time
	for _, entry := range f.Entries {
		if !entry.HasTimestamp {
			continue
		}
		if ts.IsZero() || entry.Timestamp.Before(ts) {
			ts = entry.Timestamp
		}
	}
	return ts
}

// Options tunes the correlation thresholds. Zero values select defaults.
type Options struct {
	// TimingWindow is the maximum distance between two timestamps for a
	// timing correlation.
	TimingWindow time.Duration

	// SimilarityThreshold is the minimum trigram overlap for an
	// issue-signature correlation.
	SimilarityThreshold float64

	// MinComponentSeverity is the minimum severity for component
	// correlation on both sides.
	MinComponentSeverity classify.Severity
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		TimingWindow:         5 * time.Second,
		SimilarityThreshold:  0.55,
		MinComponentSeverity: classify.SeverityWarning,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.TimingWindow <= 0 {
		o.TimingWindow = defaults.TimingWindow
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if o.MinComponentSeverity == 0 {
		o.MinComponentSeverity = defaults.MinComponentSeverity
	}
	return o
}
