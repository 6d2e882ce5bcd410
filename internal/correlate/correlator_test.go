package correlate

import (
	"context"
	"testing"
	"time"

	"github.com/yildizm/go-logparser"

	"github.com/yildizm/diagd/internal/classify"
)

func entry(artifactID, component, message string, severity classify.Severity, ts time.Time) *classify.Entry {
	e := &classify.Entry{
		LogEntry: logparser.LogEntry{
			Timestamp: ts,
			Level:     severity.String(),
			Message:   message,
		},
		Severity:     severity,
		Component:    component,
		ArtifactID:   artifactID,
		HasTimestamp: !ts.IsZero(),
		Raw:          message,
	}
	return e
}

func TestCorrelateTimingWindow(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	byArtifact := map[string][]*classify.Entry{
		"a1": {entry("a1", "AMSP", "scan engine initialization aborted", classify.SeverityError, base)},
		"a2": {entry("a2", "Firewall", "packet filter rules flushed on reload", classify.SeverityError, base.Add(3*time.Second))},
	}

	findings, err := NewCorrelator(Options{}).Correlate(context.Background(), byArtifact)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}

	timing := filterKind(findings, KindTiming)
	if len(timing) != 1 {
		t.Fatalf("Expected exactly 1 timing finding, got %d", len(timing))
	}
	if len(timing[0].Entries) != 2 {
		t.Fatalf("Expected 2 entries in finding, got %d", len(timing[0].Entries))
	}
	// Earlier timestamp listed first.
	if timing[0].Entries[0].ArtifactID != "a1" {
		t.Errorf("Expected earlier entry first, got %s", timing[0].Entries[0].ArtifactID)
	}
}

func TestCorrelateSingleArtifactNoOp(t *testing.T) {
	byArtifact := map[string][]*classify.Entry{
		"a1": {entry("a1", "AMSP", "engine crash", classify.SeverityCritical, time.Now())},
	}

	findings, err := NewCorrelator(Options{}).Correlate(context.Background(), byArtifact)
	if err != nil {
		t.Fatalf("Single artifact must not error: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("Expected empty findings, got %d", len(findings))
	}
}

func TestCorrelateSharedComponent(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	byArtifact := map[string][]*classify.Entry{
		"a1": {entry("a1", "AMSP", "real-time scan suspended by request", classify.SeverityWarning, base)},
		"a2": {entry("a2", "AMSP", "pattern update could not be applied", classify.SeverityError, base.Add(time.Hour))},
		"a3": {entry("a3", "AMSP", "quarantine folder listing ok", classify.SeverityInfo, base)},
	}

	findings, err := NewCorrelator(Options{}).Correlate(context.Background(), byArtifact)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}

	component := filterKind(findings, KindComponent)
	if len(component) != 1 {
		t.Fatalf("Expected 1 component finding, got %d", len(component))
	}
	// The info-level entry must not qualify.
	if len(component[0].Entries) != 2 {
		t.Errorf("Expected 2 qualifying entries, got %d", len(component[0].Entries))
	}
}

func TestCorrelateIssueSignature(t *testing.T) {
	byArtifact := map[string][]*classify.Entry{
		"a1": {entry("a1", "DSA", "failed to open connection to manager endpoint primary", classify.SeverityError, time.Time{})},
		"a2": {entry("a2", "DSA", "Failed to open connection   to manager endpoint primary", classify.SeverityError, time.Time{})},
	}

	findings, err := NewCorrelator(Options{}).Correlate(context.Background(), byArtifact)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}

	signature := filterKind(findings, KindSignature)
	if len(signature) != 1 {
		t.Fatalf("Expected 1 signature finding, got %d", len(signature))
	}
	if signature[0].Score < 0.55 {
		t.Errorf("Expected similarity above threshold, got %f", signature[0].Score)
	}
}

func TestCorrelateOrderingAndIdempotence(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	byArtifact := map[string][]*classify.Entry{
		"a1": {
			entry("a1", "Firewall", "interface isolation engaged during policy push", classify.SeverityWarning, base.Add(10*time.Second)),
			entry("a1", "DSA", "heartbeat rejected by manager certificate checks", classify.SeverityError, base),
		},
		"a2": {
			entry("a2", "Firewall", "stateful table overflow while reloading rules", classify.SeverityError, base.Add(12*time.Second)),
			entry("a2", "DSA", "heartbeat rejected by manager certificate checks", classify.SeverityError, base.Add(2*time.Second)),
		},
	}

	correlator := NewCorrelator(Options{})
	first, err := correlator.Correlate(context.Background(), byArtifact)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	second, err := correlator.Correlate(context.Background(), byArtifact)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Correlate not idempotent: %d vs %d findings", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind || first[i].Description != second[i].Description {
			t.Errorf("Finding %d differs between runs", i)
		}
	}

	// Group order: all timing findings precede component, which precede signature.
	rank := map[Kind]int{KindTiming: 0, KindComponent: 1, KindSignature: 2}
	for i := 1; i < len(first); i++ {
		if rank[first[i-1].Kind] > rank[first[i].Kind] {
			t.Errorf("Finding groups out of order at %d: %s after %s", i, first[i].Kind, first[i-1].Kind)
		}
	}
}

func filterKind(findings []*Finding, kind Kind) []*Finding {
	var out []*Finding
	for _, f := range findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
