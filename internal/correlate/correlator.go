package correlate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yildizm/diagd/internal/classify"
)

// Correlator finds time-window, shared-component, and issue-signature
// relationships across classified artifacts.
type Correlator struct {
	opts Options
}

// NewCorrelator creates a correlation engine with the given options.
func NewCorrelator(opts Options) *Correlator {
	return &Correlator{opts: opts.withDefaults()}
}

// Correlate examines classified entries grouped by artifact. With fewer
// than two artifacts carrying entries it is a no-op returning an empty
// slice, never an error. Output order is stable: timing findings first,
// then component, then issue-signature, each group ordered by
// earliest-timestamp-or-first-seen.
func (c *Correlator) Correlate(ctx context.Context, byArtifact map[string][]*classify.Entry) ([]*Finding, error) {
	ids := artifactsWithEntries(byArtifact)
	if len(ids) < 2 {
		return []*Finding{}, nil
	}

	type pair struct{ a, b string }
	var pairs []pair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, pair{ids[i], ids[j]})
		}
	}

	// Pairwise comparisons are independent; results are merged back in
	// pair order so parallelism never changes the output.
	type pairResult struct {
		timing    []*Finding
		signature []*Finding
	}
	results := make([]pairResult, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range pairs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = pairResult{
				timing:    c.timingFindings(byArtifact[p.a], byArtifact[p.b]),
				signature: c.signatureFindings(byArtifact[p.a], byArtifact[p.b]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var timing, signature []*Finding
	for _, r := range results {
		timing = append(timing, r.timing...)
		signature = append(signature, r.signature...)
	}
	component := c.componentFindings(ids, byArtifact)

	sortGroup(timing)
	sortGroup(component)
	sortGroup(signature)

	findings := make([]*Finding, 0, len(timing)+len(component)+len(signature))
	findings = append(findings, timing...)
	findings = append(findings, component...)
	findings = append(findings, signature...)
	return findings, nil
}

// timingFindings pairs entries from two artifacts whose timestamps fall
// within the configured window. The earlier entry is listed first.
func (c *Correlator) timingFindings(left, right []*classify.Entry) []*Finding {
	var findings []*Finding
	for _, a := range left {
		if !a.HasTimestamp {
			continue
		}
		for _, b := range right {
			if !b.HasTimestamp {
				continue
			}
			delta := b.Timestamp.Sub(a.Timestamp)
			if delta < 0 {
				delta = -delta
			}
			if delta > c.opts.TimingWindow {
				continue
			}

			first, second := a, b
			if b.Timestamp.Before(a.Timestamp) {
				first, second = b, a
			}
			findings = append(findings, &Finding{
				Kind: KindTiming,
				Description: fmt.Sprintf("%s event in %s followed within %s by %s event in %s",
					first.Component, first.ArtifactID, delta.Round(time.Millisecond), second.Component, second.ArtifactID),
				Entries: []*classify.Entry{first, second},
			})
		}
	}
	return findings
}

// componentFindings aggregates one finding per component label seen with
// severity at or above the threshold in more than one artifact.
func (c *Correlator) componentFindings(ids []string, byArtifact map[string][]*classify.Entry) []*Finding {
	byComponent := make(map[string]map[string][]*classify.Entry)
	for _, id := range ids {
		for _, entry := range byArtifact[id] {
			if entry.Severity < c.opts.MinComponentSeverity || entry.Component == "unknown" {
				continue
			}
			if byComponent[entry.Component] == nil {
				byComponent[entry.Component] = make(map[string][]*classify.Entry)
			}
			byComponent[entry.Component][id] = append(byComponent[entry.Component][id], entry)
		}
	}

	components := make([]string, 0, len(byComponent))
	for component, perArtifact := range byComponent {
		if len(perArtifact) >= 2 {
			components = append(components, component)
		}
	}
	sort.Strings(components)

	var findings []*Finding
	for _, component := range components {
		var entries []*classify.Entry
		artifacts := make([]string, 0, len(byComponent[component]))
		for _, id := range ids {
			if group := byComponent[component][id]; len(group) > 0 {
				entries = append(entries, group...)
				artifacts = append(artifacts, id)
			}
		}
		findings = append(findings, &Finding{
			Kind: KindComponent,
			Description: fmt.Sprintf("component %s reported issues in %d artifacts (%s)",
				component, len(artifacts), joinIDs(artifacts)),
			Entries: entries,
		})
	}
	return findings
}

// signatureFindings pairs entries whose normalized text shares significant
// trigram overlap, catching restated errors across logs.
func (c *Correlator) signatureFindings(left, right []*classify.Entry) []*Finding {
	var findings []*Finding
	for _, a := range left {
		sigA := signatureOf(a)
		if len(sigA) == 0 {
			continue
		}
		for _, b := range right {
			sigB := signatureOf(b)
			if len(sigB) == 0 {
				continue
			}
			score := jaccard(sigA, sigB)
			if score < c.opts.SimilarityThreshold {
				continue
			}
			findings = append(findings, &Finding{
				Kind: KindSignature,
				Description: fmt.Sprintf("issue restated across %s and %s (similarity %.2f)",
					a.ArtifactID, b.ArtifactID, score),
				Entries: []*classify.Entry{a, b},
				Score:   score,
			})
		}
	}
	return findings
}

// sortGroup orders findings by earliest timestamp; findings without any
// timestamp keep their first-seen position after the timestamped ones.
func sortGroup(findings []*Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ti, tj := findings[i].earliest(), findings[j].earliest()
		switch {
		case ti.IsZero():
			return false
		case tj.IsZero():
			return true
		default:
			return ti.Before(tj)
		}
	})
}

func artifactsWithEntries(byArtifact map[string][]*classify.Entry) []string {
	var ids []string
	for id, entries := range byArtifact {
		if len(entries) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += id
	}
	return out
}
