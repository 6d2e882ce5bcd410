package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(r *Report) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# Diagnostic Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	if r.SessionID != "" {
		fmt.Fprintf(&b, "Session: `%s`\n\n", r.SessionID)
	}

	f.writeProcessingTable(&b, &r.Processing)
	f.writeIssues(&b, &r.Issues)
	f.writeHealth(&b, &r.Health)
	f.writeCorrelations(&b, &r.Correlations)
	f.writeKnowledge(&b, &r.Knowledge)
	f.writeAIAnalysis(&b, &r.AIAnalysis)

	return []byte(b.String()), nil
}

func (f *markdownFormatter) writeSectionNote(b *strings.Builder, meta SectionMeta) bool {
	switch meta.Status {
	case StatusAbsent:
		reason := meta.Reason
		if reason == "" {
			reason = "no data available"
		}
		fmt.Fprintf(b, "_Not available: %s_\n\n", reason)
		return false
	case StatusDegraded:
		fmt.Fprintf(b, "_Partial results: %s_\n\n", meta.Reason)
	}
	return true
}

func (f *markdownFormatter) writeProcessingTable(b *strings.Builder, section *ProcessingSection) {
	b.WriteString("## Processing\n\n")
	if !f.writeSectionNote(b, section.SectionMeta) {
		return
	}

	b.WriteString("| Artifact | Kind | Lines | Classified | Success Rate |\n")
	b.WriteString("|----------|------|-------|------------|--------------|\n")
	for _, stats := range section.Artifacts {
		rate := fmt.Sprintf("%.1f%%", stats.SuccessRate*100)
		if stats.Degraded {
			rate += " (degraded)"
		}
		if stats.Error != "" {
			rate = "failed: " + stats.Error
		}
		fmt.Fprintf(b, "| %s | %s | %d | %d | %s |\n",
			stats.Name, stats.Kind, stats.TotalLines, stats.ClassifiedLines, rate)
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeIssues(b *strings.Builder, section *IssuesSection) {
	b.WriteString("## Issues\n\n")
	if !f.writeSectionNote(b, section.SectionMeta) {
		return
	}

	if len(section.SeverityCounts) > 0 {
		keys := make([]string, 0, len(section.SeverityCounts))
		for k := range section.SeverityCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %d", k, section.SeverityCounts[k]))
		}
		fmt.Fprintf(b, "%d entries classified (%s)\n\n", section.TotalEntries, strings.Join(parts, ", "))
	}

	for i, issue := range section.MainIssues {
		fmt.Fprintf(b, "%d. **[%s] %s**: %s", i+1, issue.Severity, issue.Component, issue.Message)
		if issue.HasTimestamp {
			fmt.Fprintf(b, " _(at %s)_", issue.Timestamp.Format(time.RFC3339))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeHealth(b *strings.Builder, section *HealthSection) {
	b.WriteString("## Component Health\n\n")
	if !f.writeSectionNote(b, section.SectionMeta) {
		return
	}

	components := make([]string, 0, len(section.Components))
	for name := range section.Components {
		components = append(components, name)
	}
	sort.Slice(components, func(i, j int) bool {
		hi, hj := section.Components[components[i]], section.Components[components[j]]
		if hi != hj {
			return hi < hj
		}
		return components[i] < components[j]
	})

	b.WriteString("| Component | Health |\n")
	b.WriteString("|-----------|--------|\n")
	for _, name := range components {
		fmt.Fprintf(b, "| %s | %.2f |\n", name, section.Components[name])
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeCorrelations(b *strings.Builder, section *CorrelationSection) {
	b.WriteString("## Correlations\n\n")
	if !f.writeSectionNote(b, section.SectionMeta) {
		return
	}
	if len(section.Findings) == 0 {
		b.WriteString("No cross-artifact correlations found.\n\n")
		return
	}

	for _, finding := range section.Findings {
		fmt.Fprintf(b, "- **%s**: %s\n", finding.Kind, finding.Description)
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeKnowledge(b *strings.Builder, section *KnowledgeSection) {
	b.WriteString("## Reference Documentation\n\n")
	if !f.writeSectionNote(b, section.SectionMeta) {
		return
	}
	if len(section.Items) == 0 {
		b.WriteString("No relevant documentation found.\n\n")
		return
	}

	for _, item := range section.Items {
		fmt.Fprintf(b, "### %s — %s\n\n", item.Title, item.Section)
		fmt.Fprintf(b, "> %s\n\n", item.Excerpt)
		fmt.Fprintf(b, "_Source: %s (relevance %.2f)_\n\n", item.Source, item.Score)
	}
}

func (f *markdownFormatter) writeAIAnalysis(b *strings.Builder, section *AISection) {
	b.WriteString("## AI Analysis\n\n")
	if !f.writeSectionNote(b, section.SectionMeta) {
		return
	}

	if section.Summary != "" {
		fmt.Fprintf(b, "%s\n\n", section.Summary)
		fmt.Fprintf(b, "**Health score**: %d/100\n\n", section.HealthScore)
	} else if section.Raw != "" {
		b.WriteString(section.Raw + "\n\n")
	}

	for _, issue := range section.Issues {
		fmt.Fprintf(b, "### %s (%s, %s)\n\n%s\n\n", issue.Title, issue.Component, issue.Severity, issue.Explanation)
	}

	if len(section.Recommendations) > 0 {
		b.WriteString("### Recommendations\n\n")
		for i, rec := range section.Recommendations {
			fmt.Fprintf(b, "%d. **%s** (%s)\n", i+1, rec.Title, rec.Priority)
			for _, action := range rec.ActionItems {
				fmt.Fprintf(b, "   - %s\n", action)
			}
		}
		b.WriteString("\n")
	}
}
