package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/diagd/internal/classify"
)

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = true
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(r *Report) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b)
	f.writeProcessing(&b, &r.Processing)
	f.writeIssues(&b, &r.Issues)
	f.writeHealth(&b, &r.Health)
	f.writeCorrelations(&b, &r.Correlations)
	f.writeKnowledge(&b, &r.Knowledge)
	f.writeAIAnalysis(&b, &r.AIAnalysis)

	return []byte(b.String()), nil
}

func (f *terminalFormatter) writeHeader(b *strings.Builder) {
	header := "Diagnostic Analysis Summary"
	headerLen := len(header)

	b.WriteString("╔" + strings.Repeat("═", headerLen+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", headerLen+2) + "╝\n\n")
}

func (f *terminalFormatter) sectionNote(b *strings.Builder, meta SectionMeta) bool {
	switch meta.Status {
	case StatusAbsent:
		reason := meta.Reason
		if reason == "" {
			reason = "no data available"
		}
		fmt.Fprintf(b, "   (not available: %s)\n\n", reason)
		return false
	case StatusDegraded:
		fmt.Fprintf(b, "   (partial: %s)\n", meta.Reason)
	}
	return true
}

func (f *terminalFormatter) writeProcessing(b *strings.Builder, section *ProcessingSection) {
	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " Processing\n")
	if !f.sectionNote(b, section.SectionMeta) {
		return
	}

	items := make([]termfmt.TreeItem, 0, len(section.Artifacts))
	for i, stats := range section.Artifacts {
		value := fmt.Sprintf("%d lines, %.1f%% classified", stats.TotalLines, stats.SuccessRate*100)
		if stats.Degraded {
			value += " (degraded)"
		}
		if stats.Error != "" {
			value = "failed: " + stats.Error
		}
		items = append(items, termfmt.TreeItem{
			Label: fmt.Sprintf("%s [%s]", stats.Name, stats.Kind),
			Value: value,
			Last:  i == len(section.Artifacts)-1,
		})
	}

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}

func (f *terminalFormatter) writeIssues(b *strings.Builder, section *IssuesSection) {
	symbol := termfmt.GetEmoji("insights", f.opts)
	b.WriteString(symbol + " Top Issues\n")
	if !f.sectionNote(b, section.SectionMeta) {
		return
	}

	items := make([]termfmt.TreeItem, 0, len(section.MainIssues))
	for i, issue := range section.MainIssues {
		value := ""
		if issue.HasTimestamp {
			value = issue.Timestamp.Format(time.RFC3339)
		}
		items = append(items, termfmt.TreeItem{
			Label: fmt.Sprintf("%s [%s] %s: %s", severityEmoji(issue.Severity, f.opts), issue.Severity, issue.Component, issue.Message),
			Value: value,
			Last:  i == len(section.MainIssues)-1,
		})
	}

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}

func (f *terminalFormatter) writeHealth(b *strings.Builder, section *HealthSection) {
	symbol := termfmt.GetEmoji("help", f.opts)
	b.WriteString(symbol + " Component Health\n")
	if !f.sectionNote(b, section.SectionMeta) {
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

	items := make([]termfmt.TreeItem, 0, len(components))
	for i, name := range components {
		health := section.Components[name]
		bar := termfmt.CreateConfidenceBar(health, f.opts)
		items = append(items, termfmt.TreeItem{
			Label: name,
			Value: fmt.Sprintf("%s %.0f%%", bar, health*100),
			Last:  i == len(components)-1,
		})
	}

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}

func (f *terminalFormatter) writeCorrelations(b *strings.Builder, section *CorrelationSection) {
	symbol := termfmt.GetEmoji("pattern", f.opts)
	b.WriteString(symbol + " Correlations\n")
	if !f.sectionNote(b, section.SectionMeta) {
		return
	}
	if len(section.Findings) == 0 {
		b.WriteString("   none found\n\n")
		return
	}

	for i, finding := range section.Findings {
		if i == len(section.Findings)-1 {
			fmt.Fprintf(b, "└─ [%s] %s\n", finding.Kind, finding.Description)
		} else {
			fmt.Fprintf(b, "├─ [%s] %s\n", finding.Kind, finding.Description)
		}
	}
	b.WriteString("\n")
}

func (f *terminalFormatter) writeKnowledge(b *strings.Builder, section *KnowledgeSection) {
	symbol := termfmt.GetEmoji("summary", f.opts)
	b.WriteString(symbol + " Reference Documentation\n")
	if !f.sectionNote(b, section.SectionMeta) {
		return
	}
	if len(section.Items) == 0 {
		b.WriteString("   none found\n\n")
		return
	}

	items := make([]termfmt.TreeItem, 0, len(section.Items))
	for i, item := range section.Items {
		items = append(items, termfmt.TreeItem{
			Label: fmt.Sprintf("%s / %s", item.Title, item.Section),
			Value: fmt.Sprintf("relevance %.2f", item.Score),
			Last:  i == len(section.Items)-1,
		})
	}

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}

func (f *terminalFormatter) writeAIAnalysis(b *strings.Builder, section *AISection) {
	aiSymbol := termfmt.GetEmoji("ai", f.opts)
	if aiSymbol == "" {
		aiSymbol = "🤖"
	}
	fmt.Fprintf(b, "%s AI Analysis\n", aiSymbol)
	b.WriteString(strings.Repeat("─", 50) + "\n")
	if !f.sectionNote(b, section.SectionMeta) {
		return
	}
	b.WriteString("\n")

	if section.Summary != "" {
		b.WriteString(section.Summary + "\n")
		fmt.Fprintf(b, "Health score: %d/100\n\n", section.HealthScore)
	} else if section.Raw != "" {
		b.WriteString(section.Raw + "\n\n")
	}

	if len(section.Recommendations) > 0 {
		symbol := termfmt.GetEmoji("recommendations", f.opts)
		b.WriteString(symbol + " Recommendations\n")
		for _, rec := range section.Recommendations {
			fmt.Fprintf(b, "• %s (%s)\n", rec.Title, rec.Priority)
		}
	}
}

// severityEmoji returns emoji for severity levels using go-termfmt
func severityEmoji(severity classify.Severity, opts *termfmt.TerminalOptions) string {
	switch severity {
	case classify.SeverityCritical, classify.SeverityError:
		return termfmt.GetEmoji("error", opts)
	case classify.SeverityWarning:
		return termfmt.GetEmoji("warning", opts)
	case classify.SeverityInfo:
		return termfmt.GetEmoji("info", opts)
	default:
		return termfmt.GetEmoji("insight", opts)
	}
}
