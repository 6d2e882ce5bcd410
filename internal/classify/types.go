package classify

import (
	"strings"

	"github.com/yildizm/go-logparser"
)

// Severity represents the severity of a classified entry. Values are
// ordered so that comparisons express "at least warning" checks.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityImportant
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityImportant:
		return "IMPORTANT"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity parses a string to a Severity, defaulting to info.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL", "FATAL":
		return SeverityCritical
	case "ERROR", "ERR":
		return SeverityError
	case "WARNING", "WARN":
		return SeverityWarning
	case "IMPORTANT", "NOTICE":
		return SeverityImportant
	default:
		return SeverityInfo
	}
}

// MarshalYAML serializes severities by name so rule files stay readable.
func (s Severity) MarshalYAML() (interface{}, error) {
	return strings.ToLower(s.String()), nil
}

// UnmarshalYAML accepts severity names in rule files.
func (s *Severity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	*s = ParseSeverity(name)
	return nil
}

// Entry is one classified log line. It extends logparser.LogEntry with the
// fields the diagnostic pipeline needs; every entry references exactly one
// normalized line of exactly one artifact.
type Entry struct {
	logparser.LogEntry
	Severity     Severity `json:"severity"`
	Component    string   `json:"component"`
	ArtifactID   string   `json:"artifact_id"`
	LineNumber   int      `json:"line_number"`
	RuleID       string   `json:"rule_id"`
	HasTimestamp bool     `json:"has_timestamp"`
	Raw          string   `json:"-"`
}

// Rule is one ordered classification rule. Rules are data, not code: the
// first matching rule determines an entry's severity, so table order is
// significant and critical signatures must precede generic keywords.
type Rule struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Regex       string   `yaml:"regex,omitempty" json:"regex,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Severity    Severity `yaml:"severity" json:"severity"`
	Component   string   `yaml:"component,omitempty" json:"component,omitempty"`
}

// Result holds the classified entries for one artifact together with the
// parse-quality metadata reported to the final diagnosis.
type Result struct {
	ArtifactID      string   `json:"artifact_id"`
	Entries         []*Entry `json:"entries"`
	TotalLines      int      `json:"total_lines"`
	ClassifiedLines int      `json:"classified_lines"`
	SkippedLines    int      `json:"skipped_lines"`
	SuccessRate     float64  `json:"success_rate"`
	Degraded        bool     `json:"degraded"`
}

// SeverityCounts returns the number of entries per severity.
func (r *Result) SeverityCounts() map[string]int {
	counts := make(map[string]int)
	for _, entry := range r.Entries {
		counts[entry.Severity.String()]++
	}
	return counts
}
