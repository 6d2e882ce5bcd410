package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yildizm/diagd/internal/artifact"
	"github.com/yildizm/go-logparser"
)

// DefaultSuccessThreshold is the parse success rate below which a result is
// flagged as degraded. Operators can tune it through configuration.
const DefaultSuccessThreshold = 0.95

// componentVocabulary maps component labels to the substrings that identify
// them. The label vocabulary is open; new components are additions here or
// in rule files, not new code branches.
var componentVocabulary = []struct {
	label    string
	keywords []string
}{
	{"AMSP", []string{"amsp", "anti-malware solution platform", "coreserviceshell", "trendx"}},
	{"Anti-Malware", []string{"anti-malware", "antimalware", "malware scan", "real-time scan"}},
	{"Firewall", []string{"firewall", "packet filter", "network filter"}},
	{"DSM", []string{"dsm", "manager node", "deep security manager", "policy server"}},
	{"DSA", []string{"ds_agent", "dsa ", "agent core", "heartbeat"}},
	{"Relay", []string{"relay", "update source", "software distribution"}},
	{"Intrusion Prevention", []string{"intrusion prevention", "dpi rule", "ips"}},
	{"Integrity Monitoring", []string{"integrity monitoring", "baseline rebuild"}},
	{"Log Inspection", []string{"log inspection"}},
	{"Web Reputation", []string{"web reputation", "url filtering"}},
	{"Installer", []string{"installer", "msiexec", "setup wizard", "install log"}},
	{"Notifier", []string{"notifier", "tray application"}},
}

type compiledRule struct {
	rule          *Rule
	regex         *regexp.Regexp
	keywordsLower []string
}

// Classifier scans normalized lines against an ordered rule table. It is
// stateless between calls, so classification is restartable and
// deterministic for identical input.
type Classifier struct {
	rules            []*compiledRule
	successThreshold float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSuccessThreshold overrides the degraded-parse threshold.
func WithSuccessThreshold(threshold float64) Option {
	return func(c *Classifier) {
		c.successThreshold = threshold
	}
}

// NewClassifier compiles the given rule table. Rule order is preserved:
// the first matching rule determines an entry's severity and component.
func NewClassifier(rules []*Rule, opts ...Option) (*Classifier, error) {
	c := &Classifier{
		rules:            make([]*compiledRule, 0, len(rules)),
		successThreshold: DefaultSuccessThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, rule := range rules {
		compiled, err := compileRule(rule)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
		}
		c.rules = append(c.rules, compiled)
	}

	return c, nil
}

// NewDefaultClassifier builds a classifier from the embedded rule table.
func NewDefaultClassifier(opts ...Option) (*Classifier, error) {
	rules, err := LoadDefaultRules()
	if err != nil {
		return nil, err
	}
	return NewClassifier(rules, opts...)
}

func compileRule(rule *Rule) (*compiledRule, error) {
	cr := &compiledRule{rule: rule}

	if rule.Regex != "" {
		regex, err := regexp.Compile("(?i)" + rule.Regex)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		cr.regex = regex
	}

	for _, keyword := range rule.Keywords {
		cr.keywordsLower = append(cr.keywordsLower, strings.ToLower(keyword))
	}

	if cr.regex == nil && len(cr.keywordsLower) == 0 {
		return nil, fmt.Errorf("rule must have either regex or keywords")
	}
	return cr, nil
}

// Classify scans the lines of one artifact. Empty lines count toward the
// total but never classify. Each line produces at most one entry.
func (c *Classifier) Classify(artifactID string, lines []artifact.Line) *Result {
	result := &Result{
		ArtifactID: artifactID,
		Entries:    []*Entry{},
		TotalLines: len(lines),
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line.Text)
		if trimmed == "" {
			result.SkippedLines++
			continue
		}

		lower := strings.ToLower(trimmed)
		matched := c.matchFirst(trimmed, lower)
		if matched == nil {
			if recognizable(trimmed, lower) {
				result.SkippedLines++
			}
			continue
		}

		entry := c.buildEntry(artifactID, line, trimmed, lower, matched)
		result.Entries = append(result.Entries, entry)
		result.ClassifiedLines++
	}

	processed := result.ClassifiedLines + result.SkippedLines
	if result.TotalLines == 0 {
		result.SuccessRate = 1.0
	} else {
		result.SuccessRate = float64(processed) / float64(result.TotalLines)
	}
	result.Degraded = result.TotalLines > 0 && result.SuccessRate < c.successThreshold

	return result
}

// matchFirst returns the first rule matching the line, or nil.
func (c *Classifier) matchFirst(line, lower string) *compiledRule {
	for _, cr := range c.rules {
		if cr.regex != nil && cr.regex.MatchString(line) {
			return cr
		}
		for _, keyword := range cr.keywordsLower {
			if strings.Contains(lower, keyword) {
				return cr
			}
		}
	}
	return nil
}

func (c *Classifier) buildEntry(artifactID string, line artifact.Line, trimmed, lower string, cr *compiledRule) *Entry {
	ts, hasTS := ExtractTimestamp(trimmed)

	component := cr.rule.Component
	if component == "" {
		component = detectComponent(lower)
	}

	return &Entry{
		LogEntry: logparser.LogEntry{
			Timestamp: ts,
			Level:     cr.rule.Severity.String(),
			Message:   trimmed,
		},
		Severity:     cr.rule.Severity,
		Component:    component,
		ArtifactID:   artifactID,
		LineNumber:   line.Number,
		RuleID:       cr.rule.ID,
		HasTimestamp: hasTS,
		Raw:          line.Text,
	}
}

// detectComponent matches the line against the component vocabulary.
// Lines with a severity marker but no known component are tagged "unknown".
func detectComponent(lower string) string {
	for _, entry := range componentVocabulary {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.label
			}
		}
	}
	return "unknown"
}

// recognizable reports whether an unclassified line still has a shape we
// understand, so it counts as intentionally skipped rather than a parse
// failure. A line qualifies when it carries a timestamp or a known
// severity token.
func recognizable(line, lower string) bool {
	if _, ok := ExtractTimestamp(line); ok {
		return true
	}
	for _, token := range []string{"info", "debug", "trace", "notice", "verbose"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
