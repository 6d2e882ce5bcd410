package knowledge

import (
	"regexp"
	"sort"

	"github.com/yildizm/diagd/internal/classify"
)

// MainIssueCap bounds the list of highest-severity entries carried in the
// log context.
const MainIssueCap = 5

// errorCategories maps category names to the text patterns that signal
// them, checked in order.
var errorCategories = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"crash", regexp.MustCompile(`(?i)(crash|terminated unexpectedly|fatal|core dump|exception)`)},
	{"resource", regexp.MustCompile(`(?i)(out of memory|low disk|disk full|too many open files|high cpu|cannot allocate)`)},
	{"certificate", regexp.MustCompile(`(?i)(certificate|x509|tls|ssl|handshake)`)},
	{"permission", regexp.MustCompile(`(?i)(permission denied|access denied|forbidden|unauthorized)`)},
	{"timeout", regexp.MustCompile(`(?i)(timeout|timed out|deadline exceeded)`)},
	{"network", regexp.MustCompile(`(?i)(connection (refused|reset|lost)|unreachable|offline|dns|no route)`)},
	{"configuration", regexp.MustCompile(`(?i)(invalid config|misconfigur|missing required|unknown key|policy.*(sync|update).*fail)`)},
	{"installation", regexp.MustCompile(`(?i)(rollback|installation (failed|aborted)|setup error|msi)`)},
	{"update", regexp.MustCompile(`(?i)(pattern update|component update|upgrade).*(fail|error|abort)`)},
}

// BuildContext aggregates classified entries into a LogContext: distinct
// components, mapped error categories, severity mix, and a bounded list of
// main issues (most severe first, earliest timestamp breaking ties).
func BuildContext(entries []*classify.Entry) *LogContext {
	logCtx := &LogContext{TotalEntries: len(entries)}
	if len(entries) == 0 {
		return logCtx
	}

	components := make(map[string]bool)
	categories := make(map[string]bool)
	severities := make(map[classify.Severity]bool)

	for _, entry := range entries {
		if entry.Component != "" && entry.Component != "unknown" {
			components[entry.Component] = true
		}
		severities[entry.Severity] = true
		if entry.Severity == classify.SeverityCritical {
			logCtx.HasCritical = true
		}
		for _, category := range categorize(entry) {
			categories[category] = true
		}
	}

	logCtx.Components = sortedKeys(components)
	logCtx.ErrorCategories = sortedKeys(categories)

	for severity := range severities {
		logCtx.Severities = append(logCtx.Severities, severity)
	}
	sort.Slice(logCtx.Severities, func(i, j int) bool {
		return logCtx.Severities[i] > logCtx.Severities[j]
	})

	logCtx.MainIssues = mainIssues(entries, MainIssueCap)
	return logCtx
}

// categorize maps an entry to error categories via severity and keyword
// heuristics. Info entries never contribute categories.
func categorize(entry *classify.Entry) []string {
	if entry.Severity < classify.SeverityImportant {
		return nil
	}
	var matched []string
	for _, category := range errorCategories {
		if category.pattern.MatchString(entry.Message) {
			matched = append(matched, category.name)
		}
	}
	return matched
}

// mainIssues selects the highest-severity entries, most severe first, ties
// broken by earliest timestamp, then line order for stability.
func mainIssues(entries []*classify.Entry, limit int) []*classify.Entry {
	sorted := make([]*classify.Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Severity != sorted[j].Severity {
			return sorted[i].Severity > sorted[j].Severity
		}
		switch {
		case sorted[i].HasTimestamp && sorted[j].HasTimestamp:
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		case sorted[i].HasTimestamp:
			return true
		default:
			return false
		}
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
