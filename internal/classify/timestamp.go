package classify

import (
	"regexp"
	"time"
)

// timestampGrammars are tried in order; the first successful parse wins.
// Absence of a parseable timestamp is not an error.
var timestampGrammars = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}\.\d{6}`), "2006-01-02 15:04:05.000000"},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z`), time.RFC3339},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?[+-]\d{2}:\d{2}`), time.RFC3339},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}`), "2006-01-02 15:04:05.000"},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`), "2006-01-02 15:04:05"},
	{regexp.MustCompile(`\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}`), "2006/01/02 15:04:05"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}`), "01/02/2006 15:04:05"},
	{regexp.MustCompile(`[A-Z][a-z]{2} +\d{1,2} \d{2}:\d{2}:\d{2} \d{4}`), "Jan _2 15:04:05 2006"},
}

// normalizeT converts the T-separated variants so one layout covers both.
var tSeparator = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T(\d{2}:\d{2}:\d{2}\.\d{6})$`)

// ExtractTimestamp scans a line for the first recognizable timestamp.
func ExtractTimestamp(line string) (time.Time, bool) {
	for _, grammar := range timestampGrammars {
		match := grammar.re.FindString(line)
		if match == "" {
			continue
		}
		candidate := tSeparator.ReplaceAllString(match, "$1 $2")
		if ts, err := time.Parse(grammar.layout, candidate); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
