package correlate

import (
	"strings"

	"github.com/yildizm/diagd/internal/classify"
)

// signatureOf reduces an entry's raw text to a set of token trigrams after
// lower-casing and whitespace collapsing. Timestamps and line positions do
// not survive tokenization thresholds, so restated errors line up even when
// prefixed differently.
func signatureOf(entry *classify.Entry) map[string]struct{} {
	tokens := tokenize(entry.Message)
	if len(tokens) == 0 {
		return nil
	}

	grams := make(map[string]struct{})
	if len(tokens) < 3 {
		for _, token := range tokens {
			grams[token] = struct{}{}
		}
		return grams
	}

	for i := 0; i+3 <= len(tokens); i++ {
		grams[strings.Join(tokens[i:i+3], " ")] = struct{}{}
	}
	return grams
}

// tokenize lower-cases, collapses whitespace, and drops pure-number tokens
// so timestamps do not dominate the signature.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.Trim(field, ".,;:()[]{}\"'")
		if trimmed == "" || isNumeric(trimmed) {
			continue
		}
		tokens = append(tokens, trimmed)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '-' && r != ':' && r != '/' && r != '.' {
			return false
		}
	}
	return true
}

// jaccard computes set overlap in [0,1].
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	shared := 0
	for gram := range small {
		if _, ok := large[gram]; ok {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
