package artifact

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding labels reported in normalization metadata.
const (
	EncodingUTF8     = "utf-8"
	EncodingUTF16LE  = "utf-16le"
	EncodingUTF16BE  = "utf-16be"
	EncodingFallback = "utf-8-replaced"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Normalize decodes raw artifact bytes into text lines. Detection order:
// byte-order markers for wide-character encodings, then valid UTF-8, then a
// permissive fallback that replaces undecodable bytes. The only failure mode
// is a zero-length input.
func Normalize(raw []byte) ([]Line, string, error) {
	if len(raw) == 0 {
		return nil, "", ErrEmptyArtifact
	}

	text, encoding, err := decode(raw)
	if err != nil {
		return nil, "", err
	}

	return SplitLines(text), encoding, nil
}

// NormalizeArtifact builds an immutable Artifact from one uploaded file.
func NormalizeArtifact(id, name string, kind Kind, raw []byte) (*Artifact, error) {
	lines, encoding, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", name, err)
	}

	return &Artifact{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Size:     int64(len(raw)),
		Encoding: encoding,
		Lines:    lines,
	}, nil
}

func decode(raw []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return string(raw[len(bomUTF8):]), EncodingUTF8, nil
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeUTF16(raw, unicode.LittleEndian, EncodingUTF16LE)
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeUTF16(raw, unicode.BigEndian, EncodingUTF16BE)
	}

	// Wide-character files written without a BOM pass the UTF-8 validity
	// check for ASCII content, so the NUL heuristic has to run first.
	if looksLikeUTF16LE(raw) {
		return decodeUTF16(raw, unicode.LittleEndian, EncodingUTF16LE)
	}

	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8, nil
	}

	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), EncodingFallback, nil
}

func decodeUTF16(raw []byte, endianness unicode.Endianness, label string) (string, string, error) {
	decoder := unicode.UTF16(endianness, unicode.UseBOM).NewDecoder()
	decoded, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		// Encoding ambiguity is resolved by fallback, never by raising.
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), EncodingFallback, nil
	}
	return string(decoded), label, nil
}

// looksLikeUTF16LE reports whether at least a third of the odd-position
// bytes in the sample are NUL, which is typical for Latin text in UTF-16LE.
func looksLikeUTF16LE(raw []byte) bool {
	sample := raw
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	if len(sample) < 4 {
		return false
	}

	nulls := 0
	checked := 0
	for i := 1; i < len(sample); i += 2 {
		checked++
		if sample[i] == 0 {
			nulls++
		}
	}
	return checked > 0 && nulls*3 >= checked
}

// SplitLines splits decoded text on universal newline boundaries (\r\n, \n,
// or bare \r) and preserves empty lines. Line numbers are 1-based.
func SplitLines(text string) []Line {
	if text == "" {
		return []Line{{Number: 1, Text: ""}}
	}

	var lines []Line
	start := 0
	number := 1

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, Line{Number: number, Text: text[start:i]})
			number++
			start = i + 1
		case '\r':
			lines = append(lines, Line{Number: number, Text: text[start:i]})
			number++
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}

	// The final segment is kept even when empty so that re-joining the
	// lines with the separator reproduces the decoded text exactly.
	lines = append(lines, Line{Number: number, Text: text[start:]})

	return lines
}
