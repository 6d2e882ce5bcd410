package artifact

import (
	"strings"
	"testing"
	"unicode/utf16"
)

func encodeUTF16LE(s string, withBOM bool) []byte {
	units := utf16.Encode([]rune(s))
	var buf []byte
	if withBOM {
		buf = append(buf, 0xFF, 0xFE)
	}
	for _, u := range units {
		buf = append(buf, byte(u), byte(u>>8))
	}
	return buf
}

func TestNormalizeUTF8(t *testing.T) {
	lines, encoding, err := Normalize([]byte("first line\nsecond line\nthird line"))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if encoding != EncodingUTF8 {
		t.Errorf("Expected utf-8, got %s", encoding)
	}
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if lines[0].Number != 1 || lines[2].Number != 3 {
		t.Errorf("Line numbers not 1-based sequential: %+v", lines)
	}
	if lines[1].Text != "second line" {
		t.Errorf("Expected 'second line', got %q", lines[1].Text)
	}
}

func TestNormalizeUTF16(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		encoding string
	}{
		{"utf-16le with BOM", encodeUTF16LE("agent started\nagent stopped", true), EncodingUTF16LE},
		{"utf-16le without BOM", encodeUTF16LE("agent started\nagent stopped", false), EncodingUTF16LE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, encoding, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if encoding != tt.encoding {
				t.Errorf("Expected %s, got %s", tt.encoding, encoding)
			}
			if len(lines) != 2 {
				t.Fatalf("Expected 2 lines, got %d", len(lines))
			}
			if lines[0].Text != "agent started" {
				t.Errorf("Unexpected first line: %q", lines[0].Text)
			}
		})
	}
}

func TestNormalizeEmptyArtifact(t *testing.T) {
	if _, _, err := Normalize(nil); err != ErrEmptyArtifact {
		t.Errorf("Expected ErrEmptyArtifact, got %v", err)
	}
}

func TestNormalizeInvalidBytesFallsBack(t *testing.T) {
	raw := []byte{'o', 'k', ' ', 0xFF, 0xFE, 0xFD, 0xFC, 0xFB, '\n', 'x'}
	lines, encoding, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Fallback should never fail: %v", err)
	}
	if encoding != EncodingFallback {
		t.Errorf("Expected fallback encoding, got %s", encoding)
	}
	if len(lines) != 2 {
		t.Errorf("Expected 2 lines, got %d", len(lines))
	}
}

func TestSplitLinesRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		separator string
		count     int
	}{
		{"unix", "a\nb\nc", "\n", 3},
		{"windows", "a\r\nb\r\nc", "\r\n", 3},
		{"trailing newline", "a\nb\n", "\n", 3},
		{"empty lines preserved", "a\n\nb", "\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := SplitLines(tt.text)
			if len(lines) != tt.count {
				t.Fatalf("Expected %d lines, got %d: %+v", tt.count, len(lines), lines)
			}

			parts := make([]string, len(lines))
			for i, line := range lines {
				parts[i] = line.Text
			}
			if rejoined := strings.Join(parts, tt.separator); rejoined != tt.text {
				t.Errorf("Round trip mismatch: %q != %q", rejoined, tt.text)
			}
		})
	}
}

func TestKindFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     Kind
	}{
		{"RunningProcesses.xml", KindProcessList},
		{"BusyProcess.xml", KindBusySnapshot},
		{"ds_agent.log", KindAgentLog},
		{"AMSPInstallLog.txt", KindInstallLog},
		{"diagnostic.zip", KindBundle},
		{"data.bin", KindGeneric},
	}

	for _, tt := range tests {
		if got := KindFromFilename(tt.filename); got != tt.want {
			t.Errorf("KindFromFilename(%q) = %s, want %s", tt.filename, got, tt.want)
		}
	}
}

func TestKindFromHint(t *testing.T) {
	if kind, ok := KindFromHint("agent-log"); !ok || kind != KindAgentLog {
		t.Errorf("Expected agent-log hint to resolve, got %s ok=%v", kind, ok)
	}
	if _, ok := KindFromHint("mystery"); ok {
		t.Error("Unknown hint should not resolve")
	}
}
