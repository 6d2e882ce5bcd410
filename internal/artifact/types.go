package artifact

import (
	"errors"
	"path/filepath"
	"strings"
)

// Kind identifies what a diagnostic artifact contains. The set is closed;
// anything unrecognized falls back to KindGeneric.
type Kind string

const (
	KindProcessList  Kind = "process-list"
	KindInstallLog   Kind = "installation-log"
	KindAgentLog     Kind = "agent-log"
	KindBusySnapshot Kind = "busy-process-snapshot"
	KindBundle       Kind = "diagnostic-bundle"
	KindGeneric      Kind = "generic-data"
)

// ErrEmptyArtifact is returned when an uploaded artifact has no content.
// It is fatal for that artifact but never for a multi-artifact run.
var ErrEmptyArtifact = errors.New("artifact is empty")

// Artifact is one uploaded diagnostic file after normalization.
// Immutable once created.
type Artifact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Lines    []Line `json:"-"`
}

// Line is a single decoded text line with its 1-based position.
type Line struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// KindFromHint maps an analysis-type hint string from the upload boundary
// to an artifact kind.
func KindFromHint(hint string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(hint))) {
	case KindProcessList, KindInstallLog, KindAgentLog, KindBusySnapshot, KindBundle, KindGeneric:
		return Kind(strings.ToLower(strings.TrimSpace(hint))), true
	}
	return KindGeneric, false
}

// KindFromFilename infers the artifact kind from the filename when the
// upload boundary supplies no usable hint.
func KindFromFilename(name string) Kind {
	base := strings.ToLower(filepath.Base(name))
	ext := filepath.Ext(base)

	switch ext {
	case ".zip", ".tgz", ".tar":
		return KindBundle
	case ".xml":
		if strings.Contains(base, "busy") {
			return KindBusySnapshot
		}
		if strings.Contains(base, "process") || strings.Contains(base, "running") {
			return KindProcessList
		}
	}

	switch {
	case strings.Contains(base, "install") || strings.Contains(base, "setup") || strings.Contains(base, "msi"):
		return KindInstallLog
	case strings.Contains(base, "ds_agent") || strings.Contains(base, "agent") || strings.Contains(base, "amsp"):
		return KindAgentLog
	}

	if ext == ".log" || ext == ".txt" {
		return KindAgentLog
	}
	return KindGeneric
}
