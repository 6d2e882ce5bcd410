package session

import (
	"context"
	"errors"
	"time"

	"github.com/yildizm/diagd/internal/report"
)

// Status is the lifecycle state of an analysis session.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ErrNotFound is returned when a session ID is unknown or already swept.
var ErrNotFound = errors.New("session not found")

// DefaultRetention is how long finished sessions are kept before Sweep
// removes them.
const DefaultRetention = 24 * time.Hour

// Session tracks one analysis from submission to result retrieval.
// Progress is a percentage in [0, 100] and never decreases.
type Session struct {
	ID        string         `json:"id"`
	Status    Status         `json:"status"`
	Progress  int            `json:"progress"`
	Stage     string         `json:"stage,omitempty"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Result    *report.Report `json:"result,omitempty"`
}

// Store persists analysis sessions.
type Store interface {
	// Create registers a new initialized session and returns it.
	Create(ctx context.Context) (*Session, error)

	// Get returns a snapshot of the session.
	Get(ctx context.Context, id string) (*Session, error)

	// UpdateProgress advances progress, stage, and message. Progress
	// values below the current one are clamped; terminal sessions are
	// left untouched. The session moves to processing, or to completed
	// once the effective progress reaches 100.
	UpdateProgress(ctx context.Context, id string, progress int, stage, message string) error

	// StoreResult attaches the finished report and forces the session to
	// completed with 100% progress. Sessions already in the error state
	// are left untouched.
	StoreResult(ctx context.Context, id string, r *report.Report) error

	// MarkError moves the session to the error state with a message.
	// Completed sessions are left untouched.
	MarkError(ctx context.Context, id, message string) error

	// Delete removes the session.
	Delete(ctx context.Context, id string) error

	// Sweep removes sessions older than the retention window and returns
	// how many were removed.
	Sweep(ctx context.Context) int
}
