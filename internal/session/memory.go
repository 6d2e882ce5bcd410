package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yildizm/diagd/internal/report"
)

// MemoryStore is an in-memory session store safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	retention time.Duration
	now       func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithRetention overrides the retention window used by Sweep.
func WithRetention(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates a memory store with default retention.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions:  make(map[string]*Session),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Status:    StatusInitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return snapshot(sess), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(sess), nil
}

func (s *MemoryStore) UpdateProgress(ctx context.Context, id string, progress int, stage, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if sess.Status.Terminal() {
		return nil
	}

	if progress > 100 {
		progress = 100
	}
	if progress > sess.Progress {
		sess.Progress = progress
	}
	if stage != "" {
		sess.Stage = stage
	}
	if message != "" {
		sess.Message = message
	}
	if sess.Progress >= 100 {
		sess.Status = StatusCompleted
	} else {
		sess.Status = StatusProcessing
	}
	sess.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) StoreResult(ctx context.Context, id string, r *report.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if sess.Status == StatusError {
		return nil
	}

	sess.Result = r
	sess.Status = StatusCompleted
	sess.Progress = 100
	sess.Stage = "done"
	sess.Message = "analysis complete"
	sess.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) MarkError(ctx context.Context, id, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if sess.Status == StatusCompleted {
		return nil
	}

	sess.Status = StatusError
	sess.Error = message
	sess.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		// Sessions with an unusable creation time count as expired.
		if sess.CreatedAt.IsZero() || sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func snapshot(sess *Session) *Session {
	copied := *sess
	return &copied
}
