package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yildizm/diagd/internal/report"
)

func TestProgressMonotonic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.Status != StatusInitialized {
		t.Errorf("New session status = %s, want %s", sess.Status, StatusInitialized)
	}

	steps := []struct {
		progress   int
		want       int
		wantStatus Status
	}{
		{10, 10, StatusProcessing},
		{50, 50, StatusProcessing},
		{30, 50, StatusProcessing}, // regressions clamp to the high-water mark
		{75, 75, StatusProcessing},
		{200, 100, StatusCompleted}, // values above 100 clamp down and complete
	}

	for _, step := range steps {
		if err := store.UpdateProgress(ctx, sess.ID, step.progress, "working", ""); err != nil {
			t.Fatalf("UpdateProgress(%d) failed: %v", step.progress, err)
		}
		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Progress != step.want {
			t.Errorf("After update to %d: progress = %d, want %d", step.progress, got.Progress, step.want)
		}
		if got.Status != step.wantStatus {
			t.Errorf("After update to %d: status = %s, want %s", step.progress, got.Status, step.wantStatus)
		}
	}
}

func TestFullProgressCompletesSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, _ := store.Create(ctx)
	if err := store.UpdateProgress(ctx, sess.ID, 100, "done", "analysis complete"); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s after 100%% progress", got.Status, StatusCompleted)
	}
	if !got.Status.Terminal() {
		t.Error("Session at 100%% progress must be terminal")
	}

	// The completed session still accepts its result.
	if err := store.StoreResult(ctx, sess.ID, &report.Report{}); err != nil {
		t.Fatalf("StoreResult after completion failed: %v", err)
	}
	got, _ = store.Get(ctx, sess.ID)
	if got.Result == nil {
		t.Error("Result not attached to completed session")
	}
}

func TestUpdateProgressRecordsStageAndMessage(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, _ := store.Create(ctx)
	if err := store.UpdateProgress(ctx, sess.ID, 30, "classifying", "classifying log lines"); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	got, _ := store.Get(ctx, sess.ID)
	if got.Stage != "classifying" {
		t.Errorf("Stage = %q, want %q", got.Stage, "classifying")
	}
	if got.Message != "classifying log lines" {
		t.Errorf("Message = %q, want %q", got.Message, "classifying log lines")
	}

	// An empty message keeps the previous one.
	_ = store.UpdateProgress(ctx, sess.ID, 50, "correlating", "")
	got, _ = store.Get(ctx, sess.ID)
	if got.Stage != "correlating" || got.Message != "classifying log lines" {
		t.Errorf("Stage = %q message = %q after empty-message update", got.Stage, got.Message)
	}
}

func TestStoreResultForcesCompletion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, _ := store.Create(ctx)
	_ = store.UpdateProgress(ctx, sess.ID, 40, "classifying", "")

	if err := store.StoreResult(ctx, sess.ID, &report.Report{}); err != nil {
		t.Fatalf("StoreResult failed: %v", err)
	}

	got, _ := store.Get(ctx, sess.ID)
	if got.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", got.Status, StatusCompleted)
	}
	if got.Progress != 100 {
		t.Errorf("Progress = %d, want 100", got.Progress)
	}
	if got.Result == nil {
		t.Error("Result not attached")
	}

	// Completed sessions ignore later progress updates and errors.
	_ = store.UpdateProgress(ctx, sess.ID, 10, "late", "")
	_ = store.MarkError(ctx, sess.ID, "late failure")
	got, _ = store.Get(ctx, sess.ID)
	if got.Status != StatusCompleted || got.Progress != 100 {
		t.Errorf("Completed session mutated: status=%s progress=%d", got.Status, got.Progress)
	}
}

func TestMarkErrorTerminal(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, _ := store.Create(ctx)
	if err := store.MarkError(ctx, sess.ID, "all artifacts failed to decode"); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}

	got, _ := store.Get(ctx, sess.ID)
	if got.Status != StatusError {
		t.Errorf("Status = %s, want %s", got.Status, StatusError)
	}
	if got.Error == "" {
		t.Error("Error message not recorded")
	}

	// A result arriving after the error state is ignored.
	if err := store.StoreResult(ctx, sess.ID, &report.Report{}); err != nil {
		t.Fatalf("StoreResult after error failed: %v", err)
	}
	got, _ = store.Get(ctx, sess.ID)
	if got.Status != StatusError || got.Result != nil {
		t.Errorf("Errored session accepted a result: status=%s", got.Status)
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Delete, got %v", err)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	store := NewMemoryStore(WithRetention(24*time.Hour), WithClock(clock))
	ctx := context.Background()

	old, _ := store.Create(ctx)
	current = current.Add(25 * time.Hour)
	fresh, _ := store.Create(ctx)

	removed := store.Sweep(ctx)
	if removed != 1 {
		t.Errorf("Sweep removed %d sessions, want 1", removed)
	}
	if _, err := store.Get(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Error("Expired session still retrievable")
	}
	if _, err := store.Get(ctx, fresh.ID); err != nil {
		t.Errorf("Fresh session swept: %v", err)
	}
}

func TestSweepZeroCreationTime(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, _ := store.Create(ctx)
	store.mu.Lock()
	store.sessions[sess.ID].CreatedAt = time.Time{}
	store.mu.Unlock()

	if removed := store.Sweep(ctx); removed != 1 {
		t.Errorf("Session with zero creation time must be swept, removed %d", removed)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess, _ := store.Create(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_ = store.UpdateProgress(ctx, sess.ID, p*5, "working", "")
			_, _ = store.Get(ctx, sess.ID)
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Progress < 0 || got.Progress > 100 {
		t.Errorf("Progress out of range after concurrent updates: %d", got.Progress)
	}
}
