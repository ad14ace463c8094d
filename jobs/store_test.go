package jobs

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"propextract/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_EnqueueAndGet(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Enqueue("https://example.com/a", "user-1")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job == nil {
		t.Fatalf("job not found")
	}
	if job.Status != models.JobStatusQueued {
		t.Fatalf("status = %s, want queued", job.Status)
	}
	if job.URL != "https://example.com/a" || job.UserID != "user-1" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Get("nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for unknown id, got %+v", job)
	}
}

func TestStore_NextQueuedClaimsOldest(t *testing.T) {
	store := newTestStore(t)

	first, _ := store.Enqueue("https://example.com/1", "")
	time.Sleep(1100 * time.Millisecond) // created_at has second resolution
	store.Enqueue("https://example.com/2", "")

	job, err := store.NextQueued()
	if err != nil {
		t.Fatalf("NextQueued: %v", err)
	}
	if job == nil || job.ID != first {
		t.Fatalf("expected oldest job %s, got %+v", first, job)
	}
	if job.Status != models.JobStatusWorking {
		t.Fatalf("claimed job not marked working: %s", job.Status)
	}

	again, _ := store.Get(first)
	if again.Status != models.JobStatusWorking {
		t.Fatalf("persisted status = %s, want working", again.Status)
	}
}

func TestStore_CompleteAndFail(t *testing.T) {
	store := newTestStore(t)

	okID, _ := store.Enqueue("https://example.com/ok", "")
	badID, _ := store.Enqueue("https://example.com/bad", "")

	if err := store.Complete(okID, []byte(`{"success":true}`)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := store.Fail(badID, "navigation timed out"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	ok, _ := store.Get(okID)
	if ok.Status != models.JobStatusSuccess || len(ok.Result) == 0 {
		t.Fatalf("unexpected completed job %+v", ok)
	}
	bad, _ := store.Get(badID)
	if bad.Status != models.JobStatusError || bad.Error != "navigation timed out" {
		t.Fatalf("unexpected failed job %+v", bad)
	}
}

func TestStore_PurgeFinished(t *testing.T) {
	store := newTestStore(t)

	doneID, _ := store.Enqueue("https://example.com/done", "")
	store.Complete(doneID, []byte(`{}`))
	pendingID, _ := store.Enqueue("https://example.com/pending", "")

	// ttl of -1h makes every terminal row eligible regardless of age.
	n, err := store.PurgeFinished(-time.Hour)
	if err != nil {
		t.Fatalf("PurgeFinished: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows, want 1", n)
	}

	if job, _ := store.Get(doneID); job != nil {
		t.Fatalf("terminal job survived purge")
	}
	if job, _ := store.Get(pendingID); job == nil {
		t.Fatalf("queued job was purged")
	}
}

type countingRunner struct {
	calls int
	resp  *models.ExtractionResponse
}

func (r *countingRunner) Extract(ctx context.Context, url string) *models.ExtractionResponse {
	r.calls++
	return r.resp
}

type recordingSaver struct {
	saved []string
}

func (s *recordingSaver) Save(ctx context.Context, ownerID string, rec *models.PropertyRecord) error {
	s.saved = append(s.saved, rec.URL)
	return nil
}

func TestWorker_ProcessSuccess(t *testing.T) {
	store := newTestStore(t)
	runner := &countingRunner{resp: &models.ExtractionResponse{
		PropertyRecord: models.PropertyRecord{URL: "https://example.com/w", Price: 1},
		Success:        true,
		Missing:        []string{},
	}}
	saver := &recordingSaver{}
	worker := NewWorker(store, runner, saver)

	id, _ := store.Enqueue("https://example.com/w", "user-9")
	worker.drain(context.Background())

	if runner.calls != 1 {
		t.Fatalf("runner called %d times, want 1", runner.calls)
	}
	job, _ := store.Get(id)
	if job.Status != models.JobStatusSuccess {
		t.Fatalf("status = %s, want success", job.Status)
	}
	if len(saver.saved) != 1 || saver.saved[0] != "https://example.com/w" {
		t.Fatalf("record not saved: %v", saver.saved)
	}
}

func TestWorker_HardErrorStillCompletes(t *testing.T) {
	store := newTestStore(t)
	runner := &countingRunner{resp: models.ErrorResponse(
		"https://example.com/x", models.SourceNavigationError, "timed out", models.DefaultRequiredFields)}
	saver := &recordingSaver{}
	worker := NewWorker(store, runner, saver)

	id, _ := store.Enqueue("https://example.com/x", "")
	worker.drain(context.Background())

	job, _ := store.Get(id)
	if job.Status != models.JobStatusSuccess {
		t.Fatalf("status = %s, want success (error travels in the body)", job.Status)
	}
	var resp models.ExtractionResponse
	if err := json.Unmarshal(job.Result, &resp); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if resp.Source != models.SourceNavigationError || resp.Error != "timed out" {
		t.Fatalf("unexpected stored response %+v", resp)
	}
	if len(saver.saved) != 0 {
		t.Fatalf("hard error should not be saved, got %v", saver.saved)
	}
}
