package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"propextract/jobs"
	"propextract/models"
)

type stubRunner struct {
	calls int
	resp  *models.ExtractionResponse
}

func (r *stubRunner) Extract(ctx context.Context, url string) *models.ExtractionResponse {
	r.calls++
	if url == "" {
		return models.ErrorResponse(url, models.SourceValidationError, "url is required", models.DefaultRequiredFields)
	}
	if r.resp != nil {
		return r.resp
	}
	return &models.ExtractionResponse{
		PropertyRecord: models.PropertyRecord{URL: url, Price: 1000, Source: "structured-data"},
		Partial:        true,
		Missing:        []string{"description"},
	}
}

func (r *stubRunner) Required() []string { return models.DefaultRequiredFields }

func newTestServer(t *testing.T, runner Runner) (*Server, *jobs.Store) {
	t.Helper()
	store, err := jobs.NewStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(runner, store, nil, nil, 6000, 100), store
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !body["ok"] {
		t.Fatalf("expected ok=true, got %s", rec.Body.String())
	}
}

func TestExtract_SyncAlways200(t *testing.T) {
	runner := &stubRunner{}
	srv, _ := newTestServer(t, runner)

	for _, path := range []string{"/", "/import", "/importPropertyFromText"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", path, strings.NewReader(`{"text":"https://example.com/l1","userId":"u1"}`))
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, rec.Code)
		}
		var resp models.ExtractionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if !resp.Partial || resp.Price != 1000 {
			t.Fatalf("%s: unexpected response %+v", path, resp)
		}
	}
	if runner.calls != 3 {
		t.Fatalf("runner called %d times, want 3", runner.calls)
	}
}

func TestExtract_BadBodyStill200(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader("{not json")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp models.ExtractionResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Source != models.SourceValidationError {
		t.Fatalf("source = %s, want validation-error", resp.Source)
	}
}

func TestExtract_RateLimited429(t *testing.T) {
	store, err := jobs.NewStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	srv := New(&stubRunner{}, store, nil, nil, 1, 1)

	body := `{"text":"https://example.com/x"}`
	first := httptest.NewRecorder()
	srv.Router().ServeHTTP(first, httptest.NewRequest("POST", "/", strings.NewReader(body)))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	srv.Router().ServeHTTP(second, httptest.NewRequest("POST", "/", strings.NewReader(body)))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	var limited struct {
		RetryAfterSeconds int `json:"retryAfterSeconds"`
	}
	json.Unmarshal(second.Body.Bytes(), &limited)
	if limited.RetryAfterSeconds < 1 {
		t.Fatalf("retryAfterSeconds = %d, want >= 1", limited.RetryAfterSeconds)
	}
}

func TestExtract_AsyncReturnsJobID(t *testing.T) {
	srv, store := newTestServer(t, &stubRunner{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/?async=1", strings.NewReader(`{"text":"https://example.com/async"}`))
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.JobID == "" {
		t.Fatalf("expected jobId, got %s", rec.Body.String())
	}

	job, err := store.Get(body.JobID)
	if err != nil || job == nil {
		t.Fatalf("queued job not found: %v", err)
	}
	if job.Status != models.JobStatusQueued {
		t.Fatalf("status = %s, want queued", job.Status)
	}
}

func TestJobStatusEndpoint(t *testing.T) {
	srv, store := newTestServer(t, &stubRunner{})

	id, _ := store.Enqueue("https://example.com/j", "")
	store.Complete(id, []byte(`{"success":true,"price":500}`))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/?id="+id, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status models.JobStatus `json:"status"`
		Result struct {
			Success bool `json:"success"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != models.JobStatusSuccess || !body.Result.Success {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestJobStatusUnknownID(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/?id=missing", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status models.JobStatus `json:"status"`
		Error  string           `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != models.JobStatusError || body.Error == "" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
