// Package server exposes the extraction service over HTTP. Scrape failures
// never surface as transport errors; 429 is the only non-200 status.
package server

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"propextract/jobs"
	"propextract/models"
	"propextract/storage"
)

// Runner is the synchronous extraction entry point.
type Runner interface {
	Extract(ctx context.Context, url string) *models.ExtractionResponse
	Required() []string
}

type Server struct {
	runner  Runner
	store   *jobs.Store
	worker  *jobs.Worker
	sink    storage.RecordSink
	limiter *rate.Limiter
}

func New(runner Runner, store *jobs.Store, worker *jobs.Worker, sink storage.RecordSink, perMinute, burst int) *Server {
	if perMinute <= 0 {
		perMinute = 12
	}
	if burst <= 0 {
		burst = 3
	}
	return &Server{
		runner:  runner,
		store:   store,
		worker:  worker,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Post("/", s.handleExtract)
	r.Post("/import", s.handleExtract)
	r.Post("/importPropertyFromText", s.handleExtract)

	return r
}

// handleRoot is the health check, doubling as the job status endpoint when
// an id is supplied.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	job, err := s.store.Get(id)
	if err != nil {
		log.Printf("Job lookup %s: %v", id, err)
		writeJSON(w, http.StatusOK, map[string]any{"status": models.JobStatusError, "error": "job lookup failed"})
		return
	}
	if job == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": models.JobStatusError, "error": "unknown job id"})
		return
	}

	body := map[string]any{"status": job.Status}
	if len(job.Result) > 0 {
		body["result"] = json.RawMessage(job.Result)
	}
	if job.Error != "" {
		body["error"] = job.Error
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	res := s.limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		retry := int(math.Ceil(delay.Seconds()))
		if retry < 1 {
			retry = 1
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":             "rate limited",
			"retryAfterSeconds": retry,
		})
		return
	}

	var req models.ExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, models.ErrorResponse("", models.SourceValidationError, "invalid request body", s.runner.Required()))
		return
	}

	url := req.TargetURL()

	if r.URL.Query().Get("async") == "1" {
		s.handleAsync(w, url, req.UserID)
		return
	}

	resp := s.runner.Extract(r.Context(), url)
	if s.sink != nil && (resp.Success || resp.Partial) {
		if err := s.sink.Save(r.Context(), req.UserID, &resp.PropertyRecord); err != nil {
			log.Printf("Save record for %s: %v", url, err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsync(w http.ResponseWriter, url, userID string) {
	if url == "" {
		writeJSON(w, http.StatusOK, models.ErrorResponse("", models.SourceValidationError, "url is required", s.runner.Required()))
		return
	}
	id, err := s.store.Enqueue(url, userID)
	if err != nil {
		log.Printf("Enqueue %s: %v", url, err)
		writeJSON(w, http.StatusOK, models.ErrorResponse(url, models.SourceUnhandled, "failed to queue job", s.runner.Required()))
		return
	}
	if s.worker != nil {
		s.worker.Trigger()
	}
	writeJSON(w, http.StatusOK, map[string]string{"jobId": id})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Write response: %v", err)
	}
}
