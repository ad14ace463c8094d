package jobs

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"propextract/models"
)

// Runner is the part of the extraction service the worker drives.
type Runner interface {
	Extract(ctx context.Context, url string) *models.ExtractionResponse
}

// Saver receives completed records. May be a no-op.
type Saver interface {
	Save(ctx context.Context, ownerID string, rec *models.PropertyRecord) error
}

// Worker drains queued jobs one at a time. Browser sessions are heavy, so
// concurrency stays at one; the queue absorbs bursts instead.
type Worker struct {
	store   *Store
	runner  Runner
	saver   Saver
	trigger chan struct{}
	tick    time.Duration
}

func NewWorker(store *Store, runner Runner, saver Saver) *Worker {
	return &Worker{
		store:   store,
		runner:  runner,
		saver:   saver,
		trigger: make(chan struct{}, 1),
		tick:    5 * time.Second,
	}
}

// Trigger nudges the worker without waiting for the next tick. Never blocks.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run processes jobs until ctx is cancelled. A periodic tick backstops
// triggers lost across restarts (queued rows already in the database).
func (w *Worker) Run(ctx context.Context) {
	log.Printf("Job worker started (tick %s)", w.tick)
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Job worker stopping: %v", ctx.Err())
			return
		case <-w.trigger:
		case <-ticker.C:
		}
		w.drain(ctx)
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := w.store.NextQueued()
		if err != nil {
			log.Printf("Failed to claim job: %v", err)
			return
		}
		if job == nil {
			return
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *models.ExtractJob) {
	log.Printf("Job %s: extracting %s", job.ID, job.URL)

	resp := w.runner.Extract(ctx, job.URL)

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Job %s: marshal result: %v", job.ID, err)
		if ferr := w.store.Fail(job.ID, err.Error()); ferr != nil {
			log.Printf("Job %s: mark failed: %v", job.ID, ferr)
		}
		return
	}

	// Hard extraction errors still complete the job; the response body carries
	// the stage tag, same as the synchronous path.
	if err := w.store.Complete(job.ID, payload); err != nil {
		log.Printf("Job %s: mark complete: %v", job.ID, err)
		return
	}

	if w.saver != nil && (resp.Success || resp.Partial) {
		if err := w.saver.Save(ctx, job.UserID, &resp.PropertyRecord); err != nil {
			log.Printf("Job %s: save record: %v", job.ID, err)
		}
	}

	log.Printf("Job %s: done (success=%v partial=%v)", job.ID, resp.Success, resp.Partial)
}

// StartJanitor schedules periodic cleanup of terminal jobs older than ttl.
// The returned cron is already running; stop it during shutdown.
func StartJanitor(store *Store, schedule string, ttl time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := store.PurgeFinished(ttl)
		if err != nil {
			log.Printf("Job janitor: %v", err)
			return
		}
		if n > 0 {
			log.Printf("Job janitor: purged %d finished jobs", n)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
