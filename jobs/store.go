// Package jobs backs the asynchronous extraction model: queued work rows in
// sqlite, a single-consumer worker, and a cron janitor for finished jobs.
package jobs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"propextract/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS extract_jobs (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		user_id TEXT,
		status TEXT NOT NULL DEFAULT 'queued',
		result JSON,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_extract_jobs_status ON extract_jobs(status, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Enqueue records a new queued job and returns its id.
func (s *Store) Enqueue(url, userID string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO extract_jobs (id, url, user_id, status) VALUES (?, ?, ?, ?)`,
		id, url, userID, models.JobStatusQueued,
	)
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// Get returns the job or nil when the id is unknown.
func (s *Store) Get(id string) (*models.ExtractJob, error) {
	row := s.db.QueryRow(
		`SELECT id, url, user_id, status, result, error, created_at, updated_at
		 FROM extract_jobs WHERE id = ?`, id)

	var job models.ExtractJob
	var result sql.NullString
	var jobErr sql.NullString
	err := row.Scan(&job.ID, &job.URL, &job.UserID, &job.Status, &result, &jobErr, &job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if result.Valid {
		job.Result = json.RawMessage(result.String)
	}
	if jobErr.Valid {
		job.Error = jobErr.String
	}
	return &job, nil
}

// NextQueued claims the oldest queued job, marking it working. Returns nil
// when the queue is empty. Single consumer, so no row locking games.
func (s *Store) NextQueued() (*models.ExtractJob, error) {
	row := s.db.QueryRow(
		`SELECT id, url, user_id, created_at, updated_at
		 FROM extract_jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
		models.JobStatusQueued)

	var job models.ExtractJob
	err := row.Scan(&job.ID, &job.URL, &job.UserID, &job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(
		`UPDATE extract_jobs SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.JobStatusWorking, job.ID,
	); err != nil {
		return nil, err
	}
	job.Status = models.JobStatusWorking
	return &job, nil
}

// Complete stores the serialized extraction response and marks success.
func (s *Store) Complete(id string, result []byte) error {
	_, err := s.db.Exec(
		`UPDATE extract_jobs SET status = ?, result = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.JobStatusSuccess, string(result), id,
	)
	return err
}

// Fail marks the job errored with a message.
func (s *Store) Fail(id, message string) error {
	_, err := s.db.Exec(
		`UPDATE extract_jobs SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.JobStatusError, message, id,
	)
	return err
}

// PurgeFinished removes terminal jobs older than ttl. Returns rows deleted.
func (s *Store) PurgeFinished(ttl time.Duration) (int64, error) {
	// CURRENT_TIMESTAMP stores plain UTC strings; compare in the same format.
	cutoff := time.Now().Add(-ttl).UTC().Format("2006-01-02 15:04:05")
	res, err := s.db.Exec(
		`DELETE FROM extract_jobs WHERE status IN (?, ?) AND updated_at < ?`,
		models.JobStatusSuccess, models.JobStatusError, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
