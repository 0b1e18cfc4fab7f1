package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/harborview/reportd/internal/job"
)

// DBTX is the subset of *sql.DB and *sql.Tx the store depends on.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// JobStore is a PostgreSQL-backed job.JobStore.
type JobStore struct {
	db    DBTX
	close func() error
}

// New wraps an open database handle. EnsureSchema should be called once
// before first use.
func New(db *sql.DB) *JobStore {
	return &JobStore{db: db, close: db.Close}
}

// NewWithDBTX wraps an existing handle or transaction, used by tests.
func NewWithDBTX(db DBTX) *JobStore {
	return &JobStore{db: db, close: func() error { return nil }}
}

// EnsureSchema creates the job tables if they do not exist.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS report_jobs (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			format TEXT NOT NULL,
			submitter_id TEXT NOT NULL DEFAULT '',
			priority INT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			retry_count INT NOT NULL DEFAULT 0,
			failure_reason TEXT NOT NULL DEFAULT '',
			output_location TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS report_payloads (
			job_id UUID PRIMARY KEY REFERENCES report_jobs(id) ON DELETE CASCADE,
			payload BYTEA NOT NULL
		);
		CREATE TABLE IF NOT EXISTS report_queue_log (
			job_id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			format TEXT NOT NULL,
			priority INT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			retry_count INT NOT NULL
		);
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure job schema: %w", err)
	}
	return nil
}

// SaveJob upserts the job record.
func (s *JobStore) SaveJob(ctx context.Context, j *job.Job) error {
	const query = `
		INSERT INTO report_jobs
			(id, kind, format, submitter_id, priority, status, created_at,
			 started_at, completed_at, retry_count, failure_reason, output_location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			retry_count = EXCLUDED.retry_count,
			failure_reason = EXCLUDED.failure_reason,
			output_location = EXCLUDED.output_location
	`
	_, err := s.db.ExecContext(ctx, query,
		j.ID, j.Kind, j.Format, j.SubmitterID, j.Priority, j.Status,
		j.CreatedAt, j.StartedAt, j.CompletedAt, j.RetryCount,
		j.FailureReason, j.OutputLocation,
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", j.ID, err)
	}
	return nil
}

// LoadJob retrieves a job record by id.
func (s *JobStore) LoadJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	const query = `
		SELECT id, kind, format, submitter_id, priority, status, created_at,
		       started_at, completed_at, retry_count, failure_reason, output_location
		FROM report_jobs
		WHERE id = $1
	`
	var j job.Job
	var startedAt, completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&j.ID, &j.Kind, &j.Format, &j.SubmitterID, &j.Priority, &j.Status,
		&j.CreatedAt, &startedAt, &completedAt, &j.RetryCount,
		&j.FailureReason, &j.OutputLocation,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, job.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

// DeleteJob removes the job record, its payload and any queue log
// entry.
func (s *JobStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM report_queue_log WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete queue entry %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM report_jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return nil
}

// SavePayload upserts the render payload for a job.
func (s *JobStore) SavePayload(ctx context.Context, id uuid.UUID, payload []byte) error {
	const query = `
		INSERT INTO report_payloads (job_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (job_id) DO UPDATE SET payload = EXCLUDED.payload
	`
	if _, err := s.db.ExecContext(ctx, query, id, payload); err != nil {
		return fmt.Errorf("failed to save payload %s: %w", id, err)
	}
	return nil
}

// LoadPayload retrieves the render payload for a job.
func (s *JobStore) LoadPayload(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM report_payloads WHERE job_id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payload %s: %w", id, job.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payload %s: %w", id, err)
	}
	return payload, nil
}

// AppendQueueLog upserts the pending-queue entry for the job.
func (s *JobStore) AppendQueueLog(ctx context.Context, sum job.Summary) error {
	const query = `
		INSERT INTO report_queue_log
			(job_id, kind, format, priority, status, created_at, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE SET
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			retry_count = EXCLUDED.retry_count
	`
	_, err := s.db.ExecContext(ctx, query,
		sum.ID, sum.Kind, sum.Format, sum.Priority, sum.Status,
		sum.CreatedAt, sum.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("failed to append queue entry %s: %w", sum.ID, err)
	}
	return nil
}

// RemoveQueueLog removes the pending-queue entry for the job.
func (s *JobStore) RemoveQueueLog(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM report_queue_log WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("failed to remove queue entry %s: %w", id, err)
	}
	return nil
}

// ListQueueLog returns all pending-queue entries.
func (s *JobStore) ListQueueLog(ctx context.Context) ([]job.Summary, error) {
	const query = `
		SELECT job_id, kind, format, priority, status, created_at, retry_count
		FROM report_queue_log
		ORDER BY priority DESC, created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue log: %w", err)
	}
	defer rows.Close()

	var out []job.Summary
	for rows.Next() {
		var sum job.Summary
		if err := rows.Scan(&sum.ID, &sum.Kind, &sum.Format, &sum.Priority,
			&sum.Status, &sum.CreatedAt, &sum.RetryCount); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue entries: %w", err)
	}
	return out, nil
}

// Ping verifies the database connection.
func (s *JobStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying handle if this store owns it.
func (s *JobStore) Close() error {
	return s.close()
}
