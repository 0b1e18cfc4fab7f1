package job

import (
	"context"

	"github.com/google/uuid"
)

// JobStore defines the persistence interface used to mirror job state
// and the pending-queue log to a durable store, enabling restart
// recovery.
//
// Implementations must keep writes for the same job ordered; writes for
// different jobs may interleave freely. Payloads are stored under their
// own key because they may be large and are never needed for status
// lookups. AppendQueueLog is keyed by job id and upserts, so replaying
// an append during recovery is harmless.
// Version: 1.0
type JobStore interface {
	// SaveJob persists the job record (everything except the payload).
	SaveJob(ctx context.Context, j *Job) error

	// LoadJob retrieves a job record by id. Returns an error satisfying
	// errors.Is(err, ErrJobNotFound) if no record exists.
	LoadJob(ctx context.Context, id uuid.UUID) (*Job, error)

	// DeleteJob removes the job record and its payload.
	// Deleting an unknown id is a no-op.
	DeleteJob(ctx context.Context, id uuid.UUID) error

	// SavePayload persists the opaque render payload for a job.
	SavePayload(ctx context.Context, id uuid.UUID, payload []byte) error

	// LoadPayload retrieves the render payload for a job. Returns an
	// error satisfying errors.Is(err, ErrJobNotFound) if none exists.
	LoadPayload(ctx context.Context, id uuid.UUID) ([]byte, error)

	// AppendQueueLog records a pending-queue entry for the job.
	AppendQueueLog(ctx context.Context, s Summary) error

	// RemoveQueueLog removes the pending-queue entry for the job.
	// Removing an unknown id is a no-op.
	RemoveQueueLog(ctx context.Context, id uuid.UUID) error

	// ListQueueLog returns all pending-queue entries. Order is not
	// significant; callers reconstruct dequeue order from the summary
	// fields.
	ListQueueLog(ctx context.Context) ([]Summary, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
