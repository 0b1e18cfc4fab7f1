// Package redisstore implements the job persistence interface on
// Redis. Job records and payloads are plain keys; the pending-queue log
// is a hash keyed by job id, which makes appends idempotent and
// removals O(1). Dequeue order is reconstructed from the summary
// fields, so no list ordering is needed server-side.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/harborview/reportd/internal/job"
)

const (
	jobKeyPrefix     = "reportd:job:"
	payloadKeyPrefix = "reportd:payload:"
	queueLogKey      = "reportd:queue"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// JobStore is a Redis-backed job.JobStore.
type JobStore struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*JobStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return &JobStore{client: client}, nil
}

// NewWithClient wraps an existing client, used by tests.
func NewWithClient(client *redis.Client) *JobStore {
	return &JobStore{client: client}
}

func jobKey(id uuid.UUID) string     { return jobKeyPrefix + id.String() }
func payloadKey(id uuid.UUID) string { return payloadKeyPrefix + id.String() }

// SaveJob persists the job record as JSON under its own key.
func (s *JobStore) SaveJob(ctx context.Context, j *job.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal job %s: %w", j.ID, err)
	}
	if err := s.client.Set(ctx, jobKey(j.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to save job %s: %w", j.ID, err)
	}
	return nil
}

// LoadJob retrieves a job record by id.
func (s *JobStore) LoadJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("redis: job %s: %w", id, job.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to load job %s: %w", id, err)
	}
	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("redis: failed to unmarshal job %s: %w", id, err)
	}
	return &j, nil
}

// DeleteJob removes the job record and its payload.
func (s *JobStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, jobKey(id), payloadKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete job %s: %w", id, err)
	}
	return nil
}

// SavePayload persists the opaque render payload under its own key.
func (s *JobStore) SavePayload(ctx context.Context, id uuid.UUID, payload []byte) error {
	if err := s.client.Set(ctx, payloadKey(id), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to save payload %s: %w", id, err)
	}
	return nil
}

// LoadPayload retrieves the render payload for a job.
func (s *JobStore) LoadPayload(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := s.client.Get(ctx, payloadKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("redis: payload %s: %w", id, job.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to load payload %s: %w", id, err)
	}
	return data, nil
}

// AppendQueueLog upserts the pending-queue entry for the job.
func (s *JobStore) AppendQueueLog(ctx context.Context, sum job.Summary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal queue entry %s: %w", sum.ID, err)
	}
	if err := s.client.HSet(ctx, queueLogKey, sum.ID.String(), data).Err(); err != nil {
		return fmt.Errorf("redis: failed to append queue entry %s: %w", sum.ID, err)
	}
	return nil
}

// RemoveQueueLog removes the pending-queue entry for the job.
func (s *JobStore) RemoveQueueLog(ctx context.Context, id uuid.UUID) error {
	if err := s.client.HDel(ctx, queueLogKey, id.String()).Err(); err != nil {
		return fmt.Errorf("redis: failed to remove queue entry %s: %w", id, err)
	}
	return nil
}

// ListQueueLog returns all pending-queue entries in unspecified order.
func (s *JobStore) ListQueueLog(ctx context.Context) ([]job.Summary, error) {
	entries, err := s.client.HGetAll(ctx, queueLogKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list queue log: %w", err)
	}
	out := make([]job.Summary, 0, len(entries))
	for field, raw := range entries {
		var sum job.Summary
		if err := json.Unmarshal([]byte(raw), &sum); err != nil {
			return nil, fmt.Errorf("redis: failed to unmarshal queue entry %s: %w", field, err)
		}
		out = append(out, sum)
	}
	return out, nil
}

// Ping verifies the Redis connection.
func (s *JobStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *JobStore) Close() error {
	return s.client.Close()
}
