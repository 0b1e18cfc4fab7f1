// Package store provides the in-memory implementation of the job
// persistence interface, used in tests and when the service runs
// without external durability. Durable implementations live under
// internal/platform.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/harborview/reportd/internal/job"
)

// MemoryStore is a map-backed job.JobStore. State does not survive a
// process restart.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[uuid.UUID]job.Job
	payloads map[uuid.UUID][]byte
	queueLog map[uuid.UUID]job.Summary
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[uuid.UUID]job.Job),
		payloads: make(map[uuid.UUID][]byte),
		queueLog: make(map[uuid.UUID]job.Summary),
	}
}

// SaveJob persists the job record.
func (m *MemoryStore) SaveJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Copy so later caller mutations do not leak into the store.
	m.jobs[j.ID] = *j
	return nil
}

// LoadJob retrieves a job record by id.
func (m *MemoryStore) LoadJob(_ context.Context, id uuid.UUID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("load job %s: %w", id, job.ErrJobNotFound)
	}
	out := j
	return &out, nil
}

// DeleteJob removes the job record and its payload.
func (m *MemoryStore) DeleteJob(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	delete(m.payloads, id)
	return nil
}

// SavePayload persists the render payload for a job.
func (m *MemoryStore) SavePayload(_ context.Context, id uuid.UUID, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.payloads[id] = buf
	return nil
}

// LoadPayload retrieves the render payload for a job.
func (m *MemoryStore) LoadPayload(_ context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payloads[id]
	if !ok {
		return nil, fmt.Errorf("load payload %s: %w", id, job.ErrJobNotFound)
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	return buf, nil
}

// AppendQueueLog records a pending-queue entry, replacing any existing
// entry for the same job.
func (m *MemoryStore) AppendQueueLog(_ context.Context, s job.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueLog[s.ID] = s
	return nil
}

// RemoveQueueLog removes the pending-queue entry for the job.
func (m *MemoryStore) RemoveQueueLog(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queueLog, id)
	return nil
}

// ListQueueLog returns all pending-queue entries in unspecified order.
func (m *MemoryStore) ListQueueLog(_ context.Context) ([]job.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]job.Summary, 0, len(m.queueLog))
	for _, s := range m.queueLog {
		out = append(out, s)
	}
	return out, nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
