package job

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// mockStore is an in-memory JobStore used by tests in this package. It
// records saved state and can be told to fail, which exercises the
// degraded non-durable mode.
type mockStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]Job
	payloads map[uuid.UUID][]byte
	queueLog map[uuid.UUID]Summary

	// failAll makes every operation return an error.
	failAll bool
}

func newMockStore() *mockStore {
	return &mockStore{
		jobs:     make(map[uuid.UUID]Job),
		payloads: make(map[uuid.UUID][]byte),
		queueLog: make(map[uuid.UUID]Summary),
	}
}

var errMockStore = errors.New("mock store failure")

func (m *mockStore) SaveJob(_ context.Context, j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errMockStore
	}
	m.jobs[j.ID] = *j
	return nil
}

func (m *mockStore) LoadJob(_ context.Context, id uuid.UUID) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errMockStore
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("load job %s: %w", id, ErrJobNotFound)
	}
	out := j
	return &out, nil
}

func (m *mockStore) DeleteJob(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errMockStore
	}
	delete(m.jobs, id)
	delete(m.payloads, id)
	return nil
}

func (m *mockStore) SavePayload(_ context.Context, id uuid.UUID, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errMockStore
	}
	m.payloads[id] = payload
	return nil
}

func (m *mockStore) LoadPayload(_ context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errMockStore
	}
	p, ok := m.payloads[id]
	if !ok {
		return nil, fmt.Errorf("load payload %s: %w", id, ErrJobNotFound)
	}
	return p, nil
}

func (m *mockStore) AppendQueueLog(_ context.Context, s Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errMockStore
	}
	m.queueLog[s.ID] = s
	return nil
}

func (m *mockStore) RemoveQueueLog(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errMockStore
	}
	delete(m.queueLog, id)
	return nil
}

func (m *mockStore) ListQueueLog(_ context.Context) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errMockStore
	}
	out := make([]Summary, 0, len(m.queueLog))
	for _, s := range m.queueLog {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errMockStore
	}
	return nil
}

func (m *mockStore) Close() error { return nil }

// savedJob returns the persisted copy of a job, if any.
func (m *mockStore) savedJob(id uuid.UUID) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return j, ok
}

// queueLogLen returns the number of persisted queue entries.
func (m *mockStore) queueLogLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queueLog)
}

// setFailAll toggles whole-store failure.
func (m *mockStore) setFailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}
