package job

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRenderer renders according to the job payload: "fail" errors,
// "panic" panics, anything else succeeds.
type testRenderer struct{}

func (testRenderer) Render(_ context.Context, j *Job) (string, error) {
	switch string(j.Payload) {
	case "fail":
		return "", assert.AnError
	case "panic":
		panic("render exploded")
	default:
		return "/tmp/" + j.ID.String(), nil
	}
}

// awaitMessage reads messages until one of type T arrives or the
// timeout expires.
func awaitMessage[T Message](t *testing.T, ch <-chan Message, timeout time.Duration) T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-ch:
			if m, ok := msg.(T); ok {
				return m
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func startTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	p := NewPool(size, testRenderer{}, setupTestLogger())
	p.respawnDelay = 10 * time.Millisecond
	p.Start(context.Background())
	t.Cleanup(p.Stop)

	// All workers announce readiness on start.
	for i := 0; i < size; i++ {
		awaitMessage[WorkerReady](t, p.Messages(), time.Second)
	}
	return p
}

func TestPoolDispatchAndComplete(t *testing.T) {
	p := startTestPool(t, 1)

	j := newTestJob(1)
	require.NoError(t, p.Dispatch(ProcessJob{Job: j}))

	done := awaitMessage[JobCompleted](t, p.Messages(), time.Second)
	assert.Equal(t, j.ID, done.JobID)
	assert.Equal(t, "/tmp/"+j.ID.String(), done.OutputLocation)
}

func TestPoolDispatchFailure(t *testing.T) {
	p := startTestPool(t, 1)

	j := newTestJob(1)
	j.Payload = []byte("fail")
	require.NoError(t, p.Dispatch(ProcessJob{Job: j}))

	failed := awaitMessage[JobFailed](t, p.Messages(), time.Second)
	assert.Equal(t, j.ID, failed.JobID)
	assert.NotEmpty(t, failed.Reason)
}

func TestPoolNoIdleWorkers(t *testing.T) {
	p := NewPool(1, RenderFunc(func(_ context.Context, j *Job) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return "/tmp/" + j.ID.String(), nil
	}), setupTestLogger())
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	awaitMessage[WorkerReady](t, p.Messages(), time.Second)

	require.NoError(t, p.Dispatch(ProcessJob{Job: newTestJob(1)}))

	err := p.Dispatch(ProcessJob{Job: newTestJob(1)})
	assert.ErrorIs(t, err, ErrNoIdleWorkers)
}

func TestPoolRoundRobinSelection(t *testing.T) {
	p := startTestPool(t, 2)

	// With both workers idle, consecutive dispatches must alternate
	// between them: the finished worker goes to the back of the idle
	// queue.
	j1 := newTestJob(1)
	require.NoError(t, p.Dispatch(ProcessJob{Job: j1}))
	first := awaitMessage[JobCompleted](t, p.Messages(), time.Second)
	awaitMessage[WorkerReady](t, p.Messages(), time.Second)

	j2 := newTestJob(1)
	require.NoError(t, p.Dispatch(ProcessJob{Job: j2}))
	second := awaitMessage[JobCompleted](t, p.Messages(), time.Second)
	awaitMessage[WorkerReady](t, p.Messages(), time.Second)

	assert.NotEqual(t, first.WorkerID, second.WorkerID)

	j3 := newTestJob(1)
	require.NoError(t, p.Dispatch(ProcessJob{Job: j3}))
	third := awaitMessage[JobCompleted](t, p.Messages(), time.Second)

	assert.Equal(t, first.WorkerID, third.WorkerID)
}

func TestPoolRespawnsCrashedWorker(t *testing.T) {
	p := startTestPool(t, 1)

	j := newTestJob(1)
	j.Payload = []byte("panic")
	require.NoError(t, p.Dispatch(ProcessJob{Job: j}))

	// The crash surfaces as a failure for the in-flight job.
	failed := awaitMessage[JobFailed](t, p.Messages(), time.Second)
	assert.Equal(t, j.ID, failed.JobID)
	assert.True(t, strings.Contains(failed.Reason, "panic"), "reason should mention the panic: %s", failed.Reason)

	// The slot respawns and announces readiness again.
	ready := awaitMessage[WorkerReady](t, p.Messages(), 2*time.Second)
	assert.Equal(t, failed.WorkerID, ready.WorkerID)

	// The replacement worker processes jobs normally.
	j2 := newTestJob(1)
	require.NoError(t, p.Dispatch(ProcessJob{Job: j2}))
	done := awaitMessage[JobCompleted](t, p.Messages(), time.Second)
	assert.Equal(t, j2.ID, done.JobID)
}
