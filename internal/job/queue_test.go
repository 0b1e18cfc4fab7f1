package job

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestJob(priority int) *Job {
	return New(KindPropertyCard, FormatPDF, []byte(`{"address":"12 Main St"}`), "appraiser-1", priority)
}

func TestQueuePriorityOrder(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(10, newMockStore(), setupTestLogger())

	// Priorities submitted as [1, 5, 3] must dequeue as [5, 3, 1].
	j1 := newTestJob(1)
	j5 := newTestJob(5)
	j3 := newTestJob(3)
	require.NoError(t, q.Enqueue(ctx, j1))
	require.NoError(t, q.Enqueue(ctx, j5))
	require.NoError(t, q.Enqueue(ctx, j3))

	got := make([]int, 0, 3)
	for q.Len() > 0 {
		j, ok := q.DequeueHighest(ctx)
		require.True(t, ok)
		got = append(got, j.Priority)
	}
	assert.Equal(t, []int{5, 3, 1}, got)
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(10, newMockStore(), setupTestLogger())

	base := time.Now().UTC()
	var ids []string
	for i := 0; i < 5; i++ {
		j := newTestJob(2)
		j.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		ids = append(ids, j.ID.String())
		require.NoError(t, q.Enqueue(ctx, j))
	}

	for i := 0; i < 5; i++ {
		j, ok := q.DequeueHighest(ctx)
		require.True(t, ok)
		assert.Equal(t, ids[i], j.ID.String(), "equal-priority jobs must dequeue in submission order")
	}
}

func TestQueueFull(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(2, newMockStore(), setupTestLogger())

	require.NoError(t, q.Enqueue(ctx, newTestJob(1)))
	require.NoError(t, q.Enqueue(ctx, newTestJob(1)))

	err := q.Enqueue(ctx, newTestJob(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, q.Len(), "rejected submission must leave queue length unchanged")
}

func TestQueueDequeueEmpty(t *testing.T) {
	q := NewQueue(2, newMockStore(), setupTestLogger())

	j, ok := q.DequeueHighest(context.Background())
	assert.False(t, ok)
	assert.Nil(t, j)
}

func TestQueueRemove(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(10, newMockStore(), setupTestLogger())

	j1 := newTestJob(1)
	j2 := newTestJob(5)
	require.NoError(t, q.Enqueue(ctx, j1))
	require.NoError(t, q.Enqueue(ctx, j2))

	assert.True(t, q.Remove(ctx, j1.ID))
	assert.False(t, q.Remove(ctx, j1.ID), "removing twice must report not present")
	assert.Equal(t, 1, q.Len())

	got, ok := q.DequeueHighest(ctx)
	require.True(t, ok)
	assert.Equal(t, j2.ID, got.ID)
}

func TestQueueMirrorsStore(t *testing.T) {
	ctx := context.Background()
	ms := newMockStore()
	q := NewQueue(10, ms, setupTestLogger())

	j1 := newTestJob(1)
	j2 := newTestJob(2)
	require.NoError(t, q.Enqueue(ctx, j1))
	require.NoError(t, q.Enqueue(ctx, j2))
	assert.Equal(t, 2, ms.queueLogLen())

	_, ok := q.DequeueHighest(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, ms.queueLogLen())

	assert.True(t, q.Remove(ctx, j1.ID))
	assert.Equal(t, 0, ms.queueLogLen())
}

func TestQueueDegradedOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	ms := newMockStore()
	ms.setFailAll(true)
	q := NewQueue(10, ms, setupTestLogger())

	// Persistence failures must not reject work.
	require.NoError(t, q.Enqueue(ctx, newTestJob(1)))
	j, ok := q.DequeueHighest(ctx)
	assert.True(t, ok)
	assert.NotNil(t, j)
}

func TestQueuePosition(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(10, newMockStore(), setupTestLogger())

	low := newTestJob(1)
	high := newTestJob(9)
	mid := newTestJob(4)
	require.NoError(t, q.Enqueue(ctx, low))
	require.NoError(t, q.Enqueue(ctx, high))
	require.NoError(t, q.Enqueue(ctx, mid))

	assert.Equal(t, 1, q.Position(high.ID))
	assert.Equal(t, 2, q.Position(mid.ID))
	assert.Equal(t, 3, q.Position(low.ID))
	assert.Equal(t, 0, q.Position(newTestJob(1).ID), "unknown job has no position")
}
