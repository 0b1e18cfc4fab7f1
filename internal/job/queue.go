package job

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Queue is a bounded, priority-ordered collection of pending jobs.
// Ordering is priority descending, then creation time ascending (FIFO
// among equal priorities), then insertion sequence for a total order.
// Every mutation is mirrored to the queue log in the persistence store;
// a mirroring failure is logged and tolerated so the in-memory system
// keeps operating in a degraded, non-durable mode.
//
// Queue is not safe for concurrent use. It is owned exclusively by the
// scheduler loop, which is the only goroutine that mutates it.
type Queue struct {
	items   queueItems
	maxSize int
	seq     uint64
	store   JobStore
	logger  *slog.Logger
}

type queueItem struct {
	job *Job
	seq uint64
}

type queueItems []queueItem

func (q queueItems) Len() int { return len(q) }

func (q queueItems) Less(i, j int) bool {
	return dequeuesBefore(&q[i], &q[j])
}

func (q queueItems) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queueItems) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *queueItems) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = queueItem{}
	*q = old[:n-1]
	return it
}

// NewQueue creates a queue bounded at maxSize entries, mirroring
// mutations to the given store.
func NewQueue(maxSize int, store JobStore, logger *slog.Logger) *Queue {
	q := &Queue{
		items:   make(queueItems, 0, maxSize),
		maxSize: maxSize,
		store:   store,
		logger:  logger,
	}
	heap.Init(&q.items)
	return q
}

// Enqueue appends a job to the queue and persists the append. It fails
// with ErrQueueFull when the queue is at capacity; nothing is mutated
// in that case.
func (q *Queue) Enqueue(ctx context.Context, j *Job) error {
	if len(q.items) >= q.maxSize {
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, q.maxSize)
	}
	q.seq++
	heap.Push(&q.items, queueItem{job: j, seq: q.seq})
	if err := q.store.AppendQueueLog(ctx, j.Summary()); err != nil {
		q.logger.Error("failed to persist queue append, continuing non-durable",
			"job_id", j.ID,
			"error", err)
	}
	q.logger.Debug("job enqueued",
		"job_id", j.ID,
		"priority", j.Priority,
		"queue_len", len(q.items),
		"queue_cap", q.maxSize)
	return nil
}

// DequeueHighest removes and returns the job with the numerically
// highest priority, FIFO among equal priorities. Returns ok=false if
// the queue is empty.
func (q *Queue) DequeueHighest(ctx context.Context) (*Job, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	it := heap.Pop(&q.items).(queueItem)
	if err := q.store.RemoveQueueLog(ctx, it.job.ID); err != nil {
		q.logger.Error("failed to persist queue removal, continuing non-durable",
			"job_id", it.job.ID,
			"error", err)
	}
	return it.job, true
}

// Remove removes a pending job by id, used by cancellation. Returns
// false if the job is not in the queue (already dispatched or unknown).
func (q *Queue) Remove(ctx context.Context, id uuid.UUID) bool {
	for i := range q.items {
		if q.items[i].job.ID == id {
			heap.Remove(&q.items, i)
			if err := q.store.RemoveQueueLog(ctx, id); err != nil {
				q.logger.Error("failed to persist queue removal, continuing non-durable",
					"job_id", id,
					"error", err)
			}
			return true
		}
	}
	return false
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int { return len(q.items) }

// Get returns the pending job with the given id, or nil if it is not
// queued.
func (q *Queue) Get(id uuid.UUID) *Job {
	for i := range q.items {
		if q.items[i].job.ID == id {
			return q.items[i].job
		}
	}
	return nil
}

// Position returns the 1-based dequeue position of a pending job, or 0
// if the job is not queued.
func (q *Queue) Position(id uuid.UUID) int {
	var target *queueItem
	for i := range q.items {
		if q.items[i].job.ID == id {
			target = &q.items[i]
			break
		}
	}
	if target == nil {
		return 0
	}
	pos := 1
	for i := range q.items {
		it := &q.items[i]
		if it == target {
			continue
		}
		if dequeuesBefore(it, target) {
			pos++
		}
	}
	return pos
}

func dequeuesBefore(a, b *queueItem) bool {
	if a.job.Priority != b.job.Priority {
		return a.job.Priority > b.job.Priority
	}
	if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
		return a.job.CreatedAt.Before(b.job.CreatedAt)
	}
	return a.seq < b.seq
}
