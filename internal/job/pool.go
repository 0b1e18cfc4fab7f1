package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultRespawnDelay is how long the pool waits before replacing a
// crashed worker slot.
const defaultRespawnDelay = 500 * time.Millisecond

// Pool manages a fixed set of workers. It tracks which workers are
// idle, hands jobs to the least-recently-used idle worker, and respawns
// a replacement when a worker crashes so a slot is never silently lost.
//
// The pool forwards worker outcome messages to the channel returned by
// Messages; the scheduler is the sole consumer.
type Pool struct {
	size         int
	renderer     Renderer
	logger       *slog.Logger
	respawnDelay time.Duration

	// raw carries messages from workers to the pool loop; out carries
	// them onward to the scheduler after idle bookkeeping.
	raw chan Message
	out chan Message

	mu      sync.Mutex
	idle    []int
	workers map[int]*worker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool of size workers executing the given renderer.
func NewPool(size int, renderer Renderer, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		size:         size,
		renderer:     renderer,
		logger:       logger,
		respawnDelay: defaultRespawnDelay,
		raw:          make(chan Message, size*2),
		out:          make(chan Message, size*2),
		workers:      make(map[int]*worker, size),
	}
}

// Start spawns the worker goroutines and the pool's forwarding loop.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.size; i++ {
		p.spawn(i)
	}

	p.wg.Add(1)
	go p.run()
}

// Stop cancels all workers and waits for them to exit. Renders already
// in flight run to completion first; the collaborator call is not
// interruptible.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Messages returns the channel of worker outcome messages.
func (p *Pool) Messages() <-chan Message {
	return p.out
}

// IdleWorkers returns the number of workers currently idle.
func (p *Pool) IdleWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// WorkerCount returns the fixed pool size.
func (p *Pool) WorkerCount() int { return p.size }

// Dispatch hands a job to the least-recently-used idle worker. Workers
// are picked round-robin from the front of the idle queue, never at
// random, so load distribution is fair and deterministic. Fails with
// ErrNoIdleWorkers when every worker is busy.
func (p *Pool) Dispatch(pj ProcessJob) error {
	p.mu.Lock()
	if len(p.idle) == 0 {
		p.mu.Unlock()
		return ErrNoIdleWorkers
	}
	id := p.idle[0]
	p.idle = p.idle[1:]
	w := p.workers[id]
	p.mu.Unlock()

	w.jobs <- pj
	p.logger.Debug("job dispatched",
		"job_id", pj.Job.ID,
		"worker_id", id)
	return nil
}

// spawn creates and starts the worker goroutine for a slot.
func (p *Pool) spawn(id int) {
	w := newWorker(id, p.raw, p.renderer, p.logger)
	p.mu.Lock()
	p.workers[id] = w
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		w.run(p.ctx)
	}()
}

// run is the pool loop: it performs idle bookkeeping on worker
// messages, converts crashes into failure reports, and forwards
// everything else to the scheduler.
func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case msg := <-p.raw:
			switch m := msg.(type) {
			case WorkerReady:
				p.mu.Lock()
				p.idle = append(p.idle, m.WorkerID)
				p.mu.Unlock()
				p.forward(m)
			case workerCrashed:
				p.handleCrash(m)
			default:
				p.forward(msg)
			}
		}
	}
}

// handleCrash reports the in-flight job as failed and schedules a
// replacement worker for the slot after a short backoff.
func (p *Pool) handleCrash(m workerCrashed) {
	p.logger.Error("respawning crashed worker",
		"worker_id", m.WorkerID,
		"job_id", m.JobID,
		"respawn_delay", p.respawnDelay)

	p.forward(JobFailed{
		JobID:    m.JobID,
		WorkerID: m.WorkerID,
		Reason:   m.Reason,
	})

	id := m.WorkerID
	time.AfterFunc(p.respawnDelay, func() {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		p.spawn(id)
	})
}

func (p *Pool) forward(msg Message) {
	select {
	case p.out <- msg:
	case <-p.ctx.Done():
	}
}
