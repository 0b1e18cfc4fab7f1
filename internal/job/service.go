package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config holds the tunables of the job system.
type Config struct {
	// WorkerCount is the fixed number of render workers.
	WorkerCount int

	// MaxConcurrentJobs bounds how many jobs may be processing at once.
	MaxConcurrentJobs int

	// MaxQueueSize bounds the pending queue; submissions beyond it are
	// rejected with ErrQueueFull.
	MaxQueueSize int

	// MaxRetries bounds retryCount; once reached a job fails
	// permanently.
	MaxRetries int

	// RetryPriorityBoost is added to a job's priority on each retry so
	// retried work is not starved behind newer submissions.
	RetryPriorityBoost int

	// SchedulerTick is the interval at which the scheduler consults the
	// queue and dispatches work.
	SchedulerTick time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:        4,
		MaxConcurrentJobs:  10,
		MaxQueueSize:       100,
		MaxRetries:         3,
		RetryPriorityBoost: 5,
		SchedulerTick:      time.Second,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = d.MaxConcurrentJobs
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryPriorityBoost <= 0 {
		c.RetryPriorityBoost = d.RetryPriorityBoost
	}
	if c.SchedulerTick <= 0 {
		c.SchedulerTick = d.SchedulerTick
	}
	return c
}

// SubmitRequest carries the caller-supplied fields of a new job.
type SubmitRequest struct {
	Kind        Kind
	Format      Format
	Payload     []byte
	SubmitterID string
	Priority    int
}

// Service is the public face of the report job system. All queue and
// admission decisions run on a single scheduler goroutine that owns the
// pending queue and the active-jobs map; the public methods communicate
// with it over a command channel, so no fine-grained locking is needed.
type Service struct {
	cfg      Config
	store    JobStore
	queue    *Queue
	pool     *Pool
	logger   *slog.Logger
	cmds     chan any
	active   map[uuid.UUID]*Job
	started  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// Rolling render-duration stats, owned by the scheduler goroutine,
	// feeding the wait estimates in status and stats responses.
	totalRenderTime  time.Duration
	completedRenders int
}

// NewService wires a job service from its collaborators. Call Start
// before submitting work.
func NewService(cfg Config, store JobStore, renderer Renderer, logger *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:    cfg,
		store:  store,
		queue:  NewQueue(cfg.MaxQueueSize, store, logger),
		pool:   NewPool(cfg.WorkerCount, renderer, logger),
		logger: logger,
		cmds:   make(chan any),
		active: make(map[uuid.UUID]*Job, cfg.MaxConcurrentJobs),
	}
}

// Start runs the recovery phase, spawns the worker pool and starts the
// scheduler loop. Recovery completes before the scheduler's first tick.
func (s *Service) Start(ctx context.Context) error {
	if s.started.Load() {
		return fmt.Errorf("job service already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.store.Ping(s.ctx); err != nil {
		// Degraded mode: keep running in memory, catch up on the next
		// successful persistence write.
		s.logger.Warn("persistence store unreachable, running non-durable",
			"error", err)
	}

	s.recoverQueue()

	s.pool.Start(s.ctx)
	s.wg.Add(1)
	go s.run()
	s.started.Store(true)

	s.logger.Info("job service started",
		"worker_count", s.cfg.WorkerCount,
		"max_concurrent_jobs", s.cfg.MaxConcurrentJobs,
		"max_queue_size", s.cfg.MaxQueueSize,
		"scheduler_tick", s.cfg.SchedulerTick)
	return nil
}

// Stop shuts the service down. In-flight renders run to completion; the
// pending queue stays persisted for the next start.
func (s *Service) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.pool.Stop()
	s.logger.Info("job service stopped")
}

// Submit validates and admits a new job, returning its id. It fails
// synchronously with ErrQueueFull when the pending queue is at
// capacity; in that case nothing is persisted or mutated. Submit never
// waits for a worker.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (uuid.UUID, error) {
	if !ValidKind(req.Kind) {
		return uuid.Nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidJob, req.Kind)
	}
	if !ValidFormat(req.Format) {
		return uuid.Nil, fmt.Errorf("%w: unknown format %q", ErrInvalidJob, req.Format)
	}

	j := New(req.Kind, req.Format, req.Payload, req.SubmitterID, req.Priority)
	cmd := submitCmd{job: j, reply: make(chan error, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return uuid.Nil, err
	}
	select {
	case err := <-cmd.reply:
		if err != nil {
			return uuid.Nil, err
		}
		return j.ID, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// GetStatus reports the state of a job. Lookup order: active jobs
// (authoritative for processing), then the pending queue (with position
// and a rough wait estimate), then the persistence store (authoritative
// for terminal states). Fails with ErrJobNotFound if the job is absent
// from all three.
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (StatusSnapshot, error) {
	cmd := statusCmd{id: id, reply: make(chan statusReply, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return StatusSnapshot{}, err
	}
	var rep statusReply
	select {
	case rep = <-cmd.reply:
	case <-ctx.Done():
		return StatusSnapshot{}, ctx.Err()
	}
	if rep.found {
		return rep.snapshot, nil
	}

	// Not in memory; fall back to the store for terminal state. The
	// store read runs on the caller's goroutine so it never blocks the
	// scheduler.
	j, err := s.store.LoadJob(ctx, id)
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	return snapshotFromJob(j), nil
}

// Cancel removes a pending job from the queue. A processing job cannot
// be preempted mid-render and fails with ErrJobProcessing; an unknown
// id fails with ErrJobNotFound.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	cmd := cancelCmd{id: id, reply: make(chan error, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports queue occupancy and capacity.
func (s *Service) Stats(ctx context.Context) (QueueStats, error) {
	cmd := statsCmd{reply: make(chan QueueStats, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return QueueStats{}, err
	}
	select {
	case st := <-cmd.reply:
		return st, nil
	case <-ctx.Done():
		return QueueStats{}, ctx.Err()
	}
}

// send delivers a command to the scheduler goroutine.
func (s *Service) send(ctx context.Context, cmd any) error {
	if !s.started.Load() {
		return ErrNotRunning
	}
	select {
	case s.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrNotRunning
	}
}

// Commands handled by the scheduler goroutine.
type submitCmd struct {
	job   *Job
	reply chan error
}

type statusReply struct {
	snapshot StatusSnapshot
	found    bool
}

type statusCmd struct {
	id    uuid.UUID
	reply chan statusReply
}

type cancelCmd struct {
	id    uuid.UUID
	reply chan error
}

type statsCmd struct {
	reply chan QueueStats
}
