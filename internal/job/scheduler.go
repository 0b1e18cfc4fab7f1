package job

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// run is the scheduler loop. It is the single owner of the pending
// queue and the active-jobs map: every mutation happens either inside
// the tick or inside a handler invoked synchronously from this loop,
// which serializes admission, dispatch, completion and retry without
// locks.
func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SchedulerTick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatchReady()
		case msg := <-s.pool.Messages():
			s.handleMessage(msg)
		case cmd := <-s.cmds:
			s.handleCommand(cmd)
		}
	}
}

// dispatchReady drains the queue into idle workers while capacity
// allows. The tick is the sole writer of the queued→processing
// transition, so "check capacity" and "dispatch" cannot race.
func (s *Service) dispatchReady() {
	for len(s.active) < s.cfg.MaxConcurrentJobs && s.queue.Len() > 0 && s.pool.IdleWorkers() > 0 {
		j, ok := s.queue.DequeueHighest(s.ctx)
		if !ok {
			return
		}

		now := time.Now().UTC()
		j.Status = StatusProcessing
		j.StartedAt = &now
		s.persistJob(j)
		s.active[j.ID] = j

		if err := s.pool.Dispatch(ProcessJob{Job: j}); err != nil {
			// Lost the idle worker between the check and the send; undo
			// the transition and try again next tick.
			delete(s.active, j.ID)
			j.Status = StatusQueued
			j.StartedAt = nil
			s.persistJob(j)
			if qerr := s.queue.Enqueue(s.ctx, j); qerr != nil {
				s.failJob(j, fmt.Sprintf("requeue after dispatch race failed: %v", qerr))
			}
			return
		}
	}
}

// handleMessage processes a worker outcome report.
func (s *Service) handleMessage(msg Message) {
	switch m := msg.(type) {
	case JobCompleted:
		j, ok := s.active[m.JobID]
		if !ok {
			s.logger.Warn("completion report for unknown job", "job_id", m.JobID)
			return
		}
		delete(s.active, m.JobID)

		now := time.Now().UTC()
		j.Status = StatusCompleted
		j.CompletedAt = &now
		j.OutputLocation = m.OutputLocation
		if j.StartedAt != nil {
			s.totalRenderTime += now.Sub(*j.StartedAt)
			s.completedRenders++
		}
		s.persistJob(j)
		s.logger.Info("job completed",
			"job_id", j.ID,
			"worker_id", m.WorkerID,
			"output_location", m.OutputLocation)

	case JobFailed:
		j, ok := s.active[m.JobID]
		if !ok {
			s.logger.Warn("failure report for unknown job", "job_id", m.JobID)
			return
		}
		delete(s.active, m.JobID)
		s.retryJob(j, m.Reason)

	case WorkerReady:
		s.logger.Debug("worker ready", "worker_id", m.WorkerID)
	}
}

// retryJob applies the retry policy to a failed job: requeue with a
// priority boost while retries remain, terminal failure once they are
// exhausted. Retries are automatic; the submitter is never involved.
func (s *Service) retryJob(j *Job, reason string) {
	j.RetryCount++
	if j.RetryCount >= s.cfg.MaxRetries {
		s.failJob(j, reason)
		return
	}

	j.Status = StatusQueued
	j.Priority += s.cfg.RetryPriorityBoost
	j.StartedAt = nil
	s.persistJob(j)
	if err := s.queue.Enqueue(s.ctx, j); err != nil {
		s.failJob(j, fmt.Sprintf("requeue for retry failed: %v", err))
		return
	}
	s.logger.Info("job requeued for retry",
		"job_id", j.ID,
		"retry_count", j.RetryCount,
		"priority", j.Priority,
		"reason", reason)
}

// failJob terminalizes a job. Exhaustion is irreversible; callers must
// resubmit as a new job if they want another attempt.
func (s *Service) failJob(j *Job, reason string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.FailureReason = reason
	j.CompletedAt = &now
	j.StartedAt = nil
	s.persistJob(j)
	// No-op unless a stale pending entry is left over, e.g. from
	// recovery of an exhausted job.
	if err := s.store.RemoveQueueLog(s.ctx, j.ID); err != nil {
		s.logger.Error("failed to drop queue log entry",
			"job_id", j.ID,
			"error", err)
	}
	s.logger.Error("job failed permanently",
		"job_id", j.ID,
		"retry_count", j.RetryCount,
		"reason", reason)
}

// handleCommand processes a public-API command on the scheduler
// goroutine.
func (s *Service) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case submitCmd:
		c.reply <- s.admit(c.job)

	case statusCmd:
		c.reply <- s.lookupStatus(c.id)

	case cancelCmd:
		c.reply <- s.cancelQueued(c.id)

	case statsCmd:
		c.reply <- QueueStats{
			QueueSize:            s.queue.Len(),
			ActiveJobs:           len(s.active),
			TotalCapacity:        s.cfg.MaxQueueSize,
			WorkerCount:          s.pool.WorkerCount(),
			EstimatedWaitSeconds: s.estimateWait(s.queue.Len()),
		}
	}
}

// admit applies admission control and persists the new job. The
// capacity check happens before any write so a rejected submission has
// no side effects.
func (s *Service) admit(j *Job) error {
	if s.queue.Len() >= s.cfg.MaxQueueSize {
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, s.cfg.MaxQueueSize)
	}

	s.persistJob(j)
	if err := s.store.SavePayload(s.ctx, j.ID, j.Payload); err != nil {
		s.logger.Error("failed to persist job payload, continuing non-durable",
			"job_id", j.ID,
			"error", err)
	}
	if err := s.queue.Enqueue(s.ctx, j); err != nil {
		return err
	}
	s.logger.Info("job submitted",
		"job_id", j.ID,
		"kind", j.Kind,
		"format", j.Format,
		"submitter_id", j.SubmitterID,
		"priority", j.Priority)
	return nil
}

// cancelQueued removes a pending job. Only queue-level cancellation is
// supported: a processing job cannot be preempted mid-render.
func (s *Service) cancelQueued(id uuid.UUID) error {
	if _, ok := s.active[id]; ok {
		return fmt.Errorf("job %s: %w", id, ErrJobProcessing)
	}
	if !s.queue.Remove(s.ctx, id) {
		return fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	if err := s.store.DeleteJob(s.ctx, id); err != nil {
		s.logger.Error("failed to delete cancelled job from store",
			"job_id", id,
			"error", err)
	}
	s.logger.Info("job cancelled", "job_id", id)
	return nil
}

// persistJob mirrors the job record to the store, tolerating failures:
// the in-memory system keeps operating in a degraded, non-durable mode
// rather than halting.
func (s *Service) persistJob(j *Job) {
	if err := s.store.SaveJob(s.ctx, j); err != nil {
		s.logger.Error("failed to persist job, continuing non-durable",
			"job_id", j.ID,
			"status", j.Status,
			"error", err)
	}
}
