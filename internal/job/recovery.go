package job

import (
	"sort"
)

// recoverQueue reconstructs the pending queue from the persisted queue
// log. It runs as an explicit phase before the scheduler's first tick.
//
// A job persisted as processing has no worker claiming it after a
// restart; it is routed through the retry policy (requeued with an
// incremented retry count and boosted priority, or terminally failed if
// retries are exhausted). Partial render progress is never assumed
// salvageable.
func (s *Service) recoverQueue() {
	summaries, err := s.store.ListQueueLog(s.ctx)
	if err != nil {
		s.logger.Warn("failed to read queue log, starting with empty queue",
			"error", err)
		return
	}
	if len(summaries) == 0 {
		return
	}

	// Re-enqueue in dequeue order so insertion sequence numbers agree
	// with the order the log implies.
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	var requeued, retried, dropped int
	for _, sum := range summaries {
		j, err := s.store.LoadJob(s.ctx, sum.ID)
		if err != nil {
			s.logger.Error("failed to load job from queue log, dropping entry",
				"job_id", sum.ID,
				"error", err)
			if rerr := s.store.RemoveQueueLog(s.ctx, sum.ID); rerr != nil {
				s.logger.Error("failed to drop queue log entry",
					"job_id", sum.ID,
					"error", rerr)
			}
			dropped++
			continue
		}

		if payload, perr := s.store.LoadPayload(s.ctx, j.ID); perr == nil {
			j.Payload = payload
		} else {
			s.logger.Warn("failed to load job payload during recovery",
				"job_id", j.ID,
				"error", perr)
		}

		switch j.Status {
		case StatusQueued:
			if qerr := s.queue.Enqueue(s.ctx, j); qerr != nil {
				s.failJob(j, "recovery: pending queue full")
				dropped++
				continue
			}
			requeued++
		case StatusProcessing:
			// Interrupted mid-render by the previous crash; treat as a
			// failure input, never resume.
			s.retryJob(j, "interrupted by process restart")
			retried++
		default:
			// Terminal job left behind in the log.
			if rerr := s.store.RemoveQueueLog(s.ctx, j.ID); rerr != nil {
				s.logger.Error("failed to drop queue log entry",
					"job_id", j.ID,
					"error", rerr)
			}
			dropped++
		}
	}

	s.logger.Info("queue recovered from persistence store",
		"requeued", requeued,
		"retried", retried,
		"dropped", dropped)
}
