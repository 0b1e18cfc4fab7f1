package job

import (
	"github.com/google/uuid"
)

// defaultRenderDuration seeds wait estimates before any render has
// completed in this process.
const defaultRenderDuration = 30 // seconds

// StatusSnapshot is the caller-visible state of a job. Position and
// EstimatedWaitSeconds are populated only while the job is queued.
type StatusSnapshot struct {
	JobID                uuid.UUID `json:"job_id"`
	Status               Status    `json:"status"`
	Position             int       `json:"position,omitempty"`
	EstimatedWaitSeconds int       `json:"estimated_wait_seconds,omitempty"`
	RetryCount           int       `json:"retry_count"`
	OutputLocation       string    `json:"output_location,omitempty"`
	FailureReason        string    `json:"failure_reason,omitempty"`
}

// QueueStats describes queue occupancy and capacity.
type QueueStats struct {
	QueueSize            int `json:"queue_size"`
	ActiveJobs           int `json:"active_jobs"`
	TotalCapacity        int `json:"total_capacity"`
	WorkerCount          int `json:"worker_count"`
	EstimatedWaitSeconds int `json:"estimated_wait_seconds"`
}

// lookupStatus resolves a status query against the in-memory state:
// the active map first, then the pending queue. The store fallback for
// terminal jobs happens on the caller's goroutine.
func (s *Service) lookupStatus(id uuid.UUID) statusReply {
	if j, ok := s.active[id]; ok {
		return statusReply{snapshot: snapshotFromJob(j), found: true}
	}
	if j := s.queue.Get(id); j != nil {
		snap := snapshotFromJob(j)
		snap.Position = s.queue.Position(id)
		snap.EstimatedWaitSeconds = s.estimateWait(snap.Position)
		return statusReply{snapshot: snap, found: true}
	}
	return statusReply{}
}

// estimateWait returns a rough linear wait estimate in seconds for a
// job n positions deep in the queue, based on the average duration of
// renders completed so far.
func (s *Service) estimateWait(n int) int {
	if n <= 0 {
		return 0
	}
	avg := defaultRenderDuration
	if s.completedRenders > 0 {
		avg = int(s.totalRenderTime.Seconds()) / s.completedRenders
		if avg < 1 {
			avg = 1
		}
	}
	return n * avg
}

func snapshotFromJob(j *Job) StatusSnapshot {
	return StatusSnapshot{
		JobID:          j.ID,
		Status:         j.Status,
		RetryCount:     j.RetryCount,
		OutputLocation: j.OutputLocation,
		FailureReason:  j.FailureReason,
	}
}
