package job

import "github.com/google/uuid"

// Message is the closed protocol spoken between workers and the
// coordinator. Workers only ever report outcomes; they never write
// queue or job state themselves.
type Message interface {
	message()
}

// ProcessJob is sent from the coordinator to a worker to start exactly
// one job. A worker never receives a second job until it has reported
// completion or failure for the current one.
type ProcessJob struct {
	Job *Job
}

// JobCompleted reports a successful render, carrying the opaque
// reference to where the collaborator wrote its result.
type JobCompleted struct {
	JobID          uuid.UUID
	WorkerID       int
	OutputLocation string
}

// JobFailed reports a failed render. The reason feeds the retry
// decision; it is never surfaced synchronously to the submitter.
type JobFailed struct {
	JobID    uuid.UUID
	WorkerID int
	Reason   string
}

// WorkerReady announces that a worker is idle and may be dispatched to.
type WorkerReady struct {
	WorkerID int
}

// workerCrashed is the pool-internal signal that a worker goroutine
// died with a panic mid-render. The pool turns it into a JobFailed for
// the in-flight job and respawns the slot.
type workerCrashed struct {
	WorkerID int
	JobID    uuid.UUID
	Reason   string
}

func (JobCompleted) message()  {}
func (JobFailed) message()     {}
func (WorkerReady) message()   {}
func (workerCrashed) message() {}
