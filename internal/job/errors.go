package job

import "errors"

// Errors surfaced synchronously to callers. Execution failures are never
// returned from Submit; they are absorbed by the retry path and become
// visible through GetStatus.
var (
	// ErrQueueFull is returned by Submit when the pending queue has
	// reached its configured capacity.
	ErrQueueFull = errors.New("job queue is full")

	// ErrJobNotFound is returned when a job id is unknown to the active
	// set, the pending queue and the persistence store.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobProcessing is returned by Cancel for a job that has already
	// been dispatched to a worker. A processing job cannot be preempted
	// mid-render; the render collaborator is non-interruptible.
	ErrJobProcessing = errors.New("job is already processing")

	// ErrInvalidJob is returned by Submit for an unrecognized report
	// kind or output format.
	ErrInvalidJob = errors.New("invalid job")

	// ErrNoIdleWorkers is returned by the pool when a dispatch is
	// attempted with every worker busy.
	ErrNoIdleWorkers = errors.New("no idle workers available")

	// ErrNotRunning is returned for operations against a service that
	// has not been started or has been stopped.
	ErrNotRunning = errors.New("job service is not running")
)
