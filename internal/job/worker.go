package job

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// worker is a single execution slot. It receives exactly one job at a
// time over its job channel, runs the render collaborator, and reports
// the outcome to the pool. It holds no queue state of its own.
type worker struct {
	id       int
	jobs     chan ProcessJob
	out      chan<- Message
	renderer Renderer
	logger   *slog.Logger
}

func newWorker(id int, out chan<- Message, renderer Renderer, logger *slog.Logger) *worker {
	return &worker{
		id:       id,
		jobs:     make(chan ProcessJob, 1),
		out:      out,
		renderer: renderer,
		logger:   logger.With("worker_id", id),
	}
}

// run is the worker goroutine. It announces readiness, then processes
// jobs until the context is cancelled. A panic during a render is
// reported as a crash and ends the goroutine; the pool respawns the
// slot.
func (w *worker) run(ctx context.Context) {
	w.logger.Debug("worker starting")
	w.send(ctx, WorkerReady{WorkerID: w.id})

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("worker stopping")
			return
		case pj := <-w.jobs:
			msg := w.execute(ctx, pj.Job)
			if crash, ok := msg.(workerCrashed); ok {
				w.logger.Error("worker crashed during render",
					"job_id", crash.JobID,
					"reason", crash.Reason)
				w.send(ctx, crash)
				return
			}
			w.send(ctx, msg)
			w.send(ctx, WorkerReady{WorkerID: w.id})
		}
	}
}

// execute runs the render collaborator for one job, converting the
// outcome (including a panic) into a protocol message.
func (w *worker) execute(ctx context.Context, j *Job) (msg Message) {
	defer func() {
		if r := recover(); r != nil {
			msg = workerCrashed{
				WorkerID: w.id,
				JobID:    j.ID,
				Reason:   fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	w.logger.Info("rendering report",
		"job_id", j.ID,
		"kind", j.Kind,
		"format", j.Format)

	location, err := w.renderer.Render(ctx, j)
	if err != nil {
		return JobFailed{JobID: j.ID, WorkerID: w.id, Reason: err.Error()}
	}
	return JobCompleted{JobID: j.ID, WorkerID: w.id, OutputLocation: location}
}

func (w *worker) send(ctx context.Context, msg Message) {
	select {
	case w.out <- msg:
	case <-ctx.Done():
	}
}
