// Package job implements the asynchronous report-generation system: a
// bounded, priority-ordered pending queue, a fixed pool of render
// workers, a scheduler that dispatches on a fixed tick, automatic
// retries with priority escalation, and crash recovery from a durable
// store.
//
// All queue and admission state is owned by a single scheduler
// goroutine; workers communicate with it exclusively through the typed
// message protocol in messages.go and never touch queue state
// themselves. Callers interact through Service, whose methods are safe
// for concurrent use.
package job
