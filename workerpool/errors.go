package workerpool

import "errors"

var (
	// ErrQueueFull indicates the submission queue has reached its depth
	// limit. Submissions fail fast rather than block indefinitely.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrTaskTimeout indicates a task exceeded the per-task deadline. The
	// worker is not killed; its result is discarded when it eventually
	// arrives.
	ErrTaskTimeout = errors.New("task timed out")

	// ErrTaskPanic indicates a task panicked. Only the offending task fails.
	ErrTaskPanic = errors.New("task panicked")

	// ErrPoolClosed indicates a submission after Close.
	ErrPoolClosed = errors.New("worker pool closed")
)
