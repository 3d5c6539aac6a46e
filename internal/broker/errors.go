package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrJobTimeout is returned when a wait expires before the job reports.
	// The job keeps running on its worker; a late result is still cached.
	ErrJobTimeout = errors.New("timed out waiting for job result")

	// ErrNoWorkersAvailable is returned when scheduling runs with no workers
	// connected. Every queued job is discarded, not only the newest one.
	ErrNoWorkersAvailable = errors.New("no workers available")

	// ErrJobCancelled is returned to waiters of a cancelled job.
	ErrJobCancelled = errors.New("job cancelled")

	// ErrWorkerLost is the result of a job whose worker disconnected before
	// reporting.
	ErrWorkerLost = errors.New("worker disconnected before reporting")

	// ErrUnknownWorker is returned for frames from an unregistered worker.
	ErrUnknownWorker = errors.New("unknown worker")

	// ErrBrokerClosed is returned once the broker has stopped.
	ErrBrokerClosed = errors.New("broker is closed")
)

// JobExecutionError is a failure reported by the worker that ran the job.
// It is never retried.
type JobExecutionError struct {
	Message string
	Stack   string
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("job execution failed: %s", e.Message)
}
