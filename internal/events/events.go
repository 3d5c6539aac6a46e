package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a job lifecycle transition.
type Type string

const (
	// JobDispatched is emitted when a job is sent to a worker.
	JobDispatched Type = "job_dispatched"
	// JobCompleted is emitted when a worker reports success.
	JobCompleted Type = "job_completed"
	// JobFailed is emitted when a worker reports failure or disconnects mid-job.
	JobFailed Type = "job_failed"
	// JobDropped is emitted when a queued job is discarded without running.
	JobDropped Type = "job_dropped"
)

// JobEvent describes one transition of a job.
type JobEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type    Type      `json:"type"`
	JobID   uuid.UUID `json:"job_id"`
	JobName string    `json:"job_name,omitempty"`

	// WorkerID is uuid.Nil for events not tied to a worker.
	WorkerID uuid.UUID `json:"worker_id"`

	// Elapsed is the dispatch-to-report time for completed and failed jobs.
	Elapsed time.Duration `json:"elapsed"`

	// Reason carries the failure or drop cause.
	Reason string `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewJobEvent creates a JobEvent with a fresh ID and timestamp.
func NewJobEvent(eventType Type, jobID uuid.UUID, jobName string) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		Type:      eventType,
		JobID:     jobID,
		JobName:   jobName,
		CreatedAt: time.Now(),
	}
}

// EventHandler defines an interface for components that can handle events.
// Handlers run on the emitter's goroutine and must not block.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *JobEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *JobEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *JobEvent) error
}
