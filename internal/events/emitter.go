package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

type subscription struct {
	handler EventHandler
	// types is empty for handlers that receive every event.
	types []Type
}

func (s subscription) wants(t Type) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// InMemoryEventEmitter delivers job events synchronously to registered
// handlers, in registration order.
type InMemoryEventEmitter struct {
	mu   sync.RWMutex
	subs []subscription

	logger *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "job_event_emitter"),
	}
}

// RegisterHandler subscribes handler to the given event types, or to every
// type when none are given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...Type) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{handler: handler, types: slices.Clone(types)})
	e.logger.Debug("registered event handler",
		"handler_count", len(e.subs),
		"event_types", types)
}

// EmitEvent delivers event to every subscribed handler. A failing handler
// does not stop delivery; the first error is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *JobEvent) error {
	e.mu.RLock()
	subs := slices.Clone(e.subs)
	e.mu.RUnlock()

	var firstErr error
	for i, sub := range subs {
		if !sub.wants(event.Type) {
			continue
		}
		err := sub.handler.HandleEvent(ctx, event)
		if err == nil {
			continue
		}
		e.logger.Error("event handler failed",
			"error", err,
			"handler_index", i,
			"event_type", event.Type,
			"job_id", event.JobID)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogHandler returns a handler that writes every event to logger.
// Failures and drops are logged at WARN, the rest at DEBUG.
func LogHandler(logger *slog.Logger) EventHandler {
	return HandlerFunc(func(ctx context.Context, event *JobEvent) error {
		level := slog.LevelDebug
		if event.Type == JobFailed || event.Type == JobDropped {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "job event",
			"event_type", event.Type,
			"job_id", event.JobID,
			"job_name", event.JobName,
			"worker_id", event.WorkerID,
			"elapsed_ms", event.Elapsed.Milliseconds(),
			"reason", event.Reason)
		return nil
	})
}
