package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	mu           sync.Mutex
	HandledCount int
	LastEvent    *JobEvent
	HandlerError error
}

func (m *MockEventHandler) HandleEvent(ctx context.Context, event *JobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		err := emitter.EmitEvent(context.Background(), NewJobEvent(JobDispatched, uuid.New(), "rank"))
		assert.NoError(t, err)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := NewJobEvent(JobCompleted, uuid.New(), "rank")
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		failingHandler := &MockEventHandler{HandlerError: errors.New("handler error")}
		successHandler := &MockEventHandler{}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		err := emitter.EmitEvent(context.Background(), NewJobEvent(JobFailed, uuid.New(), "match"))
		require.Error(t, err)
		assert.Equal(t, "handler error", err.Error())
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, failingHandler.HandledCount)
	})
	t.Run("handler filtered by event type", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		failures := &MockEventHandler{}
		all := &MockEventHandler{}
		emitter.RegisterHandler(failures, JobFailed, JobDropped)
		emitter.RegisterHandler(all)

		for _, typ := range []Type{JobDispatched, JobCompleted, JobFailed, JobDropped} {
			require.NoError(t, emitter.EmitEvent(context.Background(), NewJobEvent(typ, uuid.New(), "rank")))
		}

		assert.Equal(t, 2, failures.HandledCount)
		assert.Equal(t, JobDropped, failures.LastEvent.Type)
		assert.Equal(t, 4, all.HandledCount)
	})
}

func TestNewJobEvent(t *testing.T) {
	jobID := uuid.New()
	event := NewJobEvent(JobDropped, jobID, "rank")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, JobDropped, event.Type)
	assert.Equal(t, jobID, event.JobID)
	assert.Equal(t, "rank", event.JobName)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestLogHandler(t *testing.T) {
	var buf safeBuffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	handler := LogHandler(logger)

	require.NoError(t, handler.HandleEvent(context.Background(), NewJobEvent(JobDispatched, uuid.New(), "rank")))
	assert.Empty(t, buf.String(), "dispatch events are debug level")

	failed := NewJobEvent(JobFailed, uuid.New(), "rank")
	failed.Reason = "boom"
	require.NoError(t, handler.HandleEvent(context.Background(), failed))
	assert.Contains(t, buf.String(), `"reason":"boom"`)
	assert.Contains(t, buf.String(), failed.JobID.String())
}

type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
