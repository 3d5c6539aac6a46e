package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/cardfarm/internal/broker"
	"github.com/phrazzld/cardfarm/internal/protocol"
)

// SubmitCall records one Submit invocation.
type SubmitCall struct {
	Name    protocol.JobName
	Payload any
}

// MockJobBroker implements api.JobBroker for testing.
type MockJobBroker struct {
	SubmitFn      func(ctx context.Context, name protocol.JobName, payload any) (uuid.UUID, error)
	AwaitResultFn func(ctx context.Context, jobID uuid.UUID, timeout time.Duration) (broker.Result, error)
	CancelFn      func(ctx context.Context, jobID uuid.UUID) error
	StatsFn       func(ctx context.Context) (broker.Stats, error)
	WorkersFn     func(ctx context.Context) ([]broker.WorkerInfo, error)

	mu            sync.Mutex
	submits       []SubmitCall
	cancels       []uuid.UUID
	awaitTimeouts []time.Duration
}

// Submit returns a fresh id unless SubmitFn is set.
func (m *MockJobBroker) Submit(ctx context.Context, name protocol.JobName, payload any) (uuid.UUID, error) {
	m.mu.Lock()
	m.submits = append(m.submits, SubmitCall{Name: name, Payload: payload})
	m.mu.Unlock()

	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, name, payload)
	}
	return uuid.New(), nil
}

// AwaitResult returns an empty Result unless AwaitResultFn is set.
func (m *MockJobBroker) AwaitResult(ctx context.Context, jobID uuid.UUID, timeout time.Duration) (broker.Result, error) {
	m.mu.Lock()
	m.awaitTimeouts = append(m.awaitTimeouts, timeout)
	m.mu.Unlock()

	if m.AwaitResultFn != nil {
		return m.AwaitResultFn(ctx, jobID, timeout)
	}
	return broker.Result{JobID: jobID}, nil
}

// Cancel succeeds unless CancelFn is set.
func (m *MockJobBroker) Cancel(ctx context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	m.cancels = append(m.cancels, jobID)
	m.mu.Unlock()

	if m.CancelFn != nil {
		return m.CancelFn(ctx, jobID)
	}
	return nil
}

// Stats returns zero stats unless StatsFn is set.
func (m *MockJobBroker) Stats(ctx context.Context) (broker.Stats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return broker.Stats{}, nil
}

// Workers returns no workers unless WorkersFn is set.
func (m *MockJobBroker) Workers(ctx context.Context) ([]broker.WorkerInfo, error) {
	if m.WorkersFn != nil {
		return m.WorkersFn(ctx)
	}
	return nil, nil
}

// Submits returns the recorded Submit calls.
func (m *MockJobBroker) Submits() []SubmitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SubmitCall(nil), m.submits...)
}

// Cancels returns the job ids passed to Cancel.
func (m *MockJobBroker) Cancels() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.cancels...)
}

// AwaitTimeouts returns the timeouts passed to AwaitResult.
func (m *MockJobBroker) AwaitTimeouts() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.awaitTimeouts...)
}
