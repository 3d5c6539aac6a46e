package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/cardfarm/internal/events"
	"github.com/phrazzld/cardfarm/internal/protocol"
)

// Config holds broker tuning.
type Config struct {
	// ResultTTL is how long an unclaimed result stays cached.
	ResultTTL time.Duration

	// SweepInterval is how often expired results are removed.
	// If zero, defaults to one minute.
	SweepInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		ResultTTL:     10 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// WorkerConn is the broker's handle on a worker connection.
type WorkerConn interface {
	// Send queues frame for delivery. It must not block.
	Send(frame string) error

	// Close tears the connection down.
	Close() error
}

// Job is a queued unit of work. It is immutable once queued.
type Job struct {
	ID          uuid.UUID
	Name        protocol.JobName
	Payload     json.RawMessage
	SubmittedAt time.Time
}

// Result is the outcome of a job. Exactly one of Data and Err is set.
type Result struct {
	JobID   uuid.UUID
	Data    json.RawMessage
	Err     error
	Elapsed time.Duration
}

// ElapsedMs returns the dispatch-to-report time in milliseconds.
func (r Result) ElapsedMs() int64 {
	return r.Elapsed.Milliseconds()
}

// Render decodes Data as a render result.
func (r Result) Render() (protocol.RenderResult, error) {
	if r.Err != nil {
		return protocol.RenderResult{}, r.Err
	}
	return protocol.DecodeResult(r.Data)
}

// Stats is a point-in-time view of broker state.
type Stats struct {
	Workers       int `json:"workers"`
	BusyWorkers   int `json:"busy_workers"`
	Pending       int `json:"pending"`
	CachedResults int `json:"cached_results"`
	Waiters       int `json:"waiters"`
}

type cachedResult struct {
	result   Result
	storedAt time.Time
}

// Broker matches queued jobs to free workers and correlates their results.
type Broker struct {
	config  Config
	logger  *slog.Logger
	emitter events.EventEmitter
	now     func() time.Time

	loop       chan func()
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	// Owned by the loop goroutine.
	workers []*worker
	pending []*Job
	results map[uuid.UUID]cachedResult
	waiters map[uuid.UUID][]chan Result
}

// New creates a Broker. Call Start before using it.
// emitter may be nil.
func New(config Config, logger *slog.Logger, emitter events.EventEmitter) *Broker {
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if config.ResultTTL <= 0 {
		config.ResultTTL = DefaultConfig().ResultTTL
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Broker{
		config:     config,
		logger:     logger.With("component", "broker"),
		emitter:    emitter,
		now:        time.Now,
		loop:       make(chan func()),
		ctx:        ctx,
		cancelFunc: cancel,
		results:    make(map[uuid.UUID]cachedResult),
		waiters:    make(map[uuid.UUID][]chan Result),
	}
}

// Start launches the event loop.
func (b *Broker) Start() {
	b.wg.Add(1)
	go b.run()
}

// Stop shuts the event loop down and closes every worker connection.
func (b *Broker) Stop() {
	b.cancelFunc()
	b.wg.Wait()
}

func (b *Broker) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.SweepInterval)
	defer ticker.Stop()

	b.logger.Info("broker started",
		"result_ttl", b.config.ResultTTL,
		"sweep_interval", b.config.SweepInterval)

	for {
		select {
		case <-b.ctx.Done():
			for _, w := range b.workers {
				_ = w.conn.Close()
			}
			b.logger.Info("broker stopped", "pending_discarded", len(b.pending))
			return
		case fn := <-b.loop:
			fn()
		case <-ticker.C:
			b.sweep()
		}
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (b *Broker) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case b.loop <- wrapped:
	case <-b.ctx.Done():
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted, fn always runs to completion.
	<-done
	return nil
}

// RegisterWorker adds a connected worker to the registry as free and runs a
// scheduling pass so queued jobs can use the new capacity.
func (b *Broker) RegisterWorker(ctx context.Context, name string, conn WorkerConn) (uuid.UUID, error) {
	w := &worker{id: uuid.New(), name: name, conn: conn, state: stateFree, connectedAt: b.now()}

	err := b.do(ctx, func() {
		b.workers = append(b.workers, w)
		b.logger.Info("worker connected",
			"worker_id", w.id,
			"worker_name", name,
			"worker_count", len(b.workers))
		b.schedule()
	})
	if err != nil {
		return uuid.Nil, err
	}
	return w.id, nil
}

// UnregisterWorker removes a worker from the registry. A job it was running
// fails with ErrWorkerLost. When the last worker leaves, queued jobs are
// discarded with ErrNoWorkersAvailable. Unknown ids are ignored.
func (b *Broker) UnregisterWorker(ctx context.Context, workerID uuid.UUID) error {
	return b.do(ctx, func() {
		w := b.removeWorker(workerID)
		if w == nil {
			return
		}
		b.logger.Info("worker disconnected",
			"worker_id", w.id,
			"worker_name", w.name,
			"worker_count", len(b.workers))

		if w.state == stateBusy && w.job != nil {
			b.finish(w, Result{JobID: w.job.ID, Err: ErrWorkerLost}, events.JobFailed)
		}
		b.schedule()
	})
}

// HandleFrame processes a frame received from a worker. A returned
// ProtocolError means the connection should be closed.
func (b *Broker) HandleFrame(ctx context.Context, workerID uuid.UUID, frame string) error {
	report, decodeErr := protocol.DecodeReport(frame)

	var err error
	doErr := b.do(ctx, func() {
		w := b.findWorker(workerID)
		if w == nil {
			err = fmt.Errorf("%w: %s", ErrUnknownWorker, workerID)
			return
		}
		if decodeErr != nil {
			err = decodeErr
			return
		}
		err = b.handleReport(w, report, frame)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (b *Broker) handleReport(w *worker, report protocol.Report, frame string) error {
	if w.state != stateBusy || w.job == nil || w.job.ID != report.JobID {
		return protocol.NewProtocolError(protocol.Tag(frame)+";"+report.JobID.String(),
			"report for a job not assigned to this worker", nil)
	}

	elapsed := b.now().Sub(report.DispatchedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	res := Result{JobID: report.JobID, Elapsed: elapsed}
	kind := events.JobCompleted

	switch report.Status {
	case protocol.StatusCompleted:
		if _, err := protocol.DecodeResult(report.Result); err != nil {
			return protocol.NewProtocolError(protocol.Tag(frame)+";"+report.JobID.String(),
				"result does not match schema", err)
		}
		res.Data = report.Result
	case protocol.StatusFailed:
		res.Err = &JobExecutionError{Message: report.Message, Stack: report.Stack}
		kind = events.JobFailed
	}

	b.finish(w, res, kind)
	b.schedule()
	return nil
}

// finish frees w, stores its job's result and wakes waiters.
func (b *Broker) finish(w *worker, res Result, kind events.Type) {
	job := w.job
	w.state = stateFree
	w.job = nil
	w.completed++

	b.logger.Info("job finished",
		"job_id", job.ID,
		"job_name", job.Name,
		"worker_id", w.id,
		"elapsed_ms", res.ElapsedMs(),
		"error", res.Err)

	b.storeResult(res)

	event := events.NewJobEvent(kind, job.ID, job.Name.String())
	event.WorkerID = w.id
	event.Elapsed = res.Elapsed
	if res.Err != nil {
		event.Reason = res.Err.Error()
	}
	b.emit(event)
}

// Submit validates and enqueues a job, then runs a scheduling pass. The job id
// is returned even when the pass discards the queue with
// ErrNoWorkersAvailable, so the stored failure can still be awaited.
func (b *Broker) Submit(ctx context.Context, name protocol.JobName, payload any) (uuid.UUID, error) {
	if !name.Valid() {
		return uuid.Nil, fmt.Errorf("%w: %q", protocol.ErrUnknownJob, name)
	}
	raw, err := protocol.EncodePayload(name, payload)
	if err != nil {
		return uuid.Nil, err
	}

	job := &Job{ID: uuid.New(), Name: name, Payload: raw, SubmittedAt: b.now()}

	var dropped bool
	err = b.do(ctx, func() {
		b.pending = append(b.pending, job)
		b.logger.Debug("job submitted",
			"job_id", job.ID,
			"job_name", job.Name,
			"pending", len(b.pending))
		dropped = b.schedule() > 0
	})
	if err != nil {
		return uuid.Nil, err
	}
	if dropped {
		return job.ID, ErrNoWorkersAvailable
	}
	return job.ID, nil
}

// AwaitResult waits for the result of jobID. A cached result is returned
// immediately and stays cached, so awaiting the same job twice yields the same
// result. When the timeout wins, ErrJobTimeout is returned and the job is left
// running. A failed job returns its Result together with the failure.
func (b *Broker) AwaitResult(ctx context.Context, jobID uuid.UUID, timeout time.Duration) (Result, error) {
	ch := make(chan Result, 1)
	var (
		cached Result
		hit    bool
	)

	err := b.do(ctx, func() {
		if c, ok := b.results[jobID]; ok {
			cached, hit = c.result, true
			return
		}
		b.waiters[jobID] = append(b.waiters[jobID], ch)
	})
	if err != nil {
		return Result{}, err
	}
	if hit {
		return cached, cached.Err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, res.Err
	case <-timer.C:
		b.dropWaiter(jobID, ch)
		return Result{}, fmt.Errorf("%w: job %s after %s", ErrJobTimeout, jobID, timeout)
	case <-ctx.Done():
		b.dropWaiter(jobID, ch)
		return Result{}, ctx.Err()
	case <-b.ctx.Done():
		return Result{}, ErrBrokerClosed
	}
}

// SubmitAndAwait submits a job and waits for its result.
func (b *Broker) SubmitAndAwait(ctx context.Context, name protocol.JobName, payload any, timeout time.Duration) (Result, error) {
	id, err := b.Submit(ctx, name, payload)
	if err != nil {
		return Result{JobID: id}, err
	}
	return b.AwaitResult(ctx, id, timeout)
}

// Cancel abandons a job. A queued job is removed and never dispatched.
// A dispatched job keeps running on its worker; only local waiters are
// released. Cancel is idempotent.
func (b *Broker) Cancel(ctx context.Context, jobID uuid.UUID) error {
	return b.do(ctx, func() {
		for i, job := range b.pending {
			if job.ID != jobID {
				continue
			}
			b.pending = append(b.pending[:i:i], b.pending[i+1:]...)
			b.logger.Info("queued job cancelled", "job_id", job.ID, "job_name", job.Name)
			b.storeResult(Result{JobID: jobID, Err: ErrJobCancelled})

			event := events.NewJobEvent(events.JobDropped, job.ID, job.Name.String())
			event.Reason = ErrJobCancelled.Error()
			b.emit(event)
			return
		}

		if chans, ok := b.waiters[jobID]; ok {
			delete(b.waiters, jobID)
			for _, ch := range chans {
				ch <- Result{JobID: jobID, Err: ErrJobCancelled}
			}
			b.logger.Debug("released waiters of dispatched job", "job_id", jobID, "waiters", len(chans))
		}
	})
}

// Stats returns a snapshot of broker state.
func (b *Broker) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := b.do(ctx, func() {
		s.Workers = len(b.workers)
		for _, w := range b.workers {
			if w.state == stateBusy {
				s.BusyWorkers++
			}
		}
		s.Pending = len(b.pending)
		s.CachedResults = len(b.results)
		for _, chans := range b.waiters {
			s.Waiters += len(chans)
		}
	})
	return s, err
}

// Workers lists registered workers in registry order.
func (b *Broker) Workers(ctx context.Context) ([]WorkerInfo, error) {
	var out []WorkerInfo
	err := b.do(ctx, func() {
		out = make([]WorkerInfo, 0, len(b.workers))
		for _, w := range b.workers {
			out = append(out, w.info())
		}
	})
	return out, err
}

func (b *Broker) dropWaiter(jobID uuid.UUID, ch chan Result) {
	// Best effort: a closed broker has no waiters left to drop.
	_ = b.do(context.Background(), func() {
		chans := b.waiters[jobID]
		for i, c := range chans {
			if c == ch {
				chans = append(chans[:i:i], chans[i+1:]...)
				break
			}
		}
		if len(chans) == 0 {
			delete(b.waiters, jobID)
		} else {
			b.waiters[jobID] = chans
		}
	})
}

func (b *Broker) storeResult(res Result) {
	b.results[res.JobID] = cachedResult{result: res, storedAt: b.now()}

	chans := b.waiters[res.JobID]
	delete(b.waiters, res.JobID)
	for _, ch := range chans {
		// Buffered with capacity one and written once.
		ch <- res
	}
}

func (b *Broker) sweep() {
	cutoff := b.now().Add(-b.config.ResultTTL)
	removed := 0
	for id, c := range b.results {
		if c.storedAt.Before(cutoff) {
			delete(b.results, id)
			removed++
		}
	}
	if removed > 0 {
		b.logger.Debug("swept expired results", "removed", removed, "remaining", len(b.results))
	}
}

func (b *Broker) emit(event *events.JobEvent) {
	if b.emitter == nil {
		return
	}
	if err := b.emitter.EmitEvent(b.ctx, event); err != nil {
		b.logger.Warn("job event handler failed", "event_type", event.Type, "error", err)
	}
}
