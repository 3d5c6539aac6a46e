package broker

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/cardfarm/internal/events"
	"github.com/phrazzld/cardfarm/internal/protocol"
)

type workerState int

const (
	stateFree workerState = iota
	stateBusy
)

func (s workerState) String() string {
	if s == stateBusy {
		return "busy"
	}
	return "free"
}

type worker struct {
	id          uuid.UUID
	name        string
	conn        WorkerConn
	state       workerState
	job         *Job
	connectedAt time.Time
	completed   int
}

func (b *Broker) findWorker(id uuid.UUID) *worker {
	for _, w := range b.workers {
		if w.id == id {
			return w
		}
	}
	return nil
}

func (b *Broker) removeWorker(id uuid.UUID) *worker {
	for i, w := range b.workers {
		if w.id == id {
			b.workers = append(b.workers[:i:i], b.workers[i+1:]...)
			return w
		}
	}
	return nil
}

// firstFree returns the first free worker in registry order.
func (b *Broker) firstFree() *worker {
	for _, w := range b.workers {
		if w.state == stateFree {
			return w
		}
	}
	return nil
}

// schedule walks the pending queue in submission order and dispatches each
// job to the first free worker found. A worker that refuses the frame is
// evicted and the job is offered to the next free worker. Jobs without a free
// worker stay queued. With no workers registered at all, the whole queue is
// discarded and the number of dropped jobs is returned.
func (b *Broker) schedule() int {
	if len(b.pending) == 0 {
		return 0
	}
	if len(b.workers) == 0 {
		return b.dropPending()
	}

	remaining := make([]*Job, 0, len(b.pending))
	for i, job := range b.pending {
		if b.place(job) {
			continue
		}
		if len(b.workers) == 0 {
			// Evictions emptied the registry.
			b.pending = append(remaining, b.pending[i:]...)
			return b.dropPending()
		}
		remaining = append(remaining, job)
	}
	b.pending = remaining
	return 0
}

// place dispatches job to the first free worker that accepts it.
func (b *Broker) place(job *Job) bool {
	for w := b.firstFree(); w != nil; w = b.firstFree() {
		if b.dispatch(w, job) {
			return true
		}
	}
	return false
}

// dropPending discards the whole queue, storing ErrNoWorkersAvailable for
// every job so waiters are released.
func (b *Broker) dropPending() int {
	dropped := b.pending
	b.pending = nil
	b.logger.Error("no workers available, discarding queue", "dropped", len(dropped))
	for _, job := range dropped {
		b.storeResult(Result{JobID: job.ID, Err: ErrNoWorkersAvailable})
		event := events.NewJobEvent(events.JobDropped, job.ID, job.Name.String())
		event.Reason = ErrNoWorkersAvailable.Error()
		b.emit(event)
	}
	return len(dropped)
}

// dispatch sends job to w and marks it busy. A worker whose connection
// refuses the frame is evicted from the registry.
func (b *Broker) dispatch(w *worker, job *Job) bool {
	frame := protocol.Dispatch{
		Name:         job.Name,
		JobID:        job.ID,
		DispatchedAt: b.now(),
		Payload:      job.Payload,
	}.Encode()

	if err := w.conn.Send(frame); err != nil {
		b.logger.Error("failed to dispatch job, evicting worker",
			"job_id", job.ID,
			"worker_id", w.id,
			"error", err)
		b.removeWorker(w.id)
		_ = w.conn.Close()
		return false
	}

	w.state = stateBusy
	w.job = job

	b.logger.Debug("job dispatched",
		"job_id", job.ID,
		"job_name", job.Name,
		"worker_id", w.id,
		"queued_ms", b.now().Sub(job.SubmittedAt).Milliseconds())

	event := events.NewJobEvent(events.JobDispatched, job.ID, job.Name.String())
	event.WorkerID = w.id
	b.emit(event)
	return true
}

// WorkerInfo describes a registered worker.
type WorkerInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	State       string    `json:"state"`
	JobID       uuid.UUID `json:"job_id"`
	ConnectedAt time.Time `json:"connected_at"`
	Completed   int       `json:"completed"`
}

func (w *worker) info() WorkerInfo {
	info := WorkerInfo{
		ID:          w.id,
		Name:        w.name,
		State:       w.state.String(),
		ConnectedAt: w.connectedAt,
		Completed:   w.completed,
	}
	if w.job != nil {
		info.JobID = w.job.ID
	}
	return info
}
