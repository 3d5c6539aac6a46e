package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/cardfarm/internal/protocol"
)

// ErrNotRegistered is reported when a dispatched job has no loader.
var ErrNotRegistered = errors.New("job not registered on this worker")

// Runtime executes dispatch frames against a Registry.
type Runtime struct {
	registry Registry
	logger   *slog.Logger

	mu     sync.Mutex
	loaded map[protocol.JobName]JobFunc
}

// NewRuntime creates a Runtime for registry.
func NewRuntime(registry Registry, logger *slog.Logger) *Runtime {
	return &Runtime{
		registry: registry,
		logger:   logger.With("component", "runtime"),
		loaded:   make(map[protocol.JobName]JobFunc),
	}
}

// HandleFrame processes one frame from the broker. It returns the report frame
// to send back, or ok=false when the frame is not a dispatch and should be
// ignored. A ProtocolError means the frame claimed to be a dispatch but was
// malformed.
func (r *Runtime) HandleFrame(ctx context.Context, frame string) (reply string, ok bool, err error) {
	tag := protocol.Tag(frame)
	if !protocol.JobName(tag).Valid() {
		r.logger.Debug("ignoring frame with unrecognised tag", "tag", tag)
		return "", false, nil
	}

	d, err := protocol.DecodeDispatch(frame)
	if err != nil {
		return "", false, err
	}
	return r.Execute(ctx, d).Encode(), true, nil
}

// Execute runs d and builds its report. Failures, including panics, become
// error reports.
func (r *Runtime) Execute(ctx context.Context, d protocol.Dispatch) protocol.Report {
	logger := r.logger.With("job_id", d.JobID, "job_name", d.Name)
	start := time.Now()

	fn, err := r.resolve(ctx, d.Name)
	if err != nil {
		logger.Error("failed to load job", "error", err)
		return protocol.Failed(d, err.Error(), errorChain(err))
	}

	result, stack, err := invoke(ctx, fn, d)
	if err != nil {
		logger.Error("job failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		if stack == "" {
			stack = errorChain(err)
		}
		return protocol.Failed(d, err.Error(), stack)
	}

	raw, err := protocol.EncodeResult(result)
	if err != nil {
		logger.Error("job produced an invalid result", "error", err)
		return protocol.Failed(d, err.Error(), errorChain(err))
	}

	logger.Info("job completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"width", result.Width,
		"height", result.Height,
		"bytes", len(result.Image))
	return protocol.Completed(d, raw)
}

// resolve returns the memoized JobFunc for name, loading it on first use.
// A failed load is not cached so a later dispatch retries it.
func (r *Runtime) resolve(ctx context.Context, name protocol.JobName) (JobFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fn, ok := r.loaded[name]; ok {
		return fn, nil
	}

	load, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	start := time.Now()
	fn, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	r.loaded[name] = fn
	r.logger.Info("job loaded", "job_name", name, "duration_ms", time.Since(start).Milliseconds())
	return fn, nil
}

func invoke(ctx context.Context, fn JobFunc, d protocol.Dispatch) (result protocol.RenderResult, stack string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
			stack = string(debug.Stack())
		}
	}()
	result, err = fn(ctx, d.Payload)
	return result, "", err
}

// errorChain lists err and everything it wraps, one per line.
func errorChain(err error) string {
	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		lines = append(lines, fmt.Sprintf("%T: %v", e, e))
	}
	return strings.Join(lines, "\n")
}
