package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/cardfarm/internal/api/shared"
	"github.com/phrazzld/cardfarm/internal/broker"
	"github.com/phrazzld/cardfarm/internal/platform/logger"
	"github.com/phrazzld/cardfarm/internal/protocol"
)

const (
	// MaxJobTimeout caps the ?timeout= a caller may ask for.
	MaxJobTimeout = 5 * time.Minute

	maxPayloadBytes = 1 << 20

	// jobParam is a job name on POST routes and a job id elsewhere.
	jobParam = "job"
)

// JobBroker is the part of the broker the HTTP API drives.
type JobBroker interface {
	Submit(ctx context.Context, name protocol.JobName, payload any) (uuid.UUID, error)
	AwaitResult(ctx context.Context, jobID uuid.UUID, timeout time.Duration) (broker.Result, error)
	Cancel(ctx context.Context, jobID uuid.UUID) error
	Stats(ctx context.Context) (broker.Stats, error)
	Workers(ctx context.Context) ([]broker.WorkerInfo, error)
}

// JobHandler serves the job API.
type JobHandler struct {
	broker         JobBroker
	defaultTimeout time.Duration
}

// NewJobHandler creates a JobHandler. defaultTimeout applies when a request
// does not set ?timeout=.
func NewJobHandler(b JobBroker, defaultTimeout time.Duration) *JobHandler {
	return &JobHandler{broker: b, defaultTimeout: defaultTimeout}
}

// Routes registers the job API on r.
func (h *JobHandler) Routes(r chi.Router) {
	r.Post("/jobs/{job}", h.RunJob)
	r.Post("/jobs/{job}/async", h.SubmitJob)
	r.Get("/jobs/{job}", h.GetJobResult)
	r.Delete("/jobs/{job}", h.CancelJob)
	r.Get("/stats", h.GetStats)
	r.Get("/workers", h.ListWorkers)
}

// RunJob handles POST /api/jobs/{name}: submit and wait for the result.
func (h *JobHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	timeout, err := h.timeout(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	id, ok := h.submit(w, r)
	if !ok {
		return
	}
	h.await(w, r, id, timeout)
}

// SubmitJob handles POST /api/jobs/{name}/async: submit and return the id.
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.submit(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{
		JobID:     id,
		ResultURL: "/api/jobs/" + id.String(),
	})
}

// GetJobResult handles GET /api/jobs/{id}: wait for a submitted job.
func (h *JobHandler) GetJobResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathJobID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	timeout, err := h.timeout(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.await(w, r, id, timeout)
}

// CancelJob handles DELETE /api/jobs/{id}.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathJobID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.broker.Cancel(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("job cancelled by caller", "job_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /api/stats.
func (h *JobHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.broker.Stats(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// ListWorkers handles GET /api/workers.
func (h *JobHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.broker.Workers(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, WorkersResponse{Workers: workers})
}

// submit parses the job name and body and submits the job. It writes the
// error response itself and reports whether the caller should continue.
func (h *JobHandler) submit(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, jobParam)
	name, err := protocol.ParseJobName(raw)
	if err != nil {
		h.handleError(w, r, fmt.Errorf("%w: %q", err, raw))
		return uuid.Nil, false
	}

	payload, err := readPayload(w, r)
	if err != nil {
		h.handleError(w, r, err)
		return uuid.Nil, false
	}

	id, err := h.broker.Submit(r.Context(), name, payload)
	if id != uuid.Nil {
		w.Header().Set("X-Job-ID", id.String())
	}
	if err != nil {
		h.handleError(w, r, err)
		return uuid.Nil, false
	}

	logger.FromContext(r.Context()).Debug("job submitted", "job_id", id, "job_name", name)
	return id, true
}

// await waits for id and writes its result. Callers sending
// Accept: image/png get the raw image instead of JSON.
func (h *JobHandler) await(w http.ResponseWriter, r *http.Request, id uuid.UUID, timeout time.Duration) {
	w.Header().Set("X-Job-ID", id.String())

	res, err := h.broker.AwaitResult(r.Context(), id, timeout)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	img, err := res.Render()
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "image/png") {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Elapsed-Ms", fmt.Sprint(res.ElapsedMs()))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(img.Image); err != nil {
			logger.FromContext(r.Context()).Warn("failed to write image response", "job_id", id, "error", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, JobResultResponse{
		JobID:     id,
		ElapsedMs: res.ElapsedMs(),
		Format:    img.Format,
		Width:     img.Width,
		Height:    img.Height,
		Image:     img.Image,
	})
}

func (h *JobHandler) timeout(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return h.defaultTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimeout, err)
	}
	if d <= 0 || d > MaxJobTimeout {
		return 0, fmt.Errorf("%w: %s not in (0, %s]", ErrInvalidTimeout, d, MaxJobTimeout)
	}
	return d, nil
}

func (h *JobHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

func pathJobID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, jobParam))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidJobID, err)
	}
	return id, nil
}

func readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("%w: empty body", protocol.ErrInvalidPayload)
	}
	return body, nil
}
