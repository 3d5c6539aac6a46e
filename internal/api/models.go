package api

import (
	"github.com/google/uuid"

	"github.com/phrazzld/cardfarm/internal/broker"
)

// JobResultResponse is the successful response of a finished job.
type JobResultResponse struct {
	JobID     uuid.UUID `json:"job_id"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Format    string    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`

	// Image is base64 encoded in JSON.
	Image []byte `json:"image"`
}

// JobAcceptedResponse is returned by asynchronous submission.
type JobAcceptedResponse struct {
	JobID     uuid.UUID `json:"job_id"`
	ResultURL string    `json:"result_url"`
}

// WorkersResponse lists connected workers.
type WorkersResponse struct {
	Workers []broker.WorkerInfo `json:"workers"`
}
