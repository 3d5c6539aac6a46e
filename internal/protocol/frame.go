package protocol

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sep = ";"

// Dispatch is the broker-to-worker frame carrying one job.
type Dispatch struct {
	Name         JobName
	JobID        uuid.UUID
	DispatchedAt time.Time
	Payload      json.RawMessage
}

// Encode renders the dispatch frame.
func (d Dispatch) Encode() string {
	return strings.Join([]string{
		string(d.Name),
		d.JobID.String(),
		formatTimestamp(d.DispatchedAt),
		string(d.Payload),
	}, sep)
}

// ReportStatus says whether a worker report is a success or a failure.
type ReportStatus string

const (
	StatusCompleted ReportStatus = TagCompleted
	StatusFailed    ReportStatus = TagError
)

// Report is the worker-to-broker frame describing a job outcome.
// Result is set for StatusCompleted; Message and Stack for StatusFailed.
type Report struct {
	Status       ReportStatus
	JobID        uuid.UUID
	Result       json.RawMessage
	Message      string
	Stack        string
	DispatchedAt time.Time
}

// Completed builds a success report for d.
func Completed(d Dispatch, result json.RawMessage) Report {
	return Report{Status: StatusCompleted, JobID: d.JobID, Result: result, DispatchedAt: d.DispatchedAt}
}

// Failed builds a failure report for d.
func Failed(d Dispatch, message, stack string) Report {
	return Report{Status: StatusFailed, JobID: d.JobID, Message: message, Stack: stack, DispatchedAt: d.DispatchedAt}
}

// Encode renders the report frame.
func (r Report) Encode() string {
	ts := formatTimestamp(r.DispatchedAt)
	if r.Status == StatusFailed {
		return strings.Join([]string{
			TagError, r.JobID.String(), escapeField(r.Message), escapeField(r.Stack), ts,
		}, sep)
	}
	return strings.Join([]string{TagCompleted, r.JobID.String(), string(r.Result), ts}, sep)
}

// Tag returns the first field of a frame.
func Tag(frame string) string {
	if i := strings.Index(frame, sep); i >= 0 {
		return frame[:i]
	}
	return frame
}

// DecodeDispatch parses a dispatch frame. The job name must be registered and
// the payload must satisfy that job's schema.
func DecodeDispatch(frame string) (Dispatch, error) {
	parts := strings.SplitN(frame, sep, 4)
	if len(parts) != 4 {
		return Dispatch{}, protocolErr(frame, "dispatch frame needs 4 fields", nil)
	}

	name, err := ParseJobName(parts[0])
	if err != nil {
		return Dispatch{}, protocolErr(frame, "unknown job name", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Dispatch{}, protocolErr(frame, "invalid job id", nil)
	}
	ts, err := parseTimestamp(parts[2])
	if err != nil {
		return Dispatch{}, protocolErr(frame, "invalid dispatch timestamp", nil)
	}
	payload := json.RawMessage(parts[3])
	if _, err := DecodePayload(name, payload); err != nil {
		return Dispatch{}, protocolErr(frame, "payload does not match job", err)
	}

	return Dispatch{Name: name, JobID: id, DispatchedAt: ts, Payload: payload}, nil
}

// DecodeReport parses a completed or error frame.
func DecodeReport(frame string) (Report, error) {
	switch Tag(frame) {
	case TagCompleted:
		return decodeCompleted(frame)
	case TagError:
		return decodeFailed(frame)
	default:
		return Report{}, protocolErr(frame, "unexpected frame tag", nil)
	}
}

func decodeCompleted(frame string) (Report, error) {
	// completed;<id>;<json>;<ts> - the JSON may itself contain ';', so it is
	// bounded by the second separator and the last one.
	head := strings.SplitN(frame, sep, 3)
	if len(head) != 3 {
		return Report{}, protocolErr(frame, "completed frame needs 4 fields", nil)
	}
	last := strings.LastIndex(head[2], sep)
	if last < 0 {
		return Report{}, protocolErr(frame, "completed frame needs 4 fields", nil)
	}

	id, err := uuid.Parse(head[1])
	if err != nil {
		return Report{}, protocolErr(frame, "invalid job id", nil)
	}
	ts, err := parseTimestamp(head[2][last+1:])
	if err != nil {
		return Report{}, protocolErr(frame, "invalid dispatch timestamp", nil)
	}
	result := json.RawMessage(head[2][:last])
	if !json.Valid(result) {
		return Report{}, protocolErr(frame, "result is not valid JSON", ErrInvalidPayload)
	}

	return Report{Status: StatusCompleted, JobID: id, Result: result, DispatchedAt: ts}, nil
}

func decodeFailed(frame string) (Report, error) {
	parts := splitEscaped(frame)
	if len(parts) != 5 {
		return Report{}, protocolErr(frame, "error frame needs 5 fields", nil)
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Report{}, protocolErr(frame, "invalid job id", nil)
	}
	ts, err := parseTimestamp(parts[4])
	if err != nil {
		return Report{}, protocolErr(frame, "invalid dispatch timestamp", nil)
	}

	return Report{
		Status:       StatusFailed,
		JobID:        id,
		Message:      unescapeField(parts[2]),
		Stack:        unescapeField(parts[3]),
		DispatchedAt: ts,
	}, nil
}

func formatTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseTimestamp(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, ErrMalformedFrame
	}
	return time.UnixMilli(ms), nil
}
