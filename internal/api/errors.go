package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/cardfarm/internal/broker"
	"github.com/phrazzld/cardfarm/internal/protocol"
)

// Request errors raised by the handlers themselves.
var (
	ErrInvalidTimeout = errors.New("invalid timeout")
	ErrInvalidJobID   = errors.New("invalid job id")
	ErrBodyTooLarge   = errors.New("request body too large")
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so internal
// error types never reach clients.
func MapErrorToStatusCode(err error) int {
	var execErr *broker.JobExecutionError
	switch {
	case errors.Is(err, protocol.ErrUnknownJob):
		return http.StatusNotFound

	case errors.Is(err, protocol.ErrInvalidPayload),
		errors.Is(err, ErrInvalidTimeout),
		errors.Is(err, ErrInvalidJobID):
		return http.StatusBadRequest

	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, broker.ErrJobCancelled):
		return http.StatusConflict

	case errors.Is(err, broker.ErrJobTimeout):
		return http.StatusGatewayTimeout

	case errors.Is(err, broker.ErrNoWorkersAvailable),
		errors.Is(err, broker.ErrBrokerClosed),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable

	case errors.As(err, &execErr),
		errors.Is(err, broker.ErrWorkerLost):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var execErr *broker.JobExecutionError
	switch {
	case errors.Is(err, protocol.ErrUnknownJob):
		return "Unknown job"
	case errors.Is(err, protocol.ErrInvalidPayload):
		return SanitizeValidationError(err)
	case errors.Is(err, ErrInvalidTimeout):
		return "Invalid timeout"
	case errors.Is(err, ErrInvalidJobID):
		return "Invalid job id"
	case errors.Is(err, ErrBodyTooLarge):
		return "Request body too large"
	case errors.Is(err, broker.ErrJobCancelled):
		return "Job was cancelled"
	case errors.Is(err, broker.ErrJobTimeout):
		return "Timed out waiting for the job"
	case errors.Is(err, broker.ErrNoWorkersAvailable):
		return "No render workers are connected"
	case errors.Is(err, broker.ErrBrokerClosed), errors.Is(err, context.Canceled):
		return "Service is shutting down"
	case errors.Is(err, broker.ErrWorkerLost):
		return "Render worker disconnected"
	case errors.As(err, &execErr):
		// Message only; the stack stays in the logs.
		return "Job failed: " + execErr.Message
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator failure into a short message
// naming the field, or a generic one if the format is unrecognised.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'RankPayload.Ranks' Error:Field validation for 'Ranks' failed on the 'min' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Invalid payload"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "len":
		return "wrong length"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "gt":
		return "out of range"
	default:
		return "validation failed"
	}
}
