package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned when a frame cannot be parsed.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownJob is returned for a job name outside the registered set.
	ErrUnknownJob = errors.New("unknown job name")

	// ErrInvalidPayload is returned when a payload or result does not match
	// the schema of its job.
	ErrInvalidPayload = errors.New("invalid payload")
)

// ProtocolError describes a frame that violates the wire format. A correctly
// paired broker and worker never produce one, so receivers treat it as fatal
// to the connection.
// Err always matches ErrMalformedFrame.
type ProtocolError struct {
	// Frame is a prefix of the offending frame, for logging.
	Frame  string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s (frame %q)", e.Reason, e.Frame)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func protocolErr(frame, reason string, err error) *ProtocolError {
	const maxFrame = 64
	if len(frame) > maxFrame {
		frame = frame[:maxFrame] + "..."
	}
	return &ProtocolError{Frame: frame, Reason: reason, Err: malformed(err)}
}

// malformed makes err match ErrMalformedFrame while keeping its own cause.
func malformed(err error) error {
	if err == nil {
		return ErrMalformedFrame
	}
	if errors.Is(err, ErrMalformedFrame) {
		return err
	}
	return errors.Join(ErrMalformedFrame, err)
}

// NewProtocolError builds a ProtocolError for frame. The error always
// matches ErrMalformedFrame and also matches cause when one is given.
func NewProtocolError(frame, reason string, cause error) *ProtocolError {
	return protocolErr(frame, reason, cause)
}

// IsProtocolError reports whether err is, or wraps, a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
