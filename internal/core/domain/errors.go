package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingEndpoint is returned when a crew endpoint has no base URL.
var ErrMissingEndpoint = errors.New("crew endpoint base url is empty")

// TransportError covers network failures and non-2xx responses.
type TransportError struct {
	Op         string // "launch" or "poll"
	StatusCode int    // 0 when no response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means a successful response lacked a required field.
type ProtocolError struct {
	Op    string
	Field string
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response (%s): %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: response missing %q", e.Op, e.Field)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ExecutionError means the remote job reported a terminal error state.
type ExecutionError struct {
	JobID string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("crew execution failed (kickoff_id: %s)", e.JobID)
}

// UnexpectedStateError means the remote reported a state outside the known
// vocabulary.
type UnexpectedStateError struct {
	JobID string
	State string
}

func (e *UnexpectedStateError) Error() string {
	return fmt.Sprintf("crew entered unexpected state: %s (kickoff_id: %s)", e.State, e.JobID)
}

// TimeoutError means the wait budget ran out before a terminal state.
type TimeoutError struct {
	JobID   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("crew did not complete within %s (kickoff_id: %s)", e.Timeout, e.JobID)
}
