package voice

import (
	"errors"
	"fmt"
)

// Sentinel errors for the voice package.
var (
	// ErrMissingBaseURL indicates the channel base URL was not provided.
	ErrMissingBaseURL = errors.New("voice: base URL is required")

	// ErrMissingAgentID indicates the agent identity was not provided.
	ErrMissingAgentID = errors.New("voice: agent ID is required")

	// ErrAlreadyOpen indicates Open was called on an open channel.
	ErrAlreadyOpen = errors.New("voice: channel already open")

	// ErrClosed indicates the channel was closed.
	ErrClosed = errors.New("voice: channel closed")

	// ErrInvalidMessage indicates a malformed inbound message.
	ErrInvalidMessage = errors.New("voice: invalid message")
)

// ConnectionError represents a WebSocket connection failure.
type ConnectionError struct {
	// Reason describes why the connection failed.
	Reason string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if reconnection should be attempted.
	Retryable bool
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("voice: connection error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("voice: connection error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if reconnection should be attempted.
func (e *ConnectionError) IsRetryable() bool {
	return e.Retryable
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(reason string, cause error, retryable bool) *ConnectionError {
	return &ConnectionError{
		Reason:    reason,
		Cause:     cause,
		Retryable: retryable,
	}
}

// IsRetryable returns true if the error can be retried.
func IsRetryable(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.IsRetryable()
	}
	return false
}
