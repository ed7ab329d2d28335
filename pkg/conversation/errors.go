package conversation

import "errors"

// Sentinel errors for the conversation package.
var (
	// ErrNotIdle indicates StartRecording was called while a session is
	// already active.
	ErrNotIdle = errors.New("conversation: session already active")

	// ErrNotRecording indicates StopRecording was called outside the
	// recording state.
	ErrNotRecording = errors.New("conversation: not recording")

	// ErrClosed indicates the controller was closed.
	ErrClosed = errors.New("conversation: controller closed")
)
