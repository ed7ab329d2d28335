package audioio

import (
	"context"
	"io"
)

// Source captures audio from a microphone or other input device.
//
// A source emits frames at a fixed cadence regardless of backend
// readiness; if the stream buffer is full the frame is dropped rather
// than buffered unboundedly. Capture is never backpressured by the
// consumer.
type Source interface {
	// Start begins audio capture. It blocks until the device is
	// acquired and returns ErrPermissionDenied, ErrDeviceUnavailable,
	// or ErrDeviceBusy on acquisition failure.
	Start(ctx context.Context) error

	// Stop halts audio capture and releases the device. No frames are
	// delivered after Stop returns. It is safe to call Stop multiple
	// times.
	Stop() error

	// Stream returns a channel that receives audio frames.
	// The channel is closed when the source is stopped.
	Stream() <-chan Frame

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name (e.g., "alsa", "sox", "mock").
	Name() string

	// Close releases all resources.
	// After Close, the source cannot be restarted.
	io.Closer
}

// SourceStats contains statistics about the audio source.
type SourceStats struct {
	// FramesRead is the total number of frames read.
	FramesRead int64 `json:"frames_read"`

	// SamplesRead is the total number of samples read.
	SamplesRead int64 `json:"samples_read"`

	// Dropped is the number of frames dropped because the consumer
	// fell behind (bounded-loss policy).
	Dropped int64 `json:"dropped"`

	// Running indicates if the source is currently capturing.
	Running bool `json:"running"`

	// Backend is the name of the audio backend.
	Backend string `json:"backend"`
}

// SourceWithStats extends Source with statistics.
type SourceWithStats interface {
	Source
	Stats() SourceStats
}
