package audioio

import (
	"context"
	"io"
)

// Sink plays audio to a speaker or other output device.
type Sink interface {
	// Start begins audio playback.
	// After calling Start, audio can be written via Write.
	Start(ctx context.Context) error

	// Stop halts audio playback.
	// It is safe to call Stop multiple times.
	Stop() error

	// Write sends an audio frame to the output device.
	// This may block if the output buffer is full.
	Write(ctx context.Context, frame Frame) error

	// Flush waits for all buffered audio to be played.
	Flush(ctx context.Context) error

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name (e.g., "alsa", "sox", "mock").
	Name() string

	// Close releases all resources.
	// After Close, the sink cannot be restarted.
	io.Closer
}

// SinkStats contains statistics about the audio sink.
type SinkStats struct {
	// FramesWritten is the total number of frames written.
	FramesWritten int64 `json:"frames_written"`

	// SamplesWritten is the total number of samples written.
	SamplesWritten int64 `json:"samples_written"`

	// Running indicates if the sink is currently playing.
	Running bool `json:"running"`

	// Backend is the name of the audio backend.
	Backend string `json:"backend"`
}

// SinkWithStats extends Sink with statistics.
type SinkWithStats interface {
	Sink
	Stats() SinkStats
}
