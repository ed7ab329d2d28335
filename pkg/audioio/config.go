// Package audioio provides cross-platform audio capture and playback.
//
// This package supports multiple backends:
//   - ALSA (Linux) - capture/playback via arecord/aplay
//   - SoX (macOS) - development on Mac
//   - Mock - CI/Testing without hardware
//
// The backend is selected automatically based on the platform, or can be
// explicitly specified via configuration.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendALSA uses Linux ALSA for audio I/O.
	BackendALSA Backend = "alsa"
	// BackendSoX uses the SoX rec/play tools (macOS development).
	BackendSoX Backend = "sox"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Standard rates for the voice pipeline. Capture feeds speech
// recognition at 16 kHz; synthesized speech comes back at 24 kHz.
const (
	CaptureSampleRate  = 16000
	PlaybackSampleRate = 24000
)

// DefaultFrameDuration is the capture frame cadence. Frames are emitted
// at this interval regardless of whether the consumer keeps up.
const DefaultFrameDuration = 250 * time.Millisecond

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto" (selects best available for platform)
	Backend Backend `json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	SampleRate int `json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `json:"channels"`

	// FrameDuration is the duration of one capture frame.
	FrameDuration time.Duration `json:"frame_duration"`

	// Device is the platform-specific device identifier.
	// Examples:
	//   - ALSA: "hw:0,0", "default", "plughw:1,0"
	//   - SoX: ignored (system default)
	//   - Mock: ignored
	Device string `json:"device"`
}

// DefaultCaptureConfig returns the capture configuration the speech
// backend expects: mono PCM16 at 16 kHz in 250 ms frames.
func DefaultCaptureConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    CaptureSampleRate,
		Channels:      1,
		FrameDuration: DefaultFrameDuration,
	}
}

// DefaultPlaybackConfig returns the playback configuration matching the
// synthesized speech stream: mono PCM16 at 24 kHz.
func DefaultPlaybackConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    PlaybackSampleRate,
		Channels:      1,
		FrameDuration: 20 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame_duration must be positive, got %v", c.FrameDuration)
	}
	return nil
}

// FrameSamples returns the number of samples per frame.
func (c *Config) FrameSamples() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// FrameBytes returns the size of one frame in bytes (int16 samples).
func (c *Config) FrameBytes() int {
	return c.FrameSamples() * c.Channels * 2
}
