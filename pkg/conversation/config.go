package conversation

import (
	"context"
	"log/slog"

	"github.com/advisorlab/go-jarvis/pkg/audioio"
	"github.com/advisorlab/go-jarvis/pkg/playback"
	"github.com/advisorlab/go-jarvis/pkg/voice"
)

// Channel is the duplex voice connection the controller drives. It is
// satisfied by *voice.Channel; tests substitute their own.
type Channel interface {
	Open(ctx context.Context) error
	OnEvent(fn func(voice.Event))
	Send(frame []byte)
	IsOpen() bool
	Close() error
}

// ChannelFactory opens a new channel scoped to an agent.
type ChannelFactory func(agent string) (Channel, error)

// SourceFactory acquires a capture source for one recording.
type SourceFactory func() (audioio.Source, error)

// DeviceFactory creates the playback device for one session. Each
// session gets a fresh device so no scheduling state leaks across.
type DeviceFactory func(ctx context.Context) (playback.Device, error)

// Config holds controller configuration.
type Config struct {
	// BaseURL is the voice gateway base, used by the default channel
	// factory.
	BaseURL string

	// CaptureConfig configures microphone acquisition for the default
	// source factory.
	CaptureConfig audioio.Config

	// PlaybackSampleRate is the inbound synthesized-speech rate.
	PlaybackSampleRate int

	// Logger is the structured logger to use.
	Logger *slog.Logger

	// NewChannel, NewSource and NewDevice override the default
	// factories. Tests inject fakes here.
	NewChannel ChannelFactory
	NewSource  SourceFactory
	NewDevice  DeviceFactory
}

// DefaultConfig returns a Config with production factories.
func DefaultConfig() *Config {
	cfg := &Config{
		CaptureConfig:      audioio.DefaultCaptureConfig(),
		PlaybackSampleRate: audioio.PlaybackSampleRate,
		Logger:             slog.Default(),
	}

	cfg.NewChannel = func(agent string) (Channel, error) {
		return voice.NewChannel(
			voice.WithBaseURL(cfg.BaseURL),
			voice.WithAgentID(agent),
			voice.WithLogger(cfg.Logger),
		)
	}
	cfg.NewSource = func() (audioio.Source, error) {
		return audioio.NewSource(cfg.CaptureConfig, cfg.Logger)
	}
	cfg.NewDevice = func(ctx context.Context) (playback.Device, error) {
		sinkCfg := audioio.DefaultPlaybackConfig()
		sinkCfg.SampleRate = cfg.PlaybackSampleRate
		sink, err := audioio.NewSink(sinkCfg, cfg.Logger)
		if err != nil {
			return nil, err
		}
		return playback.NewSinkDevice(ctx, sink, cfg.Logger)
	}

	return cfg
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option is a functional option for configuring the controller.
type Option func(*Config)

// WithBaseURL sets the voice gateway base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithCaptureConfig sets the microphone configuration.
func WithCaptureConfig(cfg audioio.Config) Option {
	return func(c *Config) {
		c.CaptureConfig = cfg
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithChannelFactory overrides how channels are opened.
func WithChannelFactory(fn ChannelFactory) Option {
	return func(c *Config) {
		c.NewChannel = fn
	}
}

// WithSourceFactory overrides how capture sources are acquired.
func WithSourceFactory(fn SourceFactory) Option {
	return func(c *Config) {
		c.NewSource = fn
	}
}

// WithDeviceFactory overrides how playback devices are created.
func WithDeviceFactory(fn DeviceFactory) Option {
	return func(c *Config) {
		c.NewDevice = fn
	}
}
