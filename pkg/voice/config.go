package voice

import (
	"log/slog"
	"time"
)

// Config holds configuration for a duplex voice channel.
type Config struct {
	// BaseURL is the ws:// or wss:// base of the voice gateway. The
	// channel appends the gateway path and agent selector itself.
	BaseURL string

	// AgentID scopes transcription, response and voice behavior for the
	// session's lifetime. Chosen at open time, fixed thereafter.
	AgentID string

	// Timeout is the connection handshake timeout.
	Timeout time.Duration

	// ReadTimeout is the timeout for reading inbound events.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for writing outbound frames.
	WriteTimeout time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.AgentID == "" {
		return ErrMissingAgentID
	}
	return nil
}

// Option is a functional option for configuring a channel.
type Option func(*Config)

// WithBaseURL sets the voice gateway base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithAgentID sets the agent identity for the session.
func WithAgentID(id string) Option {
	return func(c *Config) {
		c.AgentID = id
	}
}

// WithTimeout sets the handshake timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithReadTimeout sets the inbound read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
