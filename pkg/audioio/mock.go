package audioio

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource is a mock audio source for testing.
// It generates synthetic audio (silence or sine wave).
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan Frame
	stopCh   chan struct{}
	loopDone sync.WaitGroup

	// Stats
	framesRead  atomic.Int64
	samplesRead atomic.Int64
	dropped     atomic.Int64

	// Synthetic audio generation
	phase     float64
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0

	// failWith, when set, makes Start fail with the given error.
	failWith error
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithStartError makes Start fail with err, simulating acquisition
// failures like ErrPermissionDenied.
func WithStartError(err error) MockSourceOption {
	return func(m *MockSource) {
		m.failWith = err
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, log *slog.Logger, opts ...MockSourceOption) *MockSource {
	m := &MockSource{
		cfg:       cfg,
		logger:    ensureLogger(log),
		streamCh:  make(chan Frame, streamBuffer),
		stopCh:    make(chan struct{}),
		frequency: 0, // Silence by default
		amplitude: 0.5,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// streamBuffer bounds the frame channel. Frames beyond this are dropped,
// never queued: the capture side must stay realtime.
const streamBuffer = 8

// Start begins generating audio. The mock holds the shared microphone
// guard so that exclusivity behaves like the hardware backends.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.failWith != nil {
		return m.failWith
	}
	if m.running {
		return ErrDeviceBusy
	}
	if err := capture.acquire(); err != nil {
		return err
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan Frame, streamBuffer)
	m.loopDone.Add(1)

	go m.generateLoop(ctx)

	m.logger.Info("mock audio source started",
		"sample_rate", m.cfg.SampleRate,
		"frequency", m.frequency,
	)

	return nil
}

func (m *MockSource) generateLoop(ctx context.Context) {
	defer m.loopDone.Done()

	ticker := time.NewTicker(m.cfg.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			frame := m.generateFrame()
			select {
			case m.streamCh <- frame:
				m.framesRead.Add(1)
				m.samplesRead.Add(int64(len(frame.Samples)))
			default:
				m.dropped.Add(1)
				m.logger.Debug("mock source: buffer full, dropping frame")
			}
		}
	}
}

func (m *MockSource) generateFrame() Frame {
	n := m.cfg.FrameSamples()
	samples := make([]int16, n*m.cfg.Channels)

	if m.frequency > 0 {
		for i := 0; i < n; i++ {
			sample := m.amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.SampleRate))
			sampleInt := int16(sample * 32767)

			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = sampleInt
			}

			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
	}
	// else: samples are already zero (silence)

	return Frame{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}
}

// Stop halts audio generation. The stream channel is closed before Stop
// returns and no frame is delivered afterwards.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	// The generator must be gone before the channel closes, otherwise a
	// frame could slip out after Stop returns.
	m.loopDone.Wait()
	close(m.streamCh)
	capture.release()

	m.logger.Info("mock audio source stopped")

	return nil
}

// Stream returns the audio frame channel.
func (m *MockSource) Stream() <-chan Frame {
	return m.streamCh
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

// Stats returns source statistics.
func (m *MockSource) Stats() SourceStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SourceStats{
		FramesRead:  m.framesRead.Load(),
		SamplesRead: m.samplesRead.Load(),
		Dropped:     m.dropped.Load(),
		Running:     running,
		Backend:     "mock",
	}
}

// Ensure MockSource implements SourceWithStats.
var _ SourceWithStats = (*MockSource)(nil)

// MockSink is a mock audio sink for testing.
// It retains written frames so tests can inspect playback output.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	frames  []Frame

	framesWritten  atomic.Int64
	samplesWritten atomic.Int64
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config, log *slog.Logger) *MockSink {
	return &MockSink{
		cfg:    cfg,
		logger: ensureLogger(log),
		frames: make([]Frame, 0, 64),
	}
}

// Start begins accepting audio.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.running = true
	m.logger.Info("mock audio sink started")

	return nil
}

// Stop halts audio acceptance.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	m.logger.Info("mock audio sink stopped")

	return nil
}

// Write accepts an audio frame.
func (m *MockSink) Write(ctx context.Context, frame Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.running {
		return ErrClosed
	}

	m.frames = append(m.frames, frame)
	m.framesWritten.Add(1)
	m.samplesWritten.Add(int64(len(frame.Samples)))

	return nil
}

// Flush is a no-op for the mock: writes complete immediately.
func (m *MockSink) Flush(ctx context.Context) error {
	return ctx.Err()
}

// Written returns a copy of all frames written so far.
func (m *MockSink) Written() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, len(m.frames))
	copy(out, m.frames)
	return out
}

// Config returns the audio configuration.
func (m *MockSink) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSink) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

// Stats returns sink statistics.
func (m *MockSink) Stats() SinkStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SinkStats{
		FramesWritten:  m.framesWritten.Load(),
		SamplesWritten: m.samplesWritten.Load(),
		Running:        running,
		Backend:        "mock",
	}
}

// Ensure MockSink implements SinkWithStats.
var _ SinkWithStats = (*MockSink)(nil)
