package audioio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// pipeSource captures audio by running a platform recorder process
// (arecord, sox rec) and slicing its raw PCM stdout into frames.
type pipeSource struct {
	cfg     Config
	logger  *slog.Logger
	backend string
	argv    []string

	mu       sync.Mutex
	running  bool
	closed   bool
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	stderr   *bytes.Buffer
	streamCh chan Frame
	stopCh   chan struct{}
	loopDone sync.WaitGroup

	framesRead  atomic.Int64
	samplesRead atomic.Int64
	dropped     atomic.Int64
}

func newPipeSource(cfg Config, logger *slog.Logger, backend string, argv []string) *pipeSource {
	return &pipeSource{
		cfg:     cfg,
		logger:  ensureLogger(logger).With("backend", backend),
		backend: backend,
		argv:    argv,
	}
}

// Start launches the recorder process and begins slicing frames.
func (s *pipeSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.running {
		return ErrDeviceBusy
	}
	if err := capture.acquire(); err != nil {
		return err
	}

	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		capture.release()
		return fmt.Errorf("audioio: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		capture.release()
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s not installed", ErrDeviceUnavailable, s.argv[0])
		}
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.stderr = stderr
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan Frame, streamBuffer)
	s.loopDone.Add(1)

	go s.readLoop()

	s.logger.Info("audio capture started",
		"device", s.cfg.Device,
		"sample_rate", s.cfg.SampleRate,
	)

	return nil
}

func (s *pipeSource) readLoop() {
	defer s.loopDone.Done()

	frameBytes := s.cfg.FrameBytes()
	buf := make([]byte, frameBytes)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if _, err := io.ReadFull(s.stdout, buf); err != nil {
			select {
			case <-s.stopCh:
				// Expected: Stop killed the process mid-read.
			default:
				s.logger.Error("capture stream ended", "error", classifyCaptureErr(err, s.stderr.String()))
			}
			return
		}

		var frame Frame
		frame.FromBytes(buf, s.cfg.SampleRate, s.cfg.Channels)

		select {
		case s.streamCh <- frame:
			s.framesRead.Add(1)
			s.samplesRead.Add(int64(len(frame.Samples)))
		default:
			// Consumer fell behind: drop, never queue.
			s.dropped.Add(1)
			s.logger.Debug("capture buffer full, dropping frame")
		}
	}
}

// classifyCaptureErr maps recorder process failures onto the package's
// acquisition error taxonomy using the tool's stderr output.
func classifyCaptureErr(err error, stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(stderr))
	case strings.Contains(lower, "busy"):
		return fmt.Errorf("%w: %s", ErrDeviceBusy, strings.TrimSpace(stderr))
	case stderr != "":
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, strings.TrimSpace(stderr))
	default:
		return err
	}
}

// Stop kills the recorder and closes the stream. Deterministic: no frame
// is delivered after Stop returns.
func (s *pipeSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.mu.Unlock()

	s.loopDone.Wait()
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
	close(s.streamCh)
	capture.release()

	s.logger.Info("audio capture stopped")

	return nil
}

// Stream returns the audio frame channel.
func (s *pipeSource) Stream() <-chan Frame {
	return s.streamCh
}

// Config returns the audio configuration.
func (s *pipeSource) Config() Config {
	return s.cfg
}

// Name returns the backend name.
func (s *pipeSource) Name() string {
	return s.backend
}

// Close releases resources.
func (s *pipeSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns source statistics.
func (s *pipeSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		FramesRead:  s.framesRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Dropped:     s.dropped.Load(),
		Running:     running,
		Backend:     s.backend,
	}
}

var _ SourceWithStats = (*pipeSource)(nil)

// pipeSink plays audio by feeding raw PCM into a platform player process
// (aplay, sox play) over stdin.
type pipeSink struct {
	cfg     Config
	logger  *slog.Logger
	backend string
	argv    []string

	mu      sync.Mutex
	running bool
	closed  bool
	cmd     *exec.Cmd
	stdin   io.WriteCloser

	framesWritten  atomic.Int64
	samplesWritten atomic.Int64
}

func newPipeSink(cfg Config, logger *slog.Logger, backend string, argv []string) *pipeSink {
	return &pipeSink{
		cfg:     cfg,
		logger:  ensureLogger(logger).With("backend", backend),
		backend: backend,
		argv:    argv,
	}
}

// Start launches the player process.
func (s *pipeSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.running {
		return nil
	}

	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("audioio: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s not installed", ErrDeviceUnavailable, s.argv[0])
		}
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.running = true

	s.logger.Info("audio playback started", "sample_rate", s.cfg.SampleRate)

	return nil
}

// Stop kills the player immediately, discarding buffered audio.
func (s *pipeSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *pipeSink) stopLocked() error {
	if !s.running {
		return nil
	}
	s.running = false

	if s.stdin != nil {
		_ = s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
		s.cmd = nil
	}

	s.logger.Info("audio playback stopped")

	return nil
}

// Write sends one frame to the player.
func (s *pipeSink) Write(ctx context.Context, frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.running || s.stdin == nil {
		return ErrClosed
	}

	if _, err := s.stdin.Write(frame.Bytes()); err != nil {
		// Player died underneath us; reset so a future Start can recover.
		_ = s.stopLocked()
		return fmt.Errorf("audioio: write to player: %w", err)
	}

	s.framesWritten.Add(1)
	s.samplesWritten.Add(int64(len(frame.Samples)))

	return nil
}

// Flush signals end of stream and waits for the player to drain.
// The sink is stopped afterwards; call Start to play again.
func (s *pipeSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.stdin != nil {
		_ = s.stdin.Close()
		s.stdin = nil
	}

	cmd := s.cmd
	s.cmd = nil
	if cmd == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Config returns the audio configuration.
func (s *pipeSink) Config() Config {
	return s.cfg
}

// Name returns the backend name.
func (s *pipeSink) Name() string {
	return s.backend
}

// Close releases resources.
func (s *pipeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.stopLocked()
}

// Stats returns sink statistics.
func (s *pipeSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SinkStats{
		FramesWritten:  s.framesWritten.Load(),
		SamplesWritten: s.samplesWritten.Load(),
		Running:        running,
		Backend:        s.backend,
	}
}

var _ SinkWithStats = (*pipeSink)(nil)
