package playback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/advisorlab/go-jarvis/pkg/audioio"
)

// queueSize bounds pending buffers on a SinkDevice. Beyond this the
// session is hopelessly behind and buffers are dropped, not queued.
const queueSize = 64

// ErrDeviceClosed indicates Play was called after Close.
var ErrDeviceClosed = errors.New("playback: device closed")

type queuedBuffer struct {
	samples []float32
	at      time.Duration
}

// SinkDevice adapts an audioio.Sink into a Device. The timeline is wall
// clock time since the device was created; a single render goroutine
// waits until each buffer's start position arrives and writes it to the
// sink, so buffers are emitted in schedule order.
type SinkDevice struct {
	sink   audioio.Sink
	logger *slog.Logger
	start  time.Time

	queue  chan queuedBuffer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSinkDevice wraps sink for playback. The device owns the sink: it
// starts it now and closes it on Close.
func NewSinkDevice(ctx context.Context, sink audioio.Sink, logger *slog.Logger) (*SinkDevice, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := sink.Start(ctx); err != nil {
		return nil, err
	}

	renderCtx, cancel := context.WithCancel(context.Background())
	d := &SinkDevice{
		sink:   sink,
		logger: logger.With("component", "playback.device", "backend", sink.Name()),
		start:  time.Now(),
		queue:  make(chan queuedBuffer, queueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go d.renderLoop(renderCtx)

	return d, nil
}

// Now returns the elapsed time since the device was created.
func (d *SinkDevice) Now() time.Duration {
	return time.Since(d.start)
}

// Play queues samples to start at the given timeline position. If the
// queue is full the buffer is dropped with an error rather than
// blocking the caller.
func (d *SinkDevice) Play(samples []float32, at time.Duration) error {
	select {
	case <-d.done:
		return ErrDeviceClosed
	default:
	}

	select {
	case d.queue <- queuedBuffer{samples: samples, at: at}:
		return nil
	default:
		return errors.New("playback: device queue full")
	}
}

func (d *SinkDevice) renderLoop(ctx context.Context) {
	defer close(d.done)

	rate := d.sink.Config().SampleRate

	for {
		select {
		case <-ctx.Done():
			return
		case buf := <-d.queue:
			if wait := buf.at - d.Now(); wait > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
			}

			var frame audioio.Frame
			frame.FromBytes(EncodePCM16(buf.samples), rate, 1)

			if err := d.sink.Write(ctx, frame); err != nil {
				d.logger.Warn("sink write failed", "error", err)
			}
		}
	}
}

// Close stops the render goroutine and closes the sink. Queued buffers
// that have not been written yet are discarded.
func (d *SinkDevice) Close() error {
	d.cancel()
	<-d.done
	return d.sink.Close()
}

var _ Device = (*SinkDevice)(nil)
