package audioio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testCaptureConfig() Config {
	cfg := DefaultCaptureConfig()
	cfg.Backend = BackendMock
	cfg.FrameDuration = 10 * time.Millisecond
	return cfg
}

func TestMockSource_StartStop(t *testing.T) {
	src := NewMockSource(testCaptureConfig(), nil)
	defer src.Close()

	ctx := context.Background()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A concurrent second start must refuse the device
	if err := src.Start(ctx); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("Expected ErrDeviceBusy on second Start, got: %v", err)
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Stopping again should be a no-op
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
}

func TestMockSource_ExclusiveDevice(t *testing.T) {
	ctx := context.Background()

	first := NewMockSource(testCaptureConfig(), nil)
	defer first.Close()
	second := NewMockSource(testCaptureConfig(), nil)
	defer second.Close()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := second.Start(ctx); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("Expected ErrDeviceBusy while mic held, got: %v", err)
	}

	if err := first.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Device released: a new source may acquire it
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after release failed: %v", err)
	}
	second.Stop()
}

func TestMockSource_StartError(t *testing.T) {
	src := NewMockSource(testCaptureConfig(), nil, WithStartError(ErrPermissionDenied))
	defer src.Close()

	if err := src.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got: %v", err)
	}
}

func TestMockSource_Stream(t *testing.T) {
	cfg := testCaptureConfig()
	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.After(200 * time.Millisecond)
	frameCount := 0

	for frameCount < 3 {
		select {
		case <-deadline:
			t.Fatalf("Expected at least 3 frames in 200ms, got %d", frameCount)
		case frame, ok := <-src.Stream():
			if !ok {
				t.Fatal("stream closed early")
			}
			if got, want := len(frame.Samples), cfg.FrameSamples()*cfg.Channels; got != want {
				t.Errorf("Expected %d samples, got %d", want, got)
			}
			if frame.SampleRate != cfg.SampleRate {
				t.Errorf("Expected sample rate %d, got %d", cfg.SampleRate, frame.SampleRate)
			}
			frameCount++
		}
	}

	src.Stop()
}

func TestMockSource_StopIsDeterministic(t *testing.T) {
	src := NewMockSource(testCaptureConfig(), nil)
	defer src.Close()

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let it emit something, then stop.
	time.Sleep(25 * time.Millisecond)
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Drain whatever was buffered before Stop; the channel must be
	// closed and no new frame may arrive afterwards.
	for {
		_, ok := <-src.Stream()
		if !ok {
			return
		}
	}
}

func TestMockSource_SineWave(t *testing.T) {
	src := NewMockSource(testCaptureConfig(), nil, WithSineWave(440, 0.5))
	defer src.Close()

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Stop()

	select {
	case frame := <-src.Stream():
		hasNonZero := false
		for _, s := range frame.Samples {
			if s != 0 {
				hasNonZero = true
				break
			}
		}
		if !hasNonZero {
			t.Error("Expected non-zero samples from sine wave generator")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("no frame within 200ms")
	}
}

func TestMockSource_Close(t *testing.T) {
	src := NewMockSource(testCaptureConfig(), nil)

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Start after close should fail
	if err := src.Start(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after close, got: %v", err)
	}

	// Closing again should be a no-op
	if err := src.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}

func TestMockSink_Write(t *testing.T) {
	cfg := DefaultPlaybackConfig()
	cfg.Backend = BackendMock
	sink := NewMockSink(cfg, nil)
	defer sink.Close()

	ctx := context.Background()

	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frame := Frame{
		Samples:    make([]int16, 480),
		SampleRate: 24000,
		Channels:   1,
	}

	if err := sink.Write(ctx, frame); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	stats := sink.Stats()
	if stats.FramesWritten != 1 {
		t.Errorf("Expected 1 frame written, got %d", stats.FramesWritten)
	}

	if got := sink.Written(); len(got) != 1 || len(got[0].Samples) != 480 {
		t.Errorf("Written() did not retain the frame: %v", got)
	}
}

func TestMockSink_NotRunning(t *testing.T) {
	cfg := DefaultPlaybackConfig()
	cfg.Backend = BackendMock
	sink := NewMockSink(cfg, nil)
	defer sink.Close()

	frame := Frame{
		Samples:    make([]int16, 480),
		SampleRate: 24000,
		Channels:   1,
	}

	if err := sink.Write(context.Background(), frame); err == nil {
		t.Error("Expected error when writing to non-running sink")
	}
}

func TestFrame_Bytes(t *testing.T) {
	frame := Frame{
		Samples:    []int16{0x0102, 0x0304, -1},
		SampleRate: 24000,
		Channels:   1,
	}

	b := frame.Bytes()
	if len(b) != 6 {
		t.Errorf("Expected 6 bytes, got %d", len(b))
	}

	// Check little-endian encoding
	if b[0] != 0x02 || b[1] != 0x01 {
		t.Errorf("First sample not encoded correctly: %v", b[0:2])
	}
}

func TestFrame_FromBytes(t *testing.T) {
	data := []byte{0x02, 0x01, 0x04, 0x03, 0xFF, 0xFF}

	var frame Frame
	frame.FromBytes(data, 24000, 1)

	if len(frame.Samples) != 3 {
		t.Errorf("Expected 3 samples, got %d", len(frame.Samples))
	}

	if frame.Samples[0] != 0x0102 {
		t.Errorf("First sample incorrect: got %d, expected %d", frame.Samples[0], 0x0102)
	}

	if frame.Samples[2] != -1 {
		t.Errorf("Third sample incorrect: got %d, expected -1", frame.Samples[2])
	}
}

func TestFrame_Duration(t *testing.T) {
	frame := Frame{
		Samples:    make([]int16, 4000), // 250ms at 16kHz mono
		SampleRate: 16000,
		Channels:   1,
	}

	if got, want := frame.Duration(), 250*time.Millisecond; got != want {
		t.Errorf("Expected duration %v, got %v", want, got)
	}
}
