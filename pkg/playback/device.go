package playback

import (
	"sync"
	"time"
)

// Device is an audio output with its own monotonic timeline. Timestamps
// are durations since the device started; they never go backwards.
//
// Play hands a decoded buffer to the device to begin at the given
// timeline position. Buffers already handed over keep playing even
// after the owning session ends; only Close cuts them off.
type Device interface {
	// Now returns the current position on the device timeline.
	Now() time.Duration

	// Play schedules samples to start at the given timeline position.
	// Samples are normalized mono float32 at the device sample rate.
	Play(samples []float32, at time.Duration) error

	// Close tears the device down, discarding anything still scheduled.
	Close() error
}

// PlayCall records one Play invocation on a MockDevice.
type PlayCall struct {
	Samples []float32
	At      time.Duration
}

// MockDevice is a Device with a manually driven clock, for tests. Play
// only records; nothing is rendered.
type MockDevice struct {
	mu     sync.Mutex
	now    time.Duration
	calls  []PlayCall
	closed bool

	// PlayErr, when set, is returned by every Play call.
	PlayErr error
}

// NewMockDevice creates a mock device with the clock at zero.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// Now returns the manual clock.
func (d *MockDevice) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

// SetNow moves the manual clock to t.
func (d *MockDevice) SetNow(t time.Duration) {
	d.mu.Lock()
	d.now = t
	d.mu.Unlock()
}

// Advance moves the manual clock forward by d.
func (d *MockDevice) Advance(by time.Duration) {
	d.mu.Lock()
	d.now += by
	d.mu.Unlock()
}

// Play records the call.
func (d *MockDevice) Play(samples []float32, at time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.PlayErr != nil {
		return d.PlayErr
	}
	d.calls = append(d.calls, PlayCall{Samples: samples, At: at})
	return nil
}

// Calls returns a copy of all recorded Play calls.
func (d *MockDevice) Calls() []PlayCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PlayCall, len(d.calls))
	copy(out, d.calls)
	return out
}

// Close marks the device closed.
func (d *MockDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

var _ Device = (*MockDevice)(nil)
