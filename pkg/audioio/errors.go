package audioio

import (
	"errors"
	"sync"
)

// Sentinel errors for device acquisition. These are the only failures a
// caller is expected to branch on; everything else is wrapped detail.
var (
	// ErrPermissionDenied indicates the process may not open the device.
	ErrPermissionDenied = errors.New("audioio: microphone permission denied")

	// ErrDeviceUnavailable indicates no usable capture device was found.
	ErrDeviceUnavailable = errors.New("audioio: capture device unavailable")

	// ErrDeviceBusy indicates the microphone is already held by another
	// source in this process.
	ErrDeviceBusy = errors.New("audioio: capture device busy")

	// ErrClosed indicates the source or sink was already closed.
	ErrClosed = errors.New("audioio: closed")
)

// micGuard enforces exclusive ownership of the hardware microphone
// within the process. A second concurrent Start fails with ErrDeviceBusy
// instead of silently sharing the device.
type micGuard struct {
	mu   sync.Mutex
	held bool
}

var capture micGuard

func (g *micGuard) acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return ErrDeviceBusy
	}
	g.held = true
	return nil
}

func (g *micGuard) release() {
	g.mu.Lock()
	g.held = false
	g.mu.Unlock()
}
