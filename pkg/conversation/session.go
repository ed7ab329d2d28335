package conversation

import (
	"sync"

	"github.com/advisorlab/go-jarvis/pkg/audioio"
	"github.com/advisorlab/go-jarvis/pkg/playback"
)

// session is the lifetime of one open voice channel. It owns the
// channel, the playback scheduler and, while recording, the capture
// source. At most one session exists at a time; the controller is the
// sole owner.
type session struct {
	agent     string
	channel   Channel
	scheduler *playback.Scheduler

	mu       sync.Mutex
	source   audioio.Source
	pumpDone chan struct{}
}

// attachCapture records the running source and its pump goroutine.
func (s *session) attachCapture(src audioio.Source, pumpDone chan struct{}) {
	s.mu.Lock()
	s.source = src
	s.pumpDone = pumpDone
	s.mu.Unlock()
}

// capturing reports whether the microphone is currently held.
func (s *session) capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != nil
}

// stopCapture releases the microphone. The frame pump is fully drained
// before this returns, so no frame is sent afterwards. The channel is
// left open for trailing events.
func (s *session) stopCapture() {
	s.mu.Lock()
	src := s.source
	done := s.pumpDone
	s.source = nil
	s.pumpDone = nil
	s.mu.Unlock()

	if src == nil {
		return
	}

	_ = src.Stop()
	if done != nil {
		<-done
	}
	_ = src.Close()
}

// teardown releases everything the session holds. Audio already handed
// to the output device is discarded along with the device.
func (s *session) teardown() {
	s.stopCapture()
	_ = s.channel.Close()
	_ = s.scheduler.Close()
}
