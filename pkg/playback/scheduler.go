package playback

import (
	"log/slog"
	"sync"
	"time"
)

// Scheduler turns a bursty sequence of PCM chunks into gapless,
// non-overlapping output on a Device. It owns a single cursor: the
// timeline position at which the next chunk must begin.
//
// For each chunk: decode, then play at max(device now, cursor), then
// advance the cursor past the chunk. Chunks arriving faster than real
// time queue back-to-back with zero gap; after a stall the cursor falls
// back to the device clock rather than playing late.
//
// A scheduler belongs to exactly one session. Stale cursor state must
// never leak into the next session; create a fresh scheduler (or call
// Reset) when a session starts.
type Scheduler struct {
	device     Device
	sampleRate int
	logger     *slog.Logger

	mu     sync.Mutex
	cursor time.Duration

	scheduled int64
	dropped   int64
}

// NewScheduler creates a scheduler for one session. The cursor starts
// at the device's current time.
func NewScheduler(device Device, sampleRate int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		device:     device,
		sampleRate: sampleRate,
		logger:     logger.With("component", "playback.scheduler"),
		cursor:     device.Now(),
	}
}

// Schedule decodes one PCM chunk and queues it on the device. A
// malformed chunk or device failure drops that chunk only; the cursor
// is untouched so the next chunk still lands per the contiguity rule.
func (s *Scheduler) Schedule(pcm []byte) {
	samples, err := DecodePCM16(pcm)
	if err != nil {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		s.logger.Warn("dropping undecodable chunk", "error", err, "bytes", len(pcm))
		return
	}

	duration := SampleDuration(len(samples), s.sampleRate)

	s.mu.Lock()
	defer s.mu.Unlock()

	playAt := s.device.Now()
	if s.cursor > playAt {
		playAt = s.cursor
	}

	if err := s.device.Play(samples, playAt); err != nil {
		s.dropped++
		s.logger.Warn("dropping unschedulable chunk", "error", err, "at", playAt)
		return
	}

	s.cursor = playAt + duration
	s.scheduled++
}

// Cursor returns the timeline position of the next chunk start.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Reset snaps the cursor back to the device's current time. Called at
// the start of a new session so nothing carries over from the last one.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.cursor = s.device.Now()
	s.mu.Unlock()
}

// Stats returns the number of chunks scheduled and dropped.
func (s *Scheduler) Stats() (scheduled, dropped int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled, s.dropped
}

// Close tears down the underlying device. Already-queued audio is
// discarded by the device; nothing further can be scheduled.
func (s *Scheduler) Close() error {
	return s.device.Close()
}
