package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/advisorlab/go-jarvis/pkg/audioio"
	"github.com/advisorlab/go-jarvis/pkg/playback"
	"github.com/advisorlab/go-jarvis/pkg/voice"
)

// fakeChannel is a Channel whose events are injected by the test.
// With failSendAfter set, the Nth frame write fails the way a real
// transport does: the channel flips closed and the error event is
// delivered synchronously on the sender's goroutine.
type fakeChannel struct {
	mu            sync.Mutex
	handler       func(voice.Event)
	open          bool
	closed        bool
	openErr       error
	sent          [][]byte
	failSendAfter int
}

func (f *fakeChannel) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	return nil
}

func (f *fakeChannel) OnEvent(fn func(voice.Event)) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

func (f *fakeChannel) Send(frame []byte) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	f.sent = append(f.sent, buf)

	fail := f.failSendAfter > 0 && len(f.sent) >= f.failSendAfter
	if fail {
		f.open = false
	}
	fn := f.handler
	f.mu.Unlock()

	if fail && fn != nil {
		fn(voice.ErrorEvent{
			Message: "send failed",
			Cause:   voice.NewConnectionError("send failed", errors.New("broken pipe"), true),
		})
	}
}

func (f *fakeChannel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.open = false
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) deliver(e voice.Event) {
	f.mu.Lock()
	fn := f.handler
	f.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testRig struct {
	controller *Controller
	channel    *fakeChannel
	device     *playback.MockDevice
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	rig := &testRig{
		channel: &fakeChannel{},
		device:  playback.NewMockDevice(),
	}

	srcCfg := audioio.DefaultCaptureConfig()
	srcCfg.Backend = audioio.BackendMock
	srcCfg.FrameDuration = 5 * time.Millisecond

	rig.controller = NewController(
		WithChannelFactory(func(agent string) (Channel, error) {
			return rig.channel, nil
		}),
		WithSourceFactory(func() (audioio.Source, error) {
			return audioio.NewMockSource(srcCfg, nil), nil
		}),
		WithDeviceFactory(func(ctx context.Context) (playback.Device, error) {
			return rig.device, nil
		}),
	)
	t.Cleanup(func() { rig.controller.Close() })

	return rig
}

func TestController_StartRefusedWhileRecording(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.controller.StartRecording(ctx, "jarvis"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}

	if err := rig.controller.StartRecording(ctx, "jarvis"); !errors.Is(err, ErrNotIdle) {
		t.Errorf("Expected ErrNotIdle, got: %v", err)
	}

	if got := rig.controller.ActiveAgent(); got != "jarvis" {
		t.Errorf("Expected active agent jarvis, got %q", got)
	}
}

func TestController_TurnFlow(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.controller.StartRecording(ctx, "jarvis"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if got := rig.controller.State(); got != StateRecording {
		t.Fatalf("Expected recording state, got %v", got)
	}

	if err := rig.controller.StopRecording(); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	if got := rig.controller.State(); got != StateAwaitingTranscript {
		t.Fatalf("Expected awaiting_transcript, got %v", got)
	}

	// The channel stays open for trailing events.
	if rig.channel.closed {
		t.Fatal("channel must not close on StopRecording")
	}

	rig.channel.deliver(voice.TranscriptReady{Text: "What is my portfolio balance?"})
	rig.channel.deliver(voice.ResponseChunk{Text: "Your balance is "})
	rig.channel.deliver(voice.ResponseChunk{Text: "£12,450."})

	if got := rig.controller.State(); got != StateStreaming {
		t.Errorf("Expected streaming state, got %v", got)
	}

	msgs := rig.controller.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Text != "What is my portfolio balance?" {
		t.Errorf("Unexpected user message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Text != "Your balance is £12,450." {
		t.Errorf("Unexpected assistant message: %+v", msgs[1])
	}
}

func TestController_TextChunksInterleavedWithAudio(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.controller.StartRecording(ctx, "emma"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	rig.controller.StopRecording()

	pcm := make([]byte, 480)
	rig.channel.deliver(voice.TranscriptReady{Text: "hello"})
	rig.channel.deliver(voice.ResponseChunk{Text: "a"})
	rig.channel.deliver(voice.AudioChunk{PCM: pcm})
	rig.channel.deliver(voice.ResponseChunk{Text: "b"})
	rig.channel.deliver(voice.AudioChunk{PCM: pcm})
	rig.channel.deliver(voice.ResponseChunk{Text: "c"})

	msgs := rig.controller.Messages()
	if got := msgs[len(msgs)-1].Text; got != "abc" {
		t.Errorf("Text chunks must concatenate verbatim, got %q", got)
	}

	if got := len(rig.device.Calls()); got != 2 {
		t.Errorf("Expected 2 scheduled audio buffers, got %d", got)
	}
}

func TestController_AudioKeepsPlayingAfterStop(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.controller.StartRecording(ctx, "jarvis"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := rig.controller.StopRecording(); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	sentAfterStop := rig.channel.sentCount()

	// In-flight audio still schedules after the microphone is released.
	rig.channel.deliver(voice.AudioChunk{PCM: make([]byte, 480)})
	rig.channel.deliver(voice.AudioChunk{PCM: make([]byte, 480)})

	if got := len(rig.device.Calls()); got != 2 {
		t.Errorf("Expected 2 scheduled buffers after stop, got %d", got)
	}

	// And no frame goes out after StopRecording returned.
	time.Sleep(30 * time.Millisecond)
	if got := rig.channel.sentCount(); got != sentAfterStop {
		t.Errorf("Frames sent after stop: %d -> %d", sentAfterStop, got)
	}
}

func TestController_CaptureFramesReachChannel(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.controller.StartRecording(ctx, "jarvis"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}

	deadline := time.After(time.Second)
	for rig.channel.sentCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no capture frame reached the channel")
		case <-time.After(5 * time.Millisecond):
		}
	}

	rig.controller.StopRecording()
}

func TestController_ErrorMarksTurnNotSession(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.controller.StartRecording(ctx, "jarvis"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	rig.controller.StopRecording()

	rig.channel.deliver(voice.TranscriptReady{Text: "hello"})
	rig.channel.deliver(voice.ErrorEvent{Message: "tts unavailable"})

	msgs := rig.controller.Messages()
	if !msgs[len(msgs)-1].Failed {
		t.Error("Expected the open turn to be marked failed")
	}
	if got := rig.controller.State(); got != StateIdle {
		t.Errorf("Expected idle after turn error, got %v", got)
	}
	if rig.channel.closed {
		t.Error("A turn error must not close the session channel")
	}

	// The next turn on the same session still works.
	rig.channel.deliver(voice.TranscriptReady{Text: "again"})
	rig.channel.deliver(voice.ResponseChunk{Text: "ok"})

	msgs = rig.controller.Messages()
	if got := msgs[len(msgs)-1].Text; got != "ok" {
		t.Errorf("Expected follow-up turn to stream, got %q", got)
	}
}

func TestController_TransportFailureWhileRecording(t *testing.T) {
	rig := newTestRig(t)
	rig.channel.failSendAfter = 2
	ctx := context.Background()

	states := make(chan State, 8)
	rig.controller.OnStateChange(func(s State) { states <- s })

	if err := rig.controller.StartRecording(ctx, "jarvis"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}

	// The failure arrives on the frame pump's own goroutine; the turn
	// must still fail over to idle instead of wedging.
	deadline := time.After(2 * time.Second)
waitIdle:
	for {
		select {
		case s := <-states:
			if s == StateIdle {
				break waitIdle
			}
		case <-deadline:
			t.Fatal("turn failure never reported after a mid-recording send error")
		}
	}

	msgs := rig.controller.Messages()
	if len(msgs) == 0 || !msgs[len(msgs)-1].Failed {
		t.Error("Expected the interrupted turn to be marked failed")
	}

	// The microphone is released shortly after.
	release := time.After(2 * time.Second)
	for {
		if err := rig.controller.StopRecording(); errors.Is(err, ErrNotRecording) {
			break
		}
		select {
		case <-release:
			t.Fatal("capture never released after the turn failed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestController_StartSupersedesPreviousSession(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.controller.StartRecording(ctx, "jarvis"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	rig.controller.StopRecording()
	oldChannel := rig.channel

	// New recording supersedes the draining session.
	rig.channel = &fakeChannel{}
	if err := rig.controller.StartRecording(ctx, "atlas"); err != nil {
		t.Fatalf("Second StartRecording failed: %v", err)
	}

	if !oldChannel.closed {
		t.Error("Superseded session channel must be closed")
	}

	// A stale event from the old session must not reach the log.
	before := len(rig.controller.Messages())
	oldChannel.deliver(voice.TranscriptReady{Text: "stale"})
	if got := len(rig.controller.Messages()); got != before {
		t.Error("Stale-session event mutated the message log")
	}

	if got := rig.controller.ActiveAgent(); got != "atlas" {
		t.Errorf("Expected active agent atlas, got %q", got)
	}
}

func TestController_OpenFailureLeavesIdle(t *testing.T) {
	rig := newTestRig(t)
	rig.channel.openErr = voice.NewConnectionError("dial failed", errors.New("refused"), true)

	err := rig.controller.StartRecording(context.Background(), "jarvis")
	if err == nil {
		t.Fatal("Expected open failure")
	}

	var connErr *voice.ConnectionError
	if !errors.As(err, &connErr) {
		t.Errorf("Expected ConnectionError, got %T", err)
	}
	if got := rig.controller.State(); got != StateIdle {
		t.Errorf("Expected idle after failed open, got %v", got)
	}
	if got := rig.controller.ActiveAgent(); got != "" {
		t.Errorf("Expected no session, got agent %q", got)
	}
}

func TestController_StopWithoutRecording(t *testing.T) {
	rig := newTestRig(t)
	if err := rig.controller.StopRecording(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording, got: %v", err)
	}
}

func TestController_RecordSharesLog(t *testing.T) {
	rig := newTestRig(t)

	rig.controller.Record(RoleUser, "colin", "typed question")
	rig.controller.Record(RoleAssistant, "colin", "typed answer")

	msgs := rig.controller.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Agent != "colin" || msgs[1].Role != RoleAssistant {
		t.Errorf("Unexpected log contents: %+v", msgs)
	}
}

func TestController_StateListener(t *testing.T) {
	rig := newTestRig(t)

	var mu sync.Mutex
	var states []State
	rig.controller.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	ctx := context.Background()
	if err := rig.controller.StartRecording(ctx, "jarvis"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	rig.controller.StopRecording()
	rig.channel.deliver(voice.TranscriptReady{Text: "hi"})

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateRecording, StateAwaitingTranscript, StateStreaming}
	if len(states) != len(want) {
		t.Fatalf("Expected %d transitions, got %v", len(want), states)
	}
	for i, s := range want {
		if states[i] != s {
			t.Errorf("Transition %d: expected %v, got %v", i, s, states[i])
		}
	}
}
