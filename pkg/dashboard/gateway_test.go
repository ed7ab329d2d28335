package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/advisorlab/go-jarvis/pkg/voice"
)

// startGateway listens on a real port and returns the base URL, since
// websocket upgrades need a live connection.
func startGateway(t *testing.T, port string, cfg Config) string {
	t.Helper()

	cfg.Listen = ":" + port
	s := NewServer(cfg)
	go s.Start()
	t.Cleanup(func() { s.Shutdown() })
	time.Sleep(100 * time.Millisecond)

	return "ws://localhost:" + port
}

func TestGateway_FullTurn(t *testing.T) {
	base := startGateway(t, "18090", Config{Workspace: t.TempDir()})

	c, err := voice.NewChannel(
		voice.WithBaseURL(base),
		voice.WithAgentID("jarvis"),
	)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}

	events := make(chan voice.Event, 32)
	c.OnEvent(func(e voice.Event) { events <- e })

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	// One utterance's worth of frames, then silence.
	frame := make([]byte, 8000)
	c.Send(frame)
	c.Send(frame)

	var transcript string
	var text string
	var audioChunks int

	deadline := time.After(5 * time.Second)
	for transcript == "" || audioChunks < 2 {
		select {
		case <-deadline:
			t.Fatalf("Incomplete turn: transcript=%q text=%q audio=%d", transcript, text, audioChunks)
		case e := <-events:
			switch ev := e.(type) {
			case voice.TranscriptReady:
				transcript = ev.Text
			case voice.ResponseChunk:
				text += ev.Text
			case voice.AudioChunk:
				audioChunks++
				if len(ev.PCM)%2 != 0 {
					t.Errorf("Audio chunk has odd byte count %d", len(ev.PCM))
				}
			case voice.ErrorEvent:
				t.Fatalf("Unexpected error event: %s", ev.Message)
			}
		}
	}

	if transcript != "(16000 bytes of speech)" {
		t.Errorf("Transcript = %q", transcript)
	}
	if text == "" {
		t.Error("Expected assistant text")
	}
}

func TestGateway_EngineErrorIsTurnScoped(t *testing.T) {
	failing := EngineFunc(func(ctx context.Context, agent string, pcm []byte) (*Turn, error) {
		return nil, errors.New("stt offline")
	})
	base := startGateway(t, "18091", Config{Workspace: t.TempDir(), Engine: failing})

	c, err := voice.NewChannel(
		voice.WithBaseURL(base),
		voice.WithAgentID("jarvis"),
	)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}

	events := make(chan voice.Event, 32)
	c.OnEvent(func(e voice.Event) { events <- e })

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	c.Send(make([]byte, 4000))

	select {
	case e := <-events:
		ev, ok := e.(voice.ErrorEvent)
		if !ok {
			t.Fatalf("Expected ErrorEvent, got %#v", e)
		}
		if ev.Message == "" {
			t.Error("Expected error message")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("No error event arrived")
	}

	// The session survives: a following utterance still gets a reply.
	if !c.IsOpen() {
		t.Error("Channel should remain open after a turn error")
	}
}

func TestGateway_UnknownAgent(t *testing.T) {
	base := startGateway(t, "18092", Config{Workspace: t.TempDir()})

	c, err := voice.NewChannel(
		voice.WithBaseURL(base),
		voice.WithAgentID("nobody"),
	)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}

	events := make(chan voice.Event, 32)
	c.OnEvent(func(e voice.Event) { events <- e })

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	c.Send(make([]byte, 4000))

	select {
	case e := <-events:
		if _, ok := e.(voice.ErrorEvent); !ok {
			t.Fatalf("Expected ErrorEvent for unknown agent, got %#v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("No error event arrived")
	}
}
