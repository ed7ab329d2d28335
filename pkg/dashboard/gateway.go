package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Turn is the result of one processed utterance: a transcript, the
// assistant's reply split into text chunks, and synthesized speech
// split into PCM16 chunks. Text and audio interleave on the wire in
// the order given here.
type Turn struct {
	Transcript  string
	TextChunks  []string
	AudioChunks [][]byte
}

// Engine turns one buffered utterance into a Turn. The real engine
// chains STT, an agent and TTS; a scripted one ships for development
// and tests.
type Engine interface {
	ProcessUtterance(ctx context.Context, agent string, pcm []byte) (*Turn, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, agent string, pcm []byte) (*Turn, error)

// ProcessUtterance implements Engine.
func (f EngineFunc) ProcessUtterance(ctx context.Context, agent string, pcm []byte) (*Turn, error) {
	return f(ctx, agent, pcm)
}

// ScriptedEngine is a deterministic Engine: the transcript reports the
// utterance size, the reply is canned per agent, and the audio is a
// short stretch of silence split into two chunks.
func ScriptedEngine() Engine {
	return EngineFunc(func(ctx context.Context, agent string, pcm []byte) (*Turn, error) {
		role, ok := agentRoles[agent]
		if !ok {
			return nil, fmt.Errorf("dashboard: unknown agent %q", agent)
		}

		// 125ms of silence at 24kHz per chunk.
		silence := make([]byte, 3000*2)

		return &Turn{
			Transcript: fmt.Sprintf("(%d bytes of speech)", len(pcm)),
			TextChunks: []string{
				fmt.Sprintf("This is %s, %s. ", agent, role),
				"I heard you and I am ready to help.",
			},
			AudioChunks: [][]byte{silence, silence},
		}, nil
	})
}

// wireEnvelope is the JSON form of textual gateway events, mirroring
// what the voice client parses.
type wireEnvelope struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// silenceWindow is how long the gateway waits without inbound frames
// before treating the buffered audio as a complete utterance.
const silenceWindow = 400 * time.Millisecond

// handleVoice serves one duplex voice session. Binary frames accumulate
// into an utterance; a pause ends the utterance and runs it through the
// engine, whose transcript/text/audio stream back interleaved. The
// connection survives engine errors; each turn stands alone.
func (s *Server) handleVoice(c *websocket.Conn) {
	agent := c.Query("agent", AgentJarvis)
	logger := s.logger.With("component", "dashboard.gateway", "agent", agent)
	logger.Info("voice session open")

	frames := make(chan []byte, 32)
	go func() {
		defer close(frames)
		for {
			messageType, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			buf := make([]byte, len(data))
			copy(buf, data)
			frames <- buf
		}
	}()

	var utterance []byte
	for {
		select {
		case data, ok := <-frames:
			if !ok {
				logger.Info("voice session closed")
				return
			}
			utterance = append(utterance, data...)

		case <-time.After(silenceWindow):
			if len(utterance) == 0 {
				continue
			}
			s.runTurn(c, logger, agent, utterance)
			utterance = nil
		}
	}
}

// runTurn processes one utterance and writes the turn's events back.
func (s *Server) runTurn(c *websocket.Conn, logger *slog.Logger, agent string, utterance []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	turn, err := s.engine.ProcessUtterance(ctx, agent, utterance)
	if err != nil {
		logger.Warn("engine failed", "error", err)
		s.writeEnvelope(c, wireEnvelope{Type: "error", Message: err.Error()})
		return
	}

	logger.Debug("turn processed",
		"utterance_bytes", len(utterance),
		"text_chunks", len(turn.TextChunks),
		"audio_chunks", len(turn.AudioChunks),
	)

	if !s.writeEnvelope(c, wireEnvelope{Type: "stt_output", Text: turn.Transcript}) {
		return
	}

	// Interleave text and audio the way a streaming pipeline would.
	for i := 0; i < len(turn.TextChunks) || i < len(turn.AudioChunks); i++ {
		if i < len(turn.TextChunks) {
			if !s.writeEnvelope(c, wireEnvelope{Type: "agent_chunk", Text: turn.TextChunks[i]}) {
				return
			}
		}
		if i < len(turn.AudioChunks) {
			if err := c.WriteMessage(websocket.BinaryMessage, turn.AudioChunks[i]); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEnvelope(c *websocket.Conn, env wireEnvelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		return false
	}
	return c.WriteMessage(websocket.TextMessage, data) == nil
}
