package voice

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Event is one inbound occurrence on the duplex channel. Exactly one of
// the concrete types below is delivered per wire message, in arrival
// order, to a single handler.
type Event interface {
	// Kind returns a short discriminator, useful for logging.
	Kind() string
}

// TranscriptReady carries the finalized recognition of the user's
// utterance. Exactly one begins each turn.
type TranscriptReady struct {
	Text string
}

// Kind returns "transcript".
func (TranscriptReady) Kind() string { return "transcript" }

// ResponseChunk is an incremental slice of the assistant's textual
// reply. Chunks concatenate verbatim in arrival order.
type ResponseChunk struct {
	Text string
}

// Kind returns "response_chunk".
func (ResponseChunk) Kind() string { return "response_chunk" }

// AudioChunk is a slice of synthesized speech: mono 16-bit PCM,
// little-endian, at the fixed output sample rate.
type AudioChunk struct {
	PCM []byte
}

// Kind returns "audio_chunk".
func (AudioChunk) Kind() string { return "audio_chunk" }

// ErrorEvent reports a pipeline failure. It terminates the current
// turn, not the session: subsequent turns remain possible.
type ErrorEvent struct {
	Message string

	// Cause is set when the failure originated locally (for example a
	// transport read error) rather than as a backend "error" envelope.
	Cause error
}

// Kind returns "error".
func (ErrorEvent) Kind() string { return "error" }

// envelope is the JSON wire form of textual events. Binary messages
// carry no envelope at all.
type envelope struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// Wire discriminators for the JSON envelope.
const (
	typeTranscript    = "stt_output"
	typeAgentChunk    = "agent_chunk"
	typeErrorEnvelope = "error"
)

// parseEvent decodes a single wire message into an Event. Binary
// messages are raw PCM audio; text messages are JSON envelopes
// discriminated by their "type" field.
func parseEvent(messageType int, data []byte) (Event, error) {
	if messageType == websocket.BinaryMessage {
		pcm := make([]byte, len(data))
		copy(pcm, data)
		return AudioChunk{PCM: pcm}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("voice: malformed envelope: %w", err)
	}

	switch env.Type {
	case typeTranscript:
		return TranscriptReady{Text: env.Text}, nil
	case typeAgentChunk:
		return ResponseChunk{Text: env.Text}, nil
	case typeErrorEnvelope:
		return ErrorEvent{Message: env.Message}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, env.Type)
	}
}
