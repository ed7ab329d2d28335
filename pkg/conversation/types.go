package conversation

import (
	"time"

	"github.com/google/uuid"
)

// State is the controller's turn state. Exactly one session is ever
// active; transitions are driven by user actions and inbound events.
type State int

const (
	// StateIdle means no voice session is active.
	StateIdle State = iota

	// StateRecording means capture is running and frames are flowing
	// out on the channel.
	StateRecording

	// StateAwaitingTranscript means capture has stopped and the
	// controller is waiting for the finalized transcript.
	StateAwaitingTranscript

	// StateStreaming means the assistant's reply is arriving in chunks.
	StateStreaming
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateAwaitingTranscript:
		return "awaiting_transcript"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a message spoken or typed by the user.
	RoleUser Role = "user"

	// RoleAssistant marks a message produced by the assistant.
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation log. Voice and text turns
// share this log; it is the only state the two paths have in common.
type Message struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`

	// Role is the message author.
	Role Role `json:"role"`

	// Agent is the agent the message was exchanged with.
	Agent string `json:"agent"`

	// Text is the message content. For a streaming assistant message it
	// grows as chunks arrive.
	Text string `json:"text"`

	// Failed marks a turn that ended with a pipeline error.
	Failed bool `json:"failed,omitempty"`

	// CreatedAt is when the message was opened.
	CreatedAt time.Time `json:"created_at"`
}

func newMessage(role Role, agent, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Agent:     agent,
		Text:      text,
		CreatedAt: time.Now(),
	}
}
