// Package chat implements the text-only conversational path: one
// request, one reply, with a thread identifier carried for continuity.
// It shares nothing with the voice pipeline except the rendered
// message log.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/advisorlab/go-jarvis/internal/httpc"
)

// ErrEmptyMessage indicates Send was called with no text.
var ErrEmptyMessage = errors.New("chat: empty message")

// Request is the wire form of one chat exchange.
type Request struct {
	Message  string `json:"message"`
	Agent    string `json:"agent"`
	ThreadID string `json:"thread_id,omitempty"`
}

// Response is the backend's reply. ThreadID is echoed back on
// subsequent requests for conversational continuity.
type Response struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
	Agent    string `json:"agent"`
}

// Client talks to the /api/chat endpoint. It remembers the thread
// identifier from the first reply so follow-up messages land in the
// same conversation.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu       sync.Mutex
	threadID string
}

// NewClient creates a chat client for the given API base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    httpc.Client,
		logger:  logger.With("component", "chat.client"),
	}
}

// Send posts one message to agent and returns the reply. The thread
// identifier is empty on the first call and carried automatically
// afterwards.
func (c *Client) Send(ctx context.Context, agent, message string) (*Response, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	threadID := c.threadID
	c.mu.Unlock()

	body, err := json.Marshal(Request{
		Message:  message,
		Agent:    agent,
		ThreadID: threadID,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chat: unexpected status %d: %s", resp.StatusCode, data)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chat: decode response: %w", err)
	}

	if out.ThreadID != "" {
		c.mu.Lock()
		c.threadID = out.ThreadID
		c.mu.Unlock()
	}

	c.logger.Debug("chat exchange complete",
		"agent", agent,
		"thread_id", out.ThreadID,
	)

	return &out, nil
}

// ThreadID returns the current conversation thread, "" before the
// first reply.
func (c *Client) ThreadID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threadID
}

// ResetThread starts a fresh conversation on the next Send.
func (c *Client) ResetThread() {
	c.mu.Lock()
	c.threadID = ""
	c.mu.Unlock()
}
