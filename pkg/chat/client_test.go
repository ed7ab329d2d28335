package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestBackend(t *testing.T) (*httptest.Server, *[]Request) {
	t.Helper()

	var seen []Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		seen = append(seen, req)

		threadID := req.ThreadID
		if threadID == "" {
			threadID = "thread-1"
		}
		json.NewEncoder(w).Encode(Response{
			Response: "reply to: " + req.Message,
			ThreadID: threadID,
			Agent:    req.Agent,
		})
	}))

	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestClient_Send(t *testing.T) {
	srv, seen := newTestBackend(t)
	c := NewClient(srv.URL, nil)

	resp, err := c.Send(context.Background(), "jarvis", "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if resp.Response != "reply to: hello" {
		t.Errorf("Unexpected reply: %q", resp.Response)
	}
	if resp.Agent != "jarvis" {
		t.Errorf("Unexpected agent: %q", resp.Agent)
	}
	if (*seen)[0].ThreadID != "" {
		t.Error("First request must carry an empty thread ID")
	}
}

func TestClient_ThreadContinuity(t *testing.T) {
	srv, seen := newTestBackend(t)
	c := NewClient(srv.URL, nil)
	ctx := context.Background()

	if _, err := c.Send(ctx, "jarvis", "first"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := c.ThreadID(); got != "thread-1" {
		t.Fatalf("Expected thread-1 after first reply, got %q", got)
	}

	if _, err := c.Send(ctx, "jarvis", "second"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := (*seen)[1].ThreadID; got != "thread-1" {
		t.Errorf("Second request must echo the thread ID, got %q", got)
	}

	c.ResetThread()
	if _, err := c.Send(ctx, "jarvis", "third"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := (*seen)[2].ThreadID; got != "" {
		t.Errorf("Reset thread must start fresh, got %q", got)
	}
}

func TestClient_EmptyMessage(t *testing.T) {
	c := NewClient("http://localhost:1", nil)
	if _, err := c.Send(context.Background(), "jarvis", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got: %v", err)
	}
}

func TestClient_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent unavailable", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, nil)
	if _, err := c.Send(context.Background(), "jarvis", "hello"); err == nil {
		t.Fatal("Expected error on 502")
	}
}
