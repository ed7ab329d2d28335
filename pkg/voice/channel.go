package voice

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ChannelState describes the lifecycle of a duplex voice channel.
type ChannelState int

const (
	// StateClosed is the initial and terminal state.
	StateClosed ChannelState = iota

	// StateConnecting means the handshake is in progress.
	StateConnecting

	// StateOpen means frames may be sent and events are flowing.
	StateOpen

	// StateClosing means an explicit Close is in progress.
	StateClosing
)

// String returns a human-readable state name.
func (s ChannelState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// gatewayPath is appended to the configured base URL at open time.
const gatewayPath = "/ws/voice"

// Channel is a persistent duplex connection to the voice gateway. It
// carries raw binary audio frames outbound and delivers inbound events
// serially to a single handler.
//
// Send is deliberately fire-and-forget: outbound frames are never
// queued, and sends on a non-open channel are silent no-ops. Transport
// failures surface as an ErrorEvent on the handler, after which the
// channel is closed.
type Channel struct {
	config *Config
	logger *slog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     ChannelState
	onEvent   func(Event)
	cancelCtx context.CancelFunc

	// writeMu serializes frame writes; the websocket allows only one
	// concurrent writer.
	writeMu sync.Mutex

	framesSent     atomic.Int64
	eventsReceived atomic.Int64
}

// NewChannel creates a channel for one voice session. The channel is
// single-use: after Close it cannot be reopened.
func NewChannel(opts ...Option) (*Channel, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Channel{
		config: cfg,
		logger: cfg.Logger.With("component", "voice.channel", "agent", cfg.AgentID),
		state:  StateClosed,
	}, nil
}

// OnEvent sets the inbound event handler. Events are delivered one at a
// time, in arrival order, from a single goroutine. Must be set before
// Open; changing it mid-session races with delivery.
func (c *Channel) OnEvent(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// Open establishes the connection, scoped to the configured agent.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.state = StateConnecting
	c.mu.Unlock()

	wsURL, err := c.gatewayURL()
	if err != nil {
		c.setState(StateClosed)
		return err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.Timeout,
	}

	c.logger.Info("opening voice channel", "url", wsURL)

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		c.setState(StateClosed)
		if resp != nil {
			return NewConnectionError(
				fmt.Sprintf("dial failed with status %d", resp.StatusCode),
				err,
				resp.StatusCode >= 500,
			)
		}
		return NewConnectionError("dial failed", err, true)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	c.mu.Lock()
	c.conn = conn
	c.state = StateOpen
	c.cancelCtx = cancel
	c.mu.Unlock()

	go c.readPump(pumpCtx)
	go c.pingLoop(pumpCtx, conn)

	c.logger.Info("voice channel open")

	return nil
}

// gatewayURL builds the websocket URL from the configured base. An
// http(s) base is rewritten to ws(s) so callers can pass API base URLs
// unchanged.
func (c *Channel) gatewayURL() (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("voice: invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("voice: unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + gatewayPath

	q := u.Query()
	q.Set("agent", c.config.AgentID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Send transmits one binary audio frame. Frames are never buffered: if
// the channel is not open the frame is dropped silently, favoring low
// latency over durability. A transport failure closes the channel and
// surfaces an ErrorEvent on the handler.
func (c *Channel) Send(frame []byte) {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateOpen || conn == nil {
		return
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := conn.WriteMessage(websocket.BinaryMessage, frame)
	c.writeMu.Unlock()

	if err != nil {
		c.logger.Error("frame send failed", "error", err)
		c.teardown()
		// Deliver off the caller's goroutine: the handler may stop the
		// frame producer that called Send, and would wait on itself.
		go c.emit(ErrorEvent{
			Message: "send failed",
			Cause:   NewConnectionError("send failed", err, true),
		})
		return
	}

	c.framesSent.Add(1)
}

// IsOpen returns true if the channel is open.
func (c *Channel) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateOpen
}

// State returns the current channel state.
func (c *Channel) State() ChannelState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// AgentID returns the agent the session is scoped to.
func (c *Channel) AgentID() string {
	return c.config.AgentID
}

// Close shuts the channel down. Idempotent. Future sends become silent
// no-ops and the event handler is detached; audio already handed to the
// caller is unaffected.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosing

	if c.cancelCtx != nil {
		c.cancelCtx()
	}

	conn := c.conn
	c.conn = nil
	c.onEvent = nil
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		conn.Close()
	}

	c.logger.Info("voice channel closed",
		"frames_sent", c.framesSent.Load(),
		"events_received", c.eventsReceived.Load(),
	)

	return nil
}

// readPump delivers inbound events serially until the connection dies.
func (c *Channel) readPump(ctx context.Context) {
	defer c.teardown()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("voice channel closed by peer")
				return
			}
			// A read error after local Close is expected teardown noise.
			if c.State() == StateClosed {
				return
			}
			c.logger.Error("read error", "error", err)
			c.teardown()
			c.emit(ErrorEvent{
				Message: "transport failure",
				Cause:   NewConnectionError("read failed", err, true),
			})
			return
		}

		c.eventsReceived.Add(1)

		event, err := parseEvent(messageType, data)
		if err != nil {
			c.logger.Warn("dropping malformed event", "error", err)
			continue
		}

		c.emit(event)
	}
}

// pingLoop keeps an idle session alive. A stalled or quiet backend
// produces no events, but its pongs keep extending the read deadline,
// so wire silence alone never kills the channel.
func (c *Channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.ReadTimeout * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (c *Channel) setState(s ChannelState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// teardown moves an open channel to closed after a transport failure or
// peer close, without the close handshake.
func (c *Channel) teardown() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// emit delivers an event to the handler, if one is attached.
func (c *Channel) emit(event Event) {
	c.mu.RLock()
	fn := c.onEvent
	c.mu.RUnlock()
	if fn != nil {
		fn(event)
	}
}
