package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/advisorlab/go-jarvis/pkg/playback"
	"github.com/advisorlab/go-jarvis/pkg/voice"
)

// Controller is the orchestrating turn state machine. It starts and
// stops capture, opens and closes the voice channel, and routes inbound
// events to the message log and the playback scheduler.
//
// The controller enforces the single-session invariant: a second
// StartRecording while recording is refused, and a StartRecording after
// a finished turn supersedes the previous session, tearing it down
// first. Events from a superseded session are discarded, never mixed
// into the new one.
type Controller struct {
	cfg    *Config
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	closed     bool
	session    *session
	messages   []Message
	currentIdx int // open assistant placeholder, -1 when none

	onState  func(State)
	onChange func()
}

// NewController creates a controller in the Idle state.
func NewController(opts ...Option) *Controller {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "conversation.controller"),
		state:      StateIdle,
		currentIdx: -1,
	}
}

// OnStateChange sets the state transition listener. Called outside the
// controller lock, from whichever goroutine drove the transition.
func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// OnMessagesChanged sets the message log listener, notified after any
// append or update.
func (c *Controller) OnMessagesChanged(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State returns the current turn state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the conversation log.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// ActiveAgent returns the agent of the current session, or "".
func (c *Controller) ActiveAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.agent
}

// Record appends a message to the log on behalf of the text-only chat
// path, which shares nothing else with the voice path.
func (c *Controller) Record(role Role, agent, text string) Message {
	c.mu.Lock()
	msg := newMessage(role, agent, text)
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.notifyChange()
	return msg
}

// StartRecording opens a new session for agent and starts the
// microphone. Refused while already recording. A previous session still
// draining trailing events is superseded and torn down first.
//
// Capture starts only after the channel reports open, so the first
// utterance is never silently dropped.
func (c *Controller) StartRecording(ctx context.Context, agent string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateRecording {
		c.mu.Unlock()
		return ErrNotIdle
	}
	old := c.session
	c.session = nil
	c.mu.Unlock()

	if old != nil {
		old.teardown()
	}

	ch, err := c.cfg.NewChannel(agent)
	if err != nil {
		return err
	}

	device, err := c.cfg.NewDevice(ctx)
	if err != nil {
		_ = ch.Close()
		return err
	}

	sess := &session{
		agent:     agent,
		channel:   ch,
		scheduler: playback.NewScheduler(device, c.cfg.PlaybackSampleRate, c.cfg.Logger),
	}

	ch.OnEvent(func(e voice.Event) {
		c.handleEvent(sess, e)
	})

	// Publish the session before opening so no early event is lost.
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	if err := ch.Open(ctx); err != nil {
		c.dropSession(sess)
		sess.teardown()
		return err
	}

	src, err := c.cfg.NewSource()
	if err == nil {
		err = src.Start(ctx)
		if err != nil {
			_ = src.Close()
		}
	}
	if err != nil {
		c.dropSession(sess)
		sess.teardown()
		return err
	}

	pumpDone := make(chan struct{})
	sess.attachCapture(src, pumpDone)

	go func() {
		defer close(pumpDone)
		for frame := range src.Stream() {
			ch.Send(frame.Bytes())
		}
	}()

	c.setState(StateRecording)
	c.logger.Info("recording started", "agent", agent)

	return nil
}

// StopRecording releases the microphone. The channel stays open:
// transcript, response text and synthesized audio for the in-flight
// turn keep arriving and playing. No frame is sent after this returns.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	sess := c.session
	if sess == nil || !sess.capturing() {
		c.mu.Unlock()
		return ErrNotRecording
	}
	transition := c.state == StateRecording
	c.mu.Unlock()

	sess.stopCapture()

	if transition {
		c.setState(StateAwaitingTranscript)
	}
	c.logger.Info("recording stopped", "agent", sess.agent)

	return nil
}

// Close tears down the controller and any active session.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sess := c.session
	c.session = nil
	c.state = StateIdle
	c.mu.Unlock()

	if sess != nil {
		sess.teardown()
	}
	return nil
}

// handleEvent routes one inbound event. Events are delivered serially
// by the channel; an event from a superseded session is discarded.
func (c *Controller) handleEvent(sess *session, event voice.Event) {
	c.mu.Lock()
	if c.closed || c.session != sess {
		c.mu.Unlock()
		return
	}

	switch e := event.(type) {
	case voice.TranscriptReady:
		c.messages = append(c.messages, newMessage(RoleUser, sess.agent, e.Text))
		c.messages = append(c.messages, newMessage(RoleAssistant, sess.agent, ""))
		c.currentIdx = len(c.messages) - 1
		c.state = StateStreaming
		state := c.state
		c.mu.Unlock()
		c.notifyState(state)
		c.notifyChange()

	case voice.ResponseChunk:
		if c.currentIdx < 0 {
			// Chunk before any transcript: open a placeholder anyway so
			// no text is lost.
			c.messages = append(c.messages, newMessage(RoleAssistant, sess.agent, ""))
			c.currentIdx = len(c.messages) - 1
		}
		c.messages[c.currentIdx].Text += e.Text
		c.mu.Unlock()
		c.notifyChange()

	case voice.AudioChunk:
		sched := sess.scheduler
		c.mu.Unlock()
		sched.Schedule(e.PCM)

	case voice.ErrorEvent:
		c.failTurnLocked(sess, e)

	default:
		c.mu.Unlock()
	}
}

// failTurnLocked marks the current turn failed and returns the
// controller to Idle. The session stays alive unless the failure was a
// transport error, in which case the channel is already dead. Called
// with the lock held; releases it.
func (c *Controller) failTurnLocked(sess *session, e voice.ErrorEvent) {
	if c.currentIdx >= 0 {
		c.messages[c.currentIdx].Failed = true
	} else {
		msg := newMessage(RoleAssistant, sess.agent, e.Message)
		msg.Failed = true
		c.messages = append(c.messages, msg)
	}
	c.currentIdx = -1

	wasRecording := c.state == StateRecording
	c.state = StateIdle
	c.mu.Unlock()

	if wasRecording {
		// The error may arrive on the frame pump goroutine itself;
		// stopCapture waits for the pump, so it must not run inline.
		go sess.stopCapture()
	}

	var connErr *voice.ConnectionError
	if errors.As(e.Cause, &connErr) {
		c.logger.Error("turn failed: transport error", "agent", sess.agent, "error", e.Cause)
	} else {
		c.logger.Warn("turn failed", "agent", sess.agent, "message", e.Message)
	}

	c.notifyState(StateIdle)
	c.notifyChange()
}

// dropSession clears the published session if it is still sess.
func (c *Controller) dropSession(sess *session) {
	c.mu.Lock()
	if c.session == sess {
		c.session = nil
	}
	c.mu.Unlock()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notifyState(s)
}

func (c *Controller) notifyState(s State) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (c *Controller) notifyChange() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
