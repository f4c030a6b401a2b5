package framing

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// PingInterval is the sender-side heartbeat cadence.
const PingInterval = 10 * time.Second

// PongTimeout is how long a peer may go without a pong before the
// session is declared dead (spec §4.6 "heartbeat").
const PongTimeout = 30 * time.Second

// Transport is how a Session emits wire-encoded envelopes — typically
// an MLS application message publish on the bound call's group.
type Transport interface {
	SendEnvelope(data []byte) error
}

// Session is per-call bookkeeping for one tunneled envelope session
// (spec §4.6 "FramedSession"): session_id tied to the call UUID (or
// independent), sender/receiver state, and the heartbeat timer.
type Session struct {
	ID     string
	logger *slog.Logger

	sender   *Sender
	receiver *Receiver

	transport Transport
	handler   Handler

	mu       sync.Mutex
	lastPong time.Time
	opened   bool
	closed   bool

	cancel context.CancelFunc
}

// NewSession creates a session bound to transport, ready to send and
// receive fragments. Call Run to start the heartbeat loop.
func NewSession(id string, transport Transport, handler Handler, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:        id,
		logger:    logger.With("session_id", id),
		sender:    NewSender(id, DefaultMaxFragmentBytes),
		receiver:  NewReceiver(id),
		transport: transport,
		handler:   handler,
		lastPong:  time.Now(),
	}
}

// Send fragments and transmits an outbound payload on stream.
func (s *Session) Send(stream Stream, payload []byte) error {
	envs, err := s.sender.Send(stream, payload)
	if err != nil {
		return err
	}
	for _, e := range envs {
		data, err := MarshalEnvelope(e)
		if err != nil {
			return err
		}
		if err := s.transport.SendEnvelope(data); err != nil {
			return err
		}
	}
	return nil
}

// Open sends the control-stream `open` message that initiates the
// session; the peer's receiver replies with `open_ack` on first inbound
// envelope of a new session, or on explicit open.
func (s *Session) Open() {
	s.sendControl(ControlOpen)
}

// Accept processes one inbound wire envelope. Control-stream messages
// (open/open_ack/ping/pong/close) are handled internally; all other
// streams are delivered to the session's Handler.
func (s *Session) Accept(data []byte) error {
	e, err := UnmarshalEnvelope(data)
	if err != nil {
		return err
	}
	if e.SessionID != s.ID {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	firstEnvelope := !s.opened
	s.opened = true
	s.mu.Unlock()
	if firstEnvelope && e.Stream != StreamControl {
		s.sendControl(ControlOpenAck)
	}

	return s.receiver.Accept(e, func(stream Stream, payload []byte) {
		if stream == StreamControl {
			s.handleControl(payload)
			return
		}
		s.handler(stream, payload)
	})
}

func (s *Session) handleControl(payload []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Warn("malformed control payload", "error", err)
		return
	}

	switch msg.Kind {
	case ControlOpen:
		s.mu.Lock()
		s.opened = true
		s.mu.Unlock()
		s.sendControl(ControlOpenAck)
	case ControlOpenAck:
		s.mu.Lock()
		s.opened = true
		s.mu.Unlock()
	case ControlPing:
		s.sendControl(ControlPong)
	case ControlPong:
		s.mu.Lock()
		s.lastPong = time.Now()
		s.mu.Unlock()
	case ControlClose:
		s.Close()
	}
}

func (s *Session) sendControl(kind ControlKind) {
	if err := s.Send(StreamControl, mustMarshalControl(kind)); err != nil {
		s.logger.Warn("send control message", "kind", kind, "error", err)
	}
}

func mustMarshalControl(kind ControlKind) []byte {
	b, _ := json.Marshal(ControlMessage{Kind: kind})
	return b
}

// Run starts the 10s ping / 30s pong-timeout heartbeat loop. Returns
// when ctx is cancelled or a heartbeat timeout is detected.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sendControl(ControlPing)
			s.mu.Lock()
			sincePong := time.Since(s.lastPong)
			s.mu.Unlock()
			if sincePong > PongTimeout {
				s.logger.Warn("heartbeat timeout, terminating session", "since_pong", sincePong)
				s.Close()
				return context.DeadlineExceeded
			}
		}
	}
}

// Close tears down the session: the heartbeat loop stops, and pending
// fragments are discarded because Accept ignores every envelope that
// arrives after Close (spec §4.6 "Cancellation / close").
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
