package actor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/suhailsaqan/pika/internal/call"
	"github.com/suhailsaqan/pika/internal/framing"
	"github.com/suhailsaqan/pika/internal/obsbus"
	"github.com/suhailsaqan/pika/internal/orchestrator"
	"github.com/suhailsaqan/pika/internal/protocol"
)

// Sink implementation: translates orchestrator-originated events into
// stdout lines (spec §6.2) or hands framed-transport bytes to the
// active call's framing.Session.

func (a *Actor) OnWelcomeReceived(w orchestrator.WelcomeReceived) {
	a.emit(protocol.WelcomeReceivedEvent{
		Event:          "welcome_received",
		WrapperEventID: w.WrapperEventID,
		WelcomeEventID: w.WelcomeEventID,
		FromPubkey:     w.FromPubkey,
		NostrGroupID:   w.NostrGroupID,
		GroupName:      w.GroupName,
	})
}

func (a *Actor) OnMessageReceived(m orchestrator.MessageReceived) {
	a.emit(protocol.MessageReceivedEvent{
		Event:        "message_received",
		NostrGroupID: m.NostrGroupID,
		FromPubkey:   m.FromPubkey,
		Content:      m.Content,
		CreatedAt:    m.CreatedAt,
		MessageID:    m.MessageID,
	})
}

// OnCallSignal drives the call state machine from an inbound call
// envelope (spec §4.3) and emits the matching stdout event. Only
// "invite" and "end" originate from a peer; "accept"/"reject" are
// local command-driven transitions the actor publishes itself.
func (a *Actor) OnCallSignal(s orchestrator.CallSignalReceived) {
	env := s.Envelope
	switch env.Type {
	case "invite":
		coords, relayAuth, err := orchestrator.ParseInviteBody(env.Body)
		if err != nil {
			a.logger.Warn("malformed call invite body", "error", err)
			return
		}
		state, err := a.calls.Invite(s.FromPubkey, s.NostrGroupID, coords)
		switch {
		case errors.Is(err, call.ErrUnsupportedVideo):
			a.autoRejectInvite(s.NostrGroupID, env.CallID, "unsupported_video")
			return
		case errors.Is(err, call.ErrBusy):
			a.autoRejectInvite(s.NostrGroupID, env.CallID, "busy")
			return
		case err != nil:
			a.logger.Warn("call invite rejected", "error", err)
			return
		}

		a.mu.Lock()
		a.peerCallID[env.CallID] = state.CallID
		a.relayAuth[state.CallID] = relayAuth
		a.mu.Unlock()

		a.emit(protocol.CallInviteReceivedEvent{
			Event:        "call_invite_received",
			CallID:       state.CallID,
			FromPubkey:   s.FromPubkey,
			NostrGroupID: s.NostrGroupID,
		})
	case "end":
		a.mu.Lock()
		callID, ok := a.peerCallID[env.CallID]
		a.mu.Unlock()
		if !ok {
			callID = env.CallID
		}
		a.endCallSession(callID, "peer_ended")
	default:
		a.logger.Debug("ignoring call envelope", "type", env.Type, "call_id", env.CallID)
	}
}

// autoRejectInvite publishes a reject envelope without ever surfacing
// call_invite_received (spec §4.3 "unchanged"/auto-reject rows).
func (a *Actor) autoRejectInvite(nostrGroupID, peerCallID, reason string) {
	_, err := a.orch.PublishCallSignal(context.Background(), nostrGroupID, orchestrator.CallEnvelope{
		Type: "reject", CallID: peerCallID, Body: mustMarshalReject(reason),
	})
	if err != nil {
		a.logger.Warn("auto-reject publish failed", "reason", reason, "error", err)
	}
}

// OnFramedEnvelope routes one tunneled wire envelope (spec §4.6) to the
// framing.Session bound to its call, if one is active. There is no
// dedicated stdout event for this channel; traffic is observable via
// the framing source on the internal event bus.
func (a *Actor) OnFramedEnvelope(f orchestrator.FramedEnvelopeReceived) {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil || sess.nostrGroupID != f.NostrGroupID {
		return
	}
	if err := sess.session.Accept(f.Raw); err != nil {
		a.bus.Publish(obsbus.Event{Source: obsbus.SourceFraming, Kind: obsbus.KindFragmentDropped,
			Data: map[string]any{"session_id": sess.callID, "reason": err.Error()}})
	}
}

func mustMarshalReject(reason string) []byte {
	b, _ := json.Marshal(struct {
		Reason string `json:"reason"`
	}{Reason: reason})
	return b
}

// framingHandler returns the Handler passed to newCallSession: payloads
// on the rpc_* streams are logged to the observability bus since no
// host-facing command currently consumes the tunneled RPC traffic
// itself (spec §4.6 is ambient infrastructure, not a command surface).
func (a *Actor) framingHandler(callID string) framing.Handler {
	return func(stream framing.Stream, payload []byte) {
		a.bus.Publish(obsbus.Event{Source: obsbus.SourceFraming, Kind: "rpc_payload",
			Data: map[string]any{"call_id": callID, "stream": string(stream), "bytes": len(payload)}})
	}
}
