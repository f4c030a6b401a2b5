// Package call implements the call signaling state machine layered on
// top of MLS application messages (spec §4.3): invite, accept, reject,
// and end, with at most one active call per daemon.
//
// Grounded on the teacher's internal/agent request lifecycle — a single
// active operation held behind one owner, advanced only through public
// methods — adapted here from "one in-flight LLM turn" to "one active
// call".
package call

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is one value of the call state machine (spec §4.3).
type Status string

const (
	StatusIdle     Status = "idle"
	StatusOffered  Status = "offered"
	StatusAccepted Status = "accepted"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
)

// Track describes one media-transport track carried by an invite.
type Track struct {
	Name  string
	Codec string
}

// MediaCoords are the media-transport coordinates carried by an invite
// or assigned on accept (spec §3 CallState).
type MediaCoords struct {
	TransportURL  string
	PublishPath   string
	SubscribePath string
	Tracks        []Track
}

// relayAuthPattern matches the capv1_<64 hex chars> token format (spec
// §4.3 "Relay-auth validation").
var relayAuthPattern = regexp.MustCompile(`^capv1_[0-9a-fA-F]{64}$`)

// ValidRelayAuth reports whether token is a well-formed relay_auth
// credential.
func ValidRelayAuth(token string) bool {
	return relayAuthPattern.MatchString(token)
}

// State is the single active call's full bookkeeping (spec §3 CallState).
type State struct {
	CallID       string
	PeerPubkey   string
	NostrGroupID string
	Media        MediaCoords
	Status       Status

	TxFrames  int64
	RxFrames  int64
	RxDropped int64

	createdAt time.Time
}

// ErrBusy is returned by Invite when a call is already in progress.
var ErrBusy = fmt.Errorf("busy")

// ErrUnsupportedVideo is returned by Invite when any track's codec is
// neither "opus" nor empty.
var ErrUnsupportedVideo = fmt.Errorf("unsupported_video")

// ErrNoActiveCall is returned by operations that require an active call
// that does not match or does not exist.
var ErrNoActiveCall = fmt.Errorf("no active call")

// ErrAuthFailed is returned by Accept when relay_auth is missing or malformed.
var ErrAuthFailed = fmt.Errorf("auth_failed")

// Machine owns the single active CallState and serializes its
// transitions (spec §3 invariant: "at most one active call at any time").
type Machine struct {
	mu    sync.Mutex
	state *State
}

// New creates an idle call machine.
func New() *Machine {
	return &Machine{}
}

// Snapshot returns a copy of the current state, or nil if idle.
func (m *Machine) Snapshot() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	s := *m.state
	return &s
}

// hasVideoTrack reports whether any track in coords is non-audio. The
// core only supports a single inbound audio track (spec §4.3).
func hasVideoTrack(coords MediaCoords) bool {
	for _, t := range coords.Tracks {
		if t.Codec != "opus" && t.Codec != "" {
			return true
		}
	}
	return false
}

// Invite handles an inbound call.invite. Returns the new Offered state,
// or ErrBusy/ErrUnsupportedVideo if the invite must be auto-rejected
// without surfacing call_invite_received (spec §4.3 transition table).
func (m *Machine) Invite(peerPubkey, nostrGroupID string, coords MediaCoords) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hasVideoTrack(coords) {
		return nil, ErrUnsupportedVideo
	}
	if m.state != nil && m.state.Status != StatusIdle && m.state.Status != StatusEnded {
		return nil, ErrBusy
	}

	s := &State{
		CallID:       uuid.NewString(),
		PeerPubkey:   peerPubkey,
		NostrGroupID: nostrGroupID,
		Media:        coords,
		Status:       StatusOffered,
		createdAt:    time.Now(),
	}
	m.state = s
	out := *s
	return &out, nil
}

// Accept moves an Offered call to Accepted after validating relay_auth.
// On auth failure the call returns to Idle (spec §4.3).
func (m *Machine) Accept(callID, relayAuth string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil || m.state.CallID != callID || m.state.Status != StatusOffered {
		return nil, ErrNoActiveCall
	}
	if !ValidRelayAuth(relayAuth) {
		m.state = nil
		return nil, ErrAuthFailed
	}
	m.state.Status = StatusAccepted
	out := *m.state
	return &out, nil
}

// Reject discards an Offered call, returning to Idle.
func (m *Machine) Reject(callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil || m.state.CallID != callID {
		return ErrNoActiveCall
	}
	m.state = nil
	return nil
}

// MarkActive transitions Accepted to Active on the first media frame
// (spec §4.3). No-op if already Active or not Accepted.
func (m *Machine) MarkActive(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil && m.state.CallID == callID && m.state.Status == StatusAccepted {
		m.state.Status = StatusActive
	}
}

// End terminates the active call from any non-idle status. Returns the
// final snapshot so the caller can emit call_session_ended once.
func (m *Machine) End(callID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil || m.state.CallID != callID {
		return nil, ErrNoActiveCall
	}
	out := *m.state
	out.Status = StatusEnded
	m.state = nil
	return &out, nil
}

// RecordTx increments the outbound frame counter for call_debug.
func (m *Machine) RecordTx(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil && m.state.CallID == callID {
		m.state.TxFrames++
	}
}

// RecordRx increments the inbound frame counter for call_debug, and
// transitions Accepted->Active on first receipt.
func (m *Machine) RecordRx(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil && m.state.CallID == callID {
		m.state.RxFrames++
		if m.state.Status == StatusAccepted {
			m.state.Status = StatusActive
		}
	}
}

// RecordRxDropped increments the dropped-frame counter for call_debug.
func (m *Machine) RecordRxDropped(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil && m.state.CallID == callID {
		m.state.RxDropped++
	}
}

// Active reports whether a call is in progress (non-idle, non-ended).
func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != nil
}
