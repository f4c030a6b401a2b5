// Package framing tunnels a full-duplex, ordered, reliable byte-stream
// (a secondary host-side RPC) through MLS application messages, one MLS
// message per fragment. Grounded in spirit on the pack's other sequenced
// request/response transports — steveyegge-beads' internal/rpc
// request/response correlation and internal/jsonl's line-buffered
// reassembly — for the "re-buffer partial payloads across deliveries"
// shape, since the teacher has no direct analog for a tunneled
// fragment/reorder transport.
package framing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Stream identifies which logical channel a fragment belongs to within
// a session.
type Stream string

const (
	StreamControl     Stream = "control"
	StreamRPCRequest  Stream = "rpc_request"
	StreamRPCResponse Stream = "rpc_response"
	StreamRPCEvent    Stream = "rpc_event"
)

// ProtocolVersion is the envelope's wire version (v=1).
const ProtocolVersion = 1

// DefaultMaxFragmentBytes is the default fragment payload ceiling,
// tuned for relays that reject very large events.
const DefaultMaxFragmentBytes = 6000

// ReorderWindow bounds how far ahead of expected_in_seq a fragment may
// land before it is dropped as unreassemblable.
const ReorderWindow = 4096

// Envelope is one wire fragment (spec §4.6 "Envelope shape").
type Envelope struct {
	V          int    `json:"v"`
	SessionID  string `json:"session_id"`
	Stream     Stream `json:"stream"`
	Seq        uint64 `json:"seq"`
	FragIndex  int    `json:"frag_index"`
	FragCount  int    `json:"frag_count"`
	PayloadB64 string `json:"payload_b64"`
}

// ControlKind is the discriminator for control-stream payloads (open,
// open_ack, ping, pong, close).
type ControlKind string

const (
	ControlOpen    ControlKind = "open"
	ControlOpenAck ControlKind = "open_ack"
	ControlPing    ControlKind = "ping"
	ControlPong    ControlKind = "pong"
	ControlClose   ControlKind = "close"
)

// ControlMessage is the JSON payload carried on StreamControl.
type ControlMessage struct {
	Kind ControlKind `json:"kind"`
}

// MarshalEnvelope encodes a fragment as its wire JSON form.
func MarshalEnvelope(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope decodes a wire fragment, rejecting mismatched
// protocol versions (spec §4.6 step 2).
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if e.V != ProtocolVersion {
		return Envelope{}, fmt.Errorf("unsupported envelope version %d", e.V)
	}
	return e, nil
}

func encodeFragmentPayload(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeFragmentPayload(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
