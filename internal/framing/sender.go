package framing

import (
	"fmt"
	"sync"
)

// Sender allocates strictly monotonic sequence numbers per stream and
// splits outbound payloads into fragments (spec §4.6 "Sender").
type Sender struct {
	sessionID       string
	maxFragmentSize int

	mu      sync.Mutex
	nextSeq map[Stream]uint64
}

// NewSender creates a Sender for one session. maxFragmentSize <= 0 uses
// DefaultMaxFragmentBytes.
func NewSender(sessionID string, maxFragmentSize int) *Sender {
	if maxFragmentSize <= 0 {
		maxFragmentSize = DefaultMaxFragmentBytes
	}
	return &Sender{
		sessionID:       sessionID,
		maxFragmentSize: maxFragmentSize,
		nextSeq:         make(map[Stream]uint64),
	}
}

// Send splits payload into ordered fragments for stream, allocating the
// next sequence number for that stream. Never reuses a sequence, even
// across calls.
func (s *Sender) Send(stream Stream, payload []byte) ([]Envelope, error) {
	s.mu.Lock()
	seq := s.nextSeq[stream]
	s.nextSeq[stream] = seq + 1
	s.mu.Unlock()

	return fragment(s.sessionID, stream, seq, payload, s.maxFragmentSize)
}

func fragment(sessionID string, stream Stream, seq uint64, payload []byte, maxFragmentSize int) ([]Envelope, error) {
	if maxFragmentSize <= 0 {
		return nil, fmt.Errorf("max fragment size must be positive")
	}
	if len(payload) == 0 {
		return []Envelope{{
			V: ProtocolVersion, SessionID: sessionID, Stream: stream, Seq: seq,
			FragIndex: 0, FragCount: 1, PayloadB64: encodeFragmentPayload(nil),
		}}, nil
	}

	fragCount := (len(payload) + maxFragmentSize - 1) / maxFragmentSize
	envelopes := make([]Envelope, 0, fragCount)
	for i := 0; i < fragCount; i++ {
		start := i * maxFragmentSize
		end := start + maxFragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		envelopes = append(envelopes, Envelope{
			V:          ProtocolVersion,
			SessionID:  sessionID,
			Stream:     stream,
			Seq:        seq,
			FragIndex:  i,
			FragCount:  fragCount,
			PayloadB64: encodeFragmentPayload(payload[start:end]),
		})
	}
	return envelopes, nil
}
