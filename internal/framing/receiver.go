package framing

import (
	"fmt"
	"sync"
)

// Handler is invoked once per fully reassembled, in-order payload
// delivered on a stream.
type Handler func(stream Stream, payload []byte)

type assembly struct {
	fragCount int
	fragments [][]byte
	have      int
}

type streamState struct {
	expectedInSeq uint64
	pending       map[uint64][]byte
	dedupe        map[uint64]struct{}
	assembling    map[uint64]*assembly
}

func newStreamState() *streamState {
	return &streamState{
		pending:    make(map[uint64][]byte),
		dedupe:     make(map[uint64]struct{}),
		assembling: make(map[uint64]*assembly),
	}
}

// Receiver reassembles fragments into ordered, deduplicated payloads
// per stream within one session (spec §4.6 "Receiver").
type Receiver struct {
	sessionID string

	mu      sync.Mutex
	streams map[Stream]*streamState
}

// NewReceiver creates a Receiver for one session.
func NewReceiver(sessionID string) *Receiver {
	return &Receiver{sessionID: sessionID, streams: make(map[Stream]*streamState)}
}

// Accept processes one inbound envelope, delivering any payloads that
// become ready (in sequence) to handler. Envelopes for a different
// session are rejected.
func (r *Receiver) Accept(e Envelope, handler Handler) error {
	if e.SessionID != r.sessionID {
		return fmt.Errorf("envelope session %q does not match receiver session %q", e.SessionID, r.sessionID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.streams[e.Stream]
	if !ok {
		st = newStreamState()
		r.streams[e.Stream] = st
	}

	// step 3: already delivered (seq < expected) or already in dedupe set.
	if e.Seq < st.expectedInSeq {
		return nil
	}
	if _, seen := st.dedupe[e.Seq]; seen {
		return nil
	}

	// step 4: bounded reorder window.
	if e.Seq-st.expectedInSeq > ReorderWindow {
		return nil
	}

	frag, err := decodeFragmentPayload(e.PayloadB64)
	if err != nil {
		return fmt.Errorf("decode fragment payload: %w", err)
	}

	asm, inProgress := st.assembling[e.Seq]
	if inProgress && asm.fragCount != e.FragCount {
		// step 5: disagreement on frag_count discards the stale assembly.
		delete(st.assembling, e.Seq)
		inProgress = false
	}
	if !inProgress {
		asm = &assembly{fragCount: e.FragCount, fragments: make([][]byte, e.FragCount)}
		st.assembling[e.Seq] = asm
	}
	if e.FragIndex < 0 || e.FragIndex >= asm.fragCount {
		return fmt.Errorf("fragment index %d out of range [0,%d)", e.FragIndex, asm.fragCount)
	}
	if asm.fragments[e.FragIndex] == nil {
		asm.fragments[e.FragIndex] = frag
		asm.have++
	}

	if asm.have < asm.fragCount {
		return nil
	}

	// step 6: all fragments present, form the complete payload and park it.
	complete := joinFragments(asm.fragments)
	delete(st.assembling, e.Seq)
	st.pending[e.Seq] = complete

	// step 7: drain in sequence.
	for {
		payload, ok := st.pending[st.expectedInSeq]
		if !ok {
			break
		}
		delete(st.pending, st.expectedInSeq)
		st.dedupe[st.expectedInSeq] = struct{}{}
		handler(e.Stream, payload)
		st.expectedInSeq++
	}

	pruneDedupe(st)
	return nil
}

func joinFragments(frags [][]byte) []byte {
	total := 0
	for _, f := range frags {
		total += len(f)
	}
	out := make([]byte, 0, total)
	for _, f := range frags {
		out = append(out, f...)
	}
	return out
}

// pruneDedupe drops dedupe entries older than expected_in_seq - ReorderWindow.
func pruneDedupe(st *streamState) {
	if st.expectedInSeq <= ReorderWindow {
		return
	}
	floor := st.expectedInSeq - ReorderWindow
	for seq := range st.dedupe {
		if seq < floor {
			delete(st.dedupe, seq)
		}
	}
}
