// Package obsbus provides a publish/subscribe event bus for operational
// observability. Events flow from the daemon's components (relay client,
// call state machine, audio pipeline, framing transport) to subscribers
// (periodic call_debug emission, future metrics collectors). The bus is
// nil-safe: calling Publish on a nil *Bus is a no-op, so components do
// not need guard checks.
package obsbus

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceRelay identifies events from the relay client.
	SourceRelay = "relay"
	// SourceOrchestrator identifies events from MLS+relay orchestration.
	SourceOrchestrator = "orchestrator"
	// SourceCall identifies events from the call state machine.
	SourceCall = "call"
	// SourceAudio identifies events from the audio pipeline.
	SourceAudio = "audio"
	// SourceFraming identifies events from the framed envelope transport.
	SourceFraming = "framing"
)

// Kind constants describe the type of event within a source.
const (
	// KindConnected signals a relay connection came up.
	// Data: url.
	KindConnected = "connected"
	// KindDisconnected signals a relay connection dropped.
	// Data: url, error.
	KindDisconnected = "disconnected"
	// KindPublishFailed signals a per-relay publish rejection.
	// Data: url, event_id, reason.
	KindPublishFailed = "publish_failed"

	// KindDecryptFailed signals an MLS decrypt failure for an inbound
	// application message. Data: nostr_group_id, error.
	KindDecryptFailed = "decrypt_failed"
	// KindUnknownInnerKind signals an inner event kind the core does not
	// classify. Data: nostr_group_id, kind.
	KindUnknownInnerKind = "unknown_inner_kind"

	// KindTxFrame signals an outbound Opus frame was published during a call.
	// Data: call_id.
	KindTxFrame = "tx_frame"
	// KindRxFrame signals an inbound Opus frame was received during a call.
	// Data: call_id.
	KindRxFrame = "rx_frame"
	// KindRxDropped signals an inbound frame was dropped (decode failure
	// or backpressure). Data: call_id, reason.
	KindRxDropped = "rx_dropped"

	// KindHeartbeatTimeout signals a framed session's heartbeat lapsed.
	// Data: session_id.
	KindHeartbeatTimeout = "heartbeat_timeout"
	// KindFragmentDropped signals a framed envelope fragment was dropped
	// by the receiver (stale, duplicate, or out of reorder window).
	// Data: session_id, stream, seq, reason.
	KindFragmentDropped = "fragment_dropped"
)

// Event represents a single operational event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs. This allows
	// Unsubscribe to accept <-chan Event (the caller's view) without
	// an illegal type conversion.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full — drop the event rather than block.
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
