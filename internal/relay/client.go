// Package relay maintains WebSocket connections to a configurable set
// of Nostr-style relays: publishing events, subscribing by filter, and
// resubscribing automatically on reconnect (spec §2, §4.2).
//
// Grounded on the teacher's internal/signal.Client: the same
// request/response correlation-table idiom (here keyed by event ID for
// OK acknowledgements), the same dedicated-reader-goroutine-closes-done
// shutdown shape, translated from a subprocess JSON-RPC transport to a
// gorilla/websocket transport carrying Nostr protocol frames.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nbd-wtf/go-nostr"
)

// publishResult is delivered to a pending publish call once a relay
// sends an OK frame for the event ID, or the connection drops.
type publishResult struct {
	ok      bool
	message string
}

// conn is one live connection to a single relay URL.
type conn struct {
	url    string
	logger *slog.Logger

	mu      sync.Mutex
	ws      *websocket.Conn
	pending map[string]chan publishResult // event id -> waiter
	subs    map[string]nostr.Filter       // sub id -> filter, replayed on reconnect

	events chan taggedEvent
	closed chan struct{}
	once   sync.Once
}

type taggedEvent struct {
	relayURL string
	subID    string
	event    *nostr.Event
}

func newConn(url string, logger *slog.Logger) *conn {
	return &conn{
		url:     url,
		logger:  logger,
		pending: make(map[string]chan publishResult),
		subs:    make(map[string]nostr.Filter),
		events:  make(chan taggedEvent, 256),
		closed:  make(chan struct{}),
	}
}

// dial connects (or reconnects) the websocket and starts the read loop.
// Any subscriptions previously registered via subscribe are replayed.
func (c *conn) dial(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.ws = ws
	subs := make(map[string]nostr.Filter, len(c.subs))
	for id, f := range c.subs {
		subs[id] = f
	}
	c.mu.Unlock()

	go c.readLoop()

	for id, f := range subs {
		if err := c.writeREQ(id, f); err != nil {
			c.logger.Warn("relay resubscribe failed", "url", c.url, "sub_id", id, "error", err)
		}
	}
	return nil
}

// ping satisfies connwatch.ProbeFunc for the startup readiness probe:
// it reports an error unless a websocket is currently open. No frame is
// sent to the relay.
func (c *conn) ping(ctx context.Context) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return fmt.Errorf("relay %s not connected", c.url)
	}
	return nil
}

func (c *conn) readLoop() {
	defer func() {
		c.mu.Lock()
		for id, ch := range c.pending {
			ch <- publishResult{ok: false, message: "relay connection closed"}
			delete(c.pending, id)
		}
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws == nil {
			return
		}

		_, data, err := ws.ReadMessage()
		if err != nil {
			c.logger.Debug("relay read error", "url", c.url, "error", err)
			c.mu.Lock()
			c.ws = nil
			c.mu.Unlock()
			return
		}

		var frame []json.RawMessage
		if err := json.Unmarshal(data, &frame); err != nil || len(frame) == 0 {
			continue
		}
		var label string
		_ = json.Unmarshal(frame[0], &label)

		switch label {
		case "EVENT":
			if len(frame) < 3 {
				continue
			}
			var subID string
			_ = json.Unmarshal(frame[1], &subID)
			var ev nostr.Event
			if err := json.Unmarshal(frame[2], &ev); err != nil {
				continue
			}
			select {
			case c.events <- taggedEvent{relayURL: c.url, subID: subID, event: &ev}:
			default:
				c.logger.Warn("relay event channel full, dropping", "url", c.url)
			}
		case "OK":
			if len(frame) < 3 {
				continue
			}
			var id string
			var ok bool
			var msg string
			_ = json.Unmarshal(frame[1], &id)
			_ = json.Unmarshal(frame[2], &ok)
			if len(frame) > 3 {
				_ = json.Unmarshal(frame[3], &msg)
			}
			c.mu.Lock()
			ch, found := c.pending[id]
			if found {
				delete(c.pending, id)
			}
			c.mu.Unlock()
			if found {
				ch <- publishResult{ok: ok, message: msg}
			}
		case "EOSE", "NOTICE", "CLOSED":
			c.logger.Debug("relay control frame", "url", c.url, "label", label)
		}
	}
}

func (c *conn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return fmt.Errorf("relay %s not connected", c.url)
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) writeREQ(subID string, f nostr.Filter) error {
	return c.writeJSON([]any{"REQ", subID, f})
}

func (c *conn) writeCLOSE(subID string) error {
	return c.writeJSON([]any{"CLOSE", subID})
}

// publish sends an EVENT frame and waits (bounded by ctx) for the OK
// acknowledgement.
func (c *conn) publish(ctx context.Context, ev *nostr.Event) error {
	ch := make(chan publishResult, 1)
	c.mu.Lock()
	c.pending[ev.ID] = ch
	c.mu.Unlock()

	if err := c.writeJSON([]any{"EVENT", ev}); err != nil {
		c.mu.Lock()
		delete(c.pending, ev.ID)
		c.mu.Unlock()
		return err
	}

	select {
	case res := <-ch:
		if !res.ok {
			return fmt.Errorf("relay %s rejected event %s: %s", c.url, ev.ID, res.message)
		}
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, ev.ID)
		c.mu.Unlock()
		return ctx.Err()
	}
}

func (c *conn) subscribe(subID string, f nostr.Filter) error {
	c.mu.Lock()
	c.subs[subID] = f
	c.mu.Unlock()
	return c.writeREQ(subID, f)
}

func (c *conn) unsubscribe(subID string) {
	c.mu.Lock()
	delete(c.subs, subID)
	c.mu.Unlock()
	_ = c.writeCLOSE(subID)
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.ws != nil {
			_ = c.ws.Close()
		}
		c.mu.Unlock()
	})
}

// Client fans a publish out to every configured relay (tolerating
// per-relay failures) and merges all subscription events into a single
// deduplicated channel (spec §4.2 "Failure semantics").
type Client struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]*conn

	subMu  sync.Mutex
	nextID int64

	seenMu sync.Mutex
	seen   map[string]time.Time // event id -> first-seen time, for cross-relay dedupe

	events chan *nostr.Event

	collectMu  sync.Mutex
	collectors map[string]chan *nostr.Event // sub id -> dedicated channel, for SubscribeCollect
}

// New creates a Client with no relays. Call Connect to dial relay
// URLs; Connect may be called again later (e.g. from set_relays) to add
// more relays without losing existing connections.
func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:     logger,
		conns:      make(map[string]*conn),
		seen:       make(map[string]time.Time),
		events:     make(chan *nostr.Event, 512),
		collectors: make(map[string]chan *nostr.Event),
	}
}

// Connect dials each of the given URLs not already connected.
func (cl *Client) Connect(ctx context.Context, urls []string) {
	for _, u := range urls {
		cl.mu.RLock()
		_, exists := cl.conns[u]
		cl.mu.RUnlock()
		if exists {
			continue
		}

		c := newConn(u, cl.logger)
		cl.mu.Lock()
		cl.conns[u] = c
		cl.mu.Unlock()

		if err := c.dial(ctx); err != nil {
			cl.logger.Warn("relay initial dial failed, will retry in background", "url", u, "error", err)
		}
		go cl.pump(c)
		go cl.reconnectLoop(c)
	}
}

// pump forwards a conn's tagged events either to a dedicated collector
// channel (if te.subID was opened via SubscribeCollect) or into the
// merged, deduplicated channel shared by every other subscription.
// Routing collect-style subscriptions off the merged stream keeps them
// from racing the actor's own drainInbound consumer for the same
// events (spec §4.2, §8 "published key package is fetchable").
func (cl *Client) pump(c *conn) {
	for {
		select {
		case te, ok := <-c.events:
			if !ok {
				return
			}
			if cl.deliverToCollector(te.subID, te.event) {
				continue
			}
			if cl.markSeen(te.event.ID) {
				select {
				case cl.events <- te.event:
				default:
					cl.logger.Warn("relay merged event channel full, dropping")
				}
			}
		case <-c.closed:
			return
		}
	}
}

// deliverToCollector delivers ev to the per-subscription channel
// registered for subID, if any, and reports whether it did so.
func (cl *Client) deliverToCollector(subID string, ev *nostr.Event) bool {
	cl.collectMu.Lock()
	ch, ok := cl.collectors[subID]
	cl.collectMu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- ev:
	default:
		cl.logger.Warn("relay collector channel full, dropping", "sub_id", subID)
	}
	return true
}

func (cl *Client) markSeen(id string) bool {
	cl.seenMu.Lock()
	defer cl.seenMu.Unlock()
	if _, ok := cl.seen[id]; ok {
		return false
	}
	cl.seen[id] = time.Now()
	// Opportunistic prune; this map is small relative to call volume.
	if len(cl.seen) > 8192 {
		cutoff := time.Now().Add(-10 * time.Minute)
		for k, t := range cl.seen {
			if t.Before(cutoff) {
				delete(cl.seen, k)
			}
		}
	}
	return true
}

// reconnectLoop redials a dropped connection with backoff until closed.
func (cl *Client) reconnectLoop(c *conn) {
	delay := 2 * time.Second
	const maxDelay = 60 * time.Second
	for {
		select {
		case <-c.closed:
			return
		default:
		}
		c.mu.Lock()
		connected := c.ws != nil
		c.mu.Unlock()
		if connected {
			time.Sleep(time.Second)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.dial(ctx)
		cancel()
		if err != nil {
			cl.logger.Debug("relay reconnect failed", "url", c.url, "error", err, "next_retry", delay)
			select {
			case <-time.After(delay):
			case <-c.closed:
				return
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}
		cl.logger.Info("relay reconnected", "url", c.url)
		delay = 2 * time.Second
	}
}

// Events returns the merged, deduplicated stream of events delivered by
// any subscription on any relay.
func (cl *Client) Events() <-chan *nostr.Event {
	return cl.events
}

// Publish publishes ev to every configured relay and returns nil if at
// least one relay accepted it (spec §4.2 "Failure semantics"); returns
// an aggregate error only if every relay rejected or was unreachable.
func (cl *Client) Publish(ctx context.Context, ev *nostr.Event, relayURLs []string) error {
	targets := cl.targetConns(relayURLs)
	if len(targets) == 0 {
		return fmt.Errorf("no relays configured")
	}

	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, c := range targets {
		wg.Add(1)
		go func(i int, c *conn) {
			defer wg.Done()
			errs[i] = c.publish(ctx, ev)
		}(i, c)
	}
	wg.Wait()

	var lastErr error
	for _, err := range errs {
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("publish failed on all relays: %w", lastErr)
}

func (cl *Client) targetConns(urls []string) []*conn {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if len(urls) == 0 {
		out := make([]*conn, 0, len(cl.conns))
		for _, c := range cl.conns {
			out = append(out, c)
		}
		return out
	}
	out := make([]*conn, 0, len(urls))
	for _, u := range urls {
		if c, ok := cl.conns[u]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Subscribe opens a filter subscription on every configured relay
// (primary use: giftwrap inbox and per-group message subscriptions).
// The subscription is automatically replayed by each conn on reconnect.
func (cl *Client) Subscribe(f nostr.Filter) string {
	cl.subMu.Lock()
	cl.nextID++
	id := fmt.Sprintf("pika-%d", cl.nextID)
	cl.subMu.Unlock()

	for _, c := range cl.targetConns(nil) {
		if err := c.subscribe(id, f); err != nil {
			cl.logger.Warn("relay subscribe failed", "url", c.url, "error", err)
		}
	}
	return id
}

// Unsubscribe closes a subscription on every relay it was opened on.
func (cl *Client) Unsubscribe(id string) {
	for _, c := range cl.targetConns(nil) {
		c.unsubscribe(id)
	}
}

// SubscribeCollect opens a filter subscription like Subscribe, but
// routes its matching events to a dedicated channel instead of the
// shared Events() stream. Use this for short-lived collect-then-close
// operations (fetching key packages, draining a backlog) so they don't
// race a long-lived Events() consumer for the same events.
func (cl *Client) SubscribeCollect(f nostr.Filter) (string, <-chan *nostr.Event) {
	cl.subMu.Lock()
	cl.nextID++
	id := fmt.Sprintf("pika-collect-%d", cl.nextID)
	cl.subMu.Unlock()

	ch := make(chan *nostr.Event, 64)
	cl.collectMu.Lock()
	cl.collectors[id] = ch
	cl.collectMu.Unlock()

	for _, c := range cl.targetConns(nil) {
		if err := c.subscribe(id, f); err != nil {
			cl.logger.Warn("relay subscribe failed", "url", c.url, "error", err)
		}
	}
	return id, ch
}

// UnsubscribeCollect closes a subscription opened via SubscribeCollect
// and retires its dedicated channel.
func (cl *Client) UnsubscribeCollect(id string) {
	for _, c := range cl.targetConns(nil) {
		c.unsubscribe(id)
	}
	cl.collectMu.Lock()
	ch, ok := cl.collectors[id]
	delete(cl.collectors, id)
	cl.collectMu.Unlock()
	if ok {
		close(ch)
	}
}

// Probe reports whether the primary (first-configured) relay is
// connected, suitable as a connwatch.ProbeFunc for the startup
// readiness probe (spec §4.1).
func (cl *Client) Probe(primaryURL string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		cl.mu.RLock()
		c, ok := cl.conns[primaryURL]
		cl.mu.RUnlock()
		if !ok {
			return fmt.Errorf("relay %s not configured", primaryURL)
		}
		return c.ping(ctx)
	}
}

// Close shuts down all relay connections.
func (cl *Client) Close() {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	for _, c := range cl.conns {
		c.close()
	}
}
