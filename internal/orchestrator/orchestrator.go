// Package orchestrator is the MLS+relay orchestration layer (spec
// §4.2): publishing key packages, processing inbound giftwrap
// welcomes, joining groups, sending and receiving application
// messages, and maintaining per-group relay subscriptions.
//
// Grounded on other_examples' HORNET-Storage kind443handler.go for the
// MLS-over-Nostr event/tag shape (mls_protocol_version,
// mls_ciphersuite, encoding tags on KeyPackage events, and the
// "protected" tag relays reject); dispatch style grounded on the
// teacher's internal/router.Router classify-then-route idiom.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/suhailsaqan/pika/internal/call"
	"github.com/suhailsaqan/pika/internal/mlsstore"
	"github.com/suhailsaqan/pika/internal/obsbus"
	"github.com/suhailsaqan/pika/internal/relay"
)

// Nostr event kinds used by the MLS-over-Nostr convention (MIP-00
// style), per other_examples' kind443handler.go and the wider
// ecosystem's numbering for this experimental NIP.
const (
	KindKeyPackage   = 443
	KindWelcome      = 444
	KindGroupMessage = 445
	KindGiftwrap     = 1059
)

// Inner event kinds carried inside a decrypted MLS application message.
const (
	InnerKindChat           = 9
	InnerKindTyping         = 30
	InnerKindMedia          = 21
	InnerKindCallSignal     = 9000
	InnerKindFramedEnvelope = 9001
)

// protectedTagName is the NIP-70-style marker many public relays reject
// (spec §3 invariant, §4.2 "Protected-tag stripping").
const protectedTagName = "protected"

// typingDiscriminatorTag marks a custom inner kind as a typing
// indicator (spec §4.2).
const typingDiscriminatorTag = "typing_indicator"

// CallEnvelope is the signaling payload carried by InnerKindCallSignal
// messages (spec §6.4): { v:1, ns:"pika.call", type, call_id, body }.
type CallEnvelope struct {
	V      int             `json:"v"`
	NS     string          `json:"ns"`
	Type   string          `json:"type"`
	CallID string          `json:"call_id"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// CallNS is the namespace tag every well-formed call envelope carries.
const CallNS = "pika.call"

// Events delivered to the actor. Each corresponds to one spec §6.2
// unsolicited event; the actor is responsible for serializing them to
// stdout.
type WelcomeReceived struct {
	WrapperEventID string
	WelcomeEventID string
	FromPubkey     string
	NostrGroupID   string
	GroupName      string
}

type GroupJoined struct {
	NostrGroupID string
	MLSGroupID   string
}

type GroupCreated struct {
	NostrGroupID string
	MLSGroupID   string
	PeerPubkey   string
}

type MessageReceived struct {
	NostrGroupID string
	FromPubkey   string
	Content      string
	CreatedAt    int64
	MessageID    string
}

type CallSignalReceived struct {
	NostrGroupID string
	FromPubkey   string
	Envelope     CallEnvelope
}

// FramedEnvelopeReceived carries one raw framed-transport envelope
// (spec §4.6) decrypted from a group message, before it is handed to
// the matching framing.Session for reassembly.
type FramedEnvelopeReceived struct {
	NostrGroupID string
	FromPubkey   string
	Raw          []byte
}

// Sink receives the events the orchestrator produces from inbound
// relay traffic. The actor implements this to translate each into a
// stdout line or a call-machine transition.
type Sink interface {
	OnWelcomeReceived(WelcomeReceived)
	OnCallSignal(CallSignalReceived)
	OnMessageReceived(MessageReceived)
	OnFramedEnvelope(FramedEnvelopeReceived)
}

// Config controls which relay set each publish/subscribe operation
// targets.
type Config struct {
	KeyPackageRelays []string
	MessageRelays    []string
	// KeepProtectedTag disables stripping, for relays that permit it
	// (spec §9 Open Question: "a strict implementation should gate this
	// behavior on a configurable feature flag"). Defaults to false
	// (strip), matching the spec's "non-negotiable for interoperability"
	// framing.
	KeepProtectedTag bool
}

// Orchestrator owns group-lifecycle operations against the MLS store
// and relay client.
type Orchestrator struct {
	cfg      Config
	identity IdentitySigner
	store    *mlsstore.Store
	engine   mlsstore.Engine
	relay    *relay.Client
	bus      *obsbus.Bus
	logger   *slog.Logger
	sink     Sink

	allowlist map[string]struct{} // empty means open mode
}

// IdentitySigner is the narrow signing capability the orchestrator
// needs — deliberately not the raw secret key, per spec §9's "consume
// signing capability through a narrow interface" design note.
type IdentitySigner interface {
	PubkeyHex() string
	Sign(ev *nostr.Event) error
}

// New creates an Orchestrator. allowPubkeys is the sender allowlist
// (spec §4.1); an empty slice means open mode.
func New(cfg Config, identity IdentitySigner, store *mlsstore.Store, engine mlsstore.Engine, rc *relay.Client, bus *obsbus.Bus, sink Sink, allowPubkeys []string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	allow := make(map[string]struct{}, len(allowPubkeys))
	for _, pk := range allowPubkeys {
		allow[strings.ToLower(pk)] = struct{}{}
	}
	if len(allow) == 0 {
		logger.Warn("sender allowlist is empty: running in open mode, accepting welcomes/messages from any sender")
	}
	return &Orchestrator{
		cfg: cfg, identity: identity, store: store, engine: engine,
		relay: rc, bus: bus, sink: sink, allowlist: allow, logger: logger,
	}
}

func (o *Orchestrator) allowed(pubkey string) bool {
	if len(o.allowlist) == 0 {
		return true
	}
	_, ok := o.allowlist[strings.ToLower(pubkey)]
	return ok
}

// stripProtected removes the "protected" marker tag from ev in place,
// unless KeepProtectedTag is set (spec §4.2, §3 invariant).
func stripProtected(ev *nostr.Event, keep bool) {
	if keep {
		return
	}
	out := ev.Tags[:0]
	for _, t := range ev.Tags {
		if len(t) > 0 && t[0] == protectedTagName {
			continue
		}
		out = append(out, t)
	}
	ev.Tags = out
}

func (o *Orchestrator) sign(ev *nostr.Event) error {
	ev.PubKey = o.identity.PubkeyHex()
	if ev.CreatedAt == 0 {
		ev.CreatedAt = nostr.Now()
	}
	return o.identity.Sign(ev)
}

// PublishKeyPackage builds the identity's current key package event,
// strips "protected", and publishes to the configured (or overridden)
// key-package relays.
func (o *Orchestrator) PublishKeyPackage(ctx context.Context, overrideRelays []string) (string, error) {
	kp, err := o.engine.BuildKeyPackage()
	if err != nil {
		return "", fmt.Errorf("build key package: %w", err)
	}

	ev := &nostr.Event{
		Kind:    KindKeyPackage,
		Content: string(kp),
		Tags: nostr.Tags{
			{"mls_protocol_version", "1.0"},
			{"mls_ciphersuite", "MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519"},
			{"encoding", "tls"},
		},
	}
	if err := o.sign(ev); err != nil {
		return "", fmt.Errorf("sign key package: %w", err)
	}

	relays := overrideRelays
	if len(relays) == 0 {
		relays = o.cfg.KeyPackageRelays
	}
	if err := o.relay.Publish(ctx, ev, relays); err != nil {
		return "", fmt.Errorf("publish key package: %w", err)
	}
	return ev.ID, nil
}

// InitGroup fetches up to ten of the peer's key packages, creates a new
// MLS group, sends the welcome giftwrap, and subscribes to the group's
// messages (spec §4.2 "Init group").
func (o *Orchestrator) InitGroup(ctx context.Context, peerPubkey, groupName string) (nostrGroupID, mlsGroupID string, err error) {
	if groupName == "" {
		groupName = "DM"
	}

	sub, events := o.relay.SubscribeCollect(nostr.Filter{
		Kinds:   []int{KindKeyPackage},
		Authors: []string{peerPubkey},
		Limit:   10,
	})
	defer o.relay.UnsubscribeCollect(sub)

	var handles []mlsstore.KeyPackageHandle
	deadline := time.After(3 * time.Second)
collect:
	for len(handles) < 10 {
		select {
		case ev := <-events:
			if ev.Kind != KindKeyPackage || ev.PubKey != peerPubkey {
				continue
			}
			h, perr := o.engine.ParseKeyPackage([]byte(ev.Content))
			if perr != nil {
				o.logger.Debug("skipping malformed key package", "event_id", ev.ID, "error", perr)
				continue
			}
			handles = append(handles, h)
		case <-deadline:
			break collect
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	if len(handles) == 0 {
		return "", "", fmt.Errorf("no_keypackage: no usable key package for %s", peerPubkey)
	}

	mlsGroupID, epoch, welcomes, err := o.engine.CreateGroup(handles[:1])
	if err != nil {
		return "", "", fmt.Errorf("create group: %w", err)
	}
	nostrGroupID = mlsGroupID // correlated ids minted together by the engine in this design

	if err := o.store.UpsertGroup(mlsstore.Group{
		NostrGroupID: nostrGroupID, MLSGroupID: mlsGroupID, Epoch: epoch, Name: groupName,
	}); err != nil {
		return "", "", fmt.Errorf("persist group: %w", err)
	}

	if len(welcomes) > 0 {
		giftwrap := &nostr.Event{
			Kind:    KindGiftwrap,
			Content: string(welcomes[0]),
			Tags:    nostr.Tags{{"p", peerPubkey}},
		}
		if err := o.sign(giftwrap); err != nil {
			return "", "", fmt.Errorf("sign giftwrap: %w", err)
		}
		stripProtected(giftwrap, o.cfg.KeepProtectedTag)
		if err := o.relay.Publish(ctx, giftwrap, o.cfg.MessageRelays); err != nil {
			return "", "", fmt.Errorf("publish welcome: %w", err)
		}
	}

	o.subscribeGroup(nostrGroupID)
	o.bus.Publish(obsbus.Event{Timestamp: time.Now(), Source: obsbus.SourceOrchestrator, Kind: "group_created",
		Data: map[string]any{"nostr_group_id": nostrGroupID, "peer_pubkey": peerPubkey}})
	return nostrGroupID, mlsGroupID, nil
}

// AcceptWelcome locates the staged pending-welcome, applies it via the
// MLS engine, subscribes to the new group, and fetches a bounded
// backlog (spec §4.2 "Accept welcome").
func (o *Orchestrator) AcceptWelcome(ctx context.Context, wrapperEventID string) (nostrGroupID, mlsGroupID string, err error) {
	pw, found, err := o.store.GetPendingWelcome(wrapperEventID)
	if err != nil {
		return "", "", fmt.Errorf("lookup pending welcome: %w", err)
	}
	if !found {
		return "", "", fmt.Errorf("welcome_not_found: %s", wrapperEventID)
	}

	nostrGroupID, mlsGroupID, epoch, groupName, err := o.engine.ProcessWelcome(pw.RawGiftwrap)
	if err != nil {
		return "", "", fmt.Errorf("process welcome: %w", err)
	}

	if err := o.store.UpsertGroup(mlsstore.Group{
		NostrGroupID: nostrGroupID, MLSGroupID: mlsGroupID, Epoch: epoch, Name: groupName,
	}); err != nil {
		return "", "", fmt.Errorf("persist group: %w", err)
	}
	if err := o.store.ConsumeWelcome(wrapperEventID); err != nil {
		return "", "", fmt.Errorf("consume welcome: %w", err)
	}

	o.subscribeGroup(nostrGroupID)
	o.fetchBacklog(ctx, nostrGroupID, time.Hour)

	o.bus.Publish(obsbus.Event{Timestamp: time.Now(), Source: obsbus.SourceOrchestrator, Kind: "group_joined",
		Data: map[string]any{"nostr_group_id": nostrGroupID}})
	return nostrGroupID, mlsGroupID, nil
}

// subscribeGroup opens the application-message filter subscription for
// a group. Called for every store-resident group at startup and for
// each newly created/joined group.
func (o *Orchestrator) subscribeGroup(nostrGroupID string) {
	o.relay.Subscribe(nostr.Filter{
		Kinds: []int{KindGroupMessage},
		Tags:  nostr.TagMap{"h": []string{nostrGroupID}},
	})
}

// fetchBacklog issues a bounded backlog subscription (since now-lookback,
// limit 200) and blocks briefly draining it into handleGroupMessage, to
// catch messages that arrived between welcome and subscription.
func (o *Orchestrator) fetchBacklog(ctx context.Context, nostrGroupID string, lookback time.Duration) {
	since := nostr.Timestamp(time.Now().Add(-lookback).Unix())
	sub, events := o.relay.SubscribeCollect(nostr.Filter{
		Kinds: []int{KindGroupMessage},
		Tags:  nostr.TagMap{"h": []string{nostrGroupID}},
		Since: &since,
		Limit: 200,
	})
	defer o.relay.UnsubscribeCollect(sub)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.handleGroupMessage(ev)
		case <-deadline:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SubscribeExistingGroups re-subscribes to every group already known to
// the store — called once at startup (spec §4.1).
func (o *Orchestrator) SubscribeExistingGroups() error {
	groups, err := o.store.ListGroups()
	if err != nil {
		return err
	}
	for _, g := range groups {
		o.subscribeGroup(g.NostrGroupID)
	}
	return nil
}

// SubscribeGiftwrapInbox opens the giftwrap inbox filter (spec §4.1):
// recipient-tagged, since now-lookback, limit 200.
func (o *Orchestrator) SubscribeGiftwrapInbox(lookbackSec int) {
	since := nostr.Timestamp(time.Now().Add(-time.Duration(lookbackSec) * time.Second).Unix())
	o.relay.Subscribe(nostr.Filter{
		Kinds: []int{KindGiftwrap},
		Tags:  nostr.TagMap{"p": []string{o.identity.PubkeyHex()}},
		Since: &since,
		Limit: 200,
	})
}

// SendMessage wraps content into an MLS application message of the
// given inner kind, publishes it, and returns the published event id
// (spec §4.2 "Send message").
func (o *Orchestrator) SendMessage(ctx context.Context, nostrGroupID string, innerKind int, content string, extraTags nostr.Tags) (string, error) {
	g, found, err := o.store.GetGroup(nostrGroupID)
	if err != nil {
		return "", fmt.Errorf("lookup group: %w", err)
	}
	if !found {
		return "", fmt.Errorf("group_not_found: %s", nostrGroupID)
	}

	ciphertext, err := o.engine.Encrypt(g.MLSGroupID, innerKind, []byte(content))
	if err != nil {
		return "", fmt.Errorf("mls encrypt: %w", err)
	}

	ev := &nostr.Event{
		Kind:    KindGroupMessage,
		Content: string(ciphertext),
		Tags:    append(nostr.Tags{{"h", nostrGroupID}}, extraTags...),
	}
	if err := o.sign(ev); err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	stripProtected(ev, o.cfg.KeepProtectedTag)

	if err := o.relay.Publish(ctx, ev, o.cfg.MessageRelays); err != nil {
		return "", fmt.Errorf("publish_failed: %w", err)
	}
	if innerKind == InnerKindChat {
		_ = o.store.InsertMessage(nostrGroupID, ev.ID, o.identity.PubkeyHex(), content, int64(ev.CreatedAt))
	}
	return ev.ID, nil
}

// SendTyping publishes a best-effort typing indicator (spec §6.1
// send_typing): a short-expiration tag, same path as SendMessage.
func (o *Orchestrator) SendTyping(ctx context.Context, nostrGroupID string) error {
	expiry := fmt.Sprintf("%d", time.Now().Add(15*time.Second).Unix())
	_, err := o.SendMessage(ctx, nostrGroupID, InnerKindTyping, "", nostr.Tags{
		{"expiration", expiry},
		{typingDiscriminatorTag, "1"},
	})
	return err
}

// ListGroups enumerates groups directly from the MLS store.
func (o *Orchestrator) ListGroups() ([]mlsstore.Group, error) {
	return o.store.ListGroups()
}

// ListPendingWelcomes enumerates staged welcomes directly from the MLS store.
func (o *Orchestrator) ListPendingWelcomes() ([]mlsstore.PendingWelcome, error) {
	return o.store.ListPendingWelcomes()
}

// HandleInbound routes one relay event to the giftwrap or
// group-message handler based on its kind. It is the single entry
// point the actor's event-loop calls for every event drained from
// relay.Client.Events().
func (o *Orchestrator) HandleInbound(ev *nostr.Event) {
	switch ev.Kind {
	case KindGiftwrap:
		o.handleGiftwrap(ev)
	case KindGroupMessage:
		o.handleGroupMessage(ev)
	}
}

func (o *Orchestrator) handleGiftwrap(ev *nostr.Event) {
	// The giftwrap's sealed sender is not visible until unwrapped; the
	// MLS engine is responsible for unwrap + welcome extraction since
	// giftwrap cryptography is outside this package's scope.
	nostrGroupID, mlsGroupID, _, groupName, err := o.engine.ProcessWelcome([]byte(ev.Content))
	if err != nil {
		o.logger.Debug("giftwrap unwrap failed, not a welcome for us", "event_id", ev.ID, "error", err)
		return
	}

	var fromPubkey string
	for _, t := range ev.Tags {
		if len(t) >= 2 && t[0] == "p" {
			fromPubkey = t[1]
		}
	}
	if !o.allowed(fromPubkey) {
		o.logger.Debug("dropping welcome from non-allowlisted sender", "from", fromPubkey)
		return
	}

	if err := o.store.StageWelcome(mlsstore.PendingWelcome{
		WrapperEventID: ev.ID,
		WelcomeEventID: ev.ID,
		FromPubkey:     fromPubkey,
		NostrGroupID:   nostrGroupID,
		MLSGroupID:     mlsGroupID,
		GroupName:      groupName,
		RawGiftwrap:    []byte(ev.Content),
	}); err != nil {
		o.logger.Error("stage welcome failed", "error", err)
		return
	}

	o.sink.OnWelcomeReceived(WelcomeReceived{
		WrapperEventID: ev.ID, WelcomeEventID: ev.ID, FromPubkey: fromPubkey,
		NostrGroupID: nostrGroupID, GroupName: groupName,
	})
}

func (o *Orchestrator) handleGroupMessage(ev *nostr.Event) {
	var nostrGroupID string
	for _, t := range ev.Tags {
		if len(t) >= 2 && t[0] == "h" {
			nostrGroupID = t[1]
		}
	}
	g, found, err := o.store.GetGroup(nostrGroupID)
	if err != nil || !found {
		return
	}

	innerKind, content, _, err := o.engine.Decrypt(g.MLSGroupID, []byte(ev.Content))
	if err != nil {
		o.bus.Publish(obsbus.Event{Timestamp: time.Now(), Source: obsbus.SourceOrchestrator, Kind: obsbus.KindDecryptFailed,
			Data: map[string]any{"nostr_group_id": nostrGroupID, "error": err.Error()}})
		return
	}

	if !o.allowed(ev.PubKey) {
		return
	}

	switch innerKind {
	case InnerKindCallSignal:
		env, matched, perr := parseCallEnvelope(content)
		if perr != nil {
			o.logger.Debug("call envelope parse failed", "error", perr)
			return
		}
		o.logger.Debug("call envelope compat form matched", "form", matched)
		o.sink.OnCallSignal(CallSignalReceived{NostrGroupID: nostrGroupID, FromPubkey: ev.PubKey, Envelope: env})
	case InnerKindFramedEnvelope:
		o.sink.OnFramedEnvelope(FramedEnvelopeReceived{NostrGroupID: nostrGroupID, FromPubkey: ev.PubKey, Raw: content})
	case InnerKindTyping:
		// Ignored by the core (spec §4.2); the host surface decides
		// whether to relay it.
	default:
		_ = o.store.InsertMessage(nostrGroupID, ev.ID, ev.PubKey, string(content), int64(ev.CreatedAt))
		o.sink.OnMessageReceived(MessageReceived{
			NostrGroupID: nostrGroupID, FromPubkey: ev.PubKey, Content: string(content),
			CreatedAt: int64(ev.CreatedAt), MessageID: ev.ID,
		})
	}
}

// parseCallEnvelope implements the three compatibility forms spec §4.2
// and §9 require: direct, double-encoded as a JSON string, or nested
// under content/rumor.content.
func parseCallEnvelope(raw []byte) (CallEnvelope, string, error) {
	var direct CallEnvelope
	if err := json.Unmarshal(raw, &direct); err == nil && direct.NS == CallNS {
		return direct, "direct", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		var inner CallEnvelope
		if err := json.Unmarshal([]byte(asString), &inner); err == nil && inner.NS == CallNS {
			return inner, "double_encoded_string", nil
		}
	}

	var nested struct {
		Content string `json:"content"`
		Rumor   struct {
			Content string `json:"content"`
		} `json:"rumor"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		for _, candidate := range []string{nested.Content, nested.Rumor.Content} {
			if candidate == "" {
				continue
			}
			var inner CallEnvelope
			if err := json.Unmarshal([]byte(candidate), &inner); err == nil && inner.NS == CallNS {
				return inner, "nested_content", nil
			}
		}
	}

	return CallEnvelope{}, "", fmt.Errorf("no call envelope form matched")
}

// PublishCallSignal wraps a call envelope and sends it on the given
// group, using the call-signal inner kind.
func (o *Orchestrator) PublishCallSignal(ctx context.Context, nostrGroupID string, env CallEnvelope) (string, error) {
	env.V = 1
	env.NS = CallNS
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal call envelope: %w", err)
	}
	return o.SendMessage(ctx, nostrGroupID, InnerKindCallSignal, string(data), nil)
}

// PublishFramedEnvelope sends one wire-encoded framing envelope (spec
// §4.6) as a group message, using the dedicated framed-transport inner
// kind so inbound handling can route it back to a framing.Session
// instead of emitting message_received.
func (o *Orchestrator) PublishFramedEnvelope(ctx context.Context, nostrGroupID string, data []byte) (string, error) {
	return o.SendMessage(ctx, nostrGroupID, InnerKindFramedEnvelope, string(data), nil)
}

// BuildInviteBody builds the body of a call.invite envelope from call
// media coordinates, used both to send and (in tests) to round-trip.
func BuildInviteBody(c call.MediaCoords, relayAuth string) json.RawMessage {
	type track struct {
		Name  string `json:"name"`
		Codec string `json:"codec"`
	}
	body := struct {
		TransportURL  string  `json:"transport_url"`
		PublishPath   string  `json:"publish_path"`
		SubscribePath string  `json:"subscribe_path"`
		Tracks        []track `json:"tracks"`
		RelayAuth     string  `json:"relay_auth"`
	}{
		TransportURL: c.TransportURL, PublishPath: c.PublishPath, SubscribePath: c.SubscribePath,
		RelayAuth: relayAuth,
	}
	for _, t := range c.Tracks {
		body.Tracks = append(body.Tracks, track{Name: t.Name, Codec: t.Codec})
	}
	data, _ := json.Marshal(body)
	return data
}

// ParseInviteBody extracts MediaCoords and the relay_auth token from an
// invite envelope's body.
func ParseInviteBody(body json.RawMessage) (call.MediaCoords, string, error) {
	var parsed struct {
		TransportURL  string `json:"transport_url"`
		PublishPath   string `json:"publish_path"`
		SubscribePath string `json:"subscribe_path"`
		Tracks        []struct {
			Name  string `json:"name"`
			Codec string `json:"codec"`
		} `json:"tracks"`
		RelayAuth string `json:"relay_auth"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return call.MediaCoords{}, "", fmt.Errorf("parse invite body: %w", err)
	}
	coords := call.MediaCoords{
		TransportURL: parsed.TransportURL, PublishPath: parsed.PublishPath, SubscribePath: parsed.SubscribePath,
	}
	for _, t := range parsed.Tracks {
		coords.Tracks = append(coords.Tracks, call.Track{Name: t.Name, Codec: t.Codec})
	}
	return coords, parsed.RelayAuth, nil
}
