// Package actor is the daemon's control loop (spec §4.1): it owns the
// JSONL stdin/stdout streams, dispatches each inbound command to a
// handler, serializes state mutation, and interleaves unsolicited
// events emitted by background workers.
//
// Grounded on the teacher's internal/agent.Loop — a single struct
// reached only through public methods, holding every collaborator the
// daemon needs (store, relay, call state, audio) — generalized here
// from "one in-flight LLM turn" to "one JSONL command at a time plus
// however many background workers it has spawned". Timer/worker
// bookkeeping (the periodic call_debug ticker, readiness probe) follows
// the teacher's internal/scheduler.Scheduler Start/Stop-with-stopCh
// shape.
package actor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/suhailsaqan/pika/internal/buildinfo"
	"github.com/suhailsaqan/pika/internal/call"
	"github.com/suhailsaqan/pika/internal/config"
	"github.com/suhailsaqan/pika/internal/connwatch"
	"github.com/suhailsaqan/pika/internal/identity"
	"github.com/suhailsaqan/pika/internal/mlsstore"
	"github.com/suhailsaqan/pika/internal/obsbus"
	"github.com/suhailsaqan/pika/internal/orchestrator"
	"github.com/suhailsaqan/pika/internal/protocol"
	"github.com/suhailsaqan/pika/internal/relay"
	"github.com/suhailsaqan/pika/internal/tts"
)

// ProtocolVersion is reported in the ready event (spec §6.2).
const ProtocolVersion = buildinfo.ProtocolVersion

// MediaDialer constructs the media-transport client used to join a
// call's audio plane. A field (not a hardcoded constructor) so tests
// can substitute mediatransport.NewFakeClient.
type MediaDialer func(logger *slog.Logger) MediaClient

// Actor owns the command loop and every collaborator it needs to
// satisfy the command/event surface (spec §6).
type Actor struct {
	cfg      *config.Config
	logger   *slog.Logger
	identity *identity.Identity
	store    *mlsstore.Store
	relay    *relay.Client
	orch     *orchestrator.Orchestrator
	bus      *obsbus.Bus
	connMgr  *connwatch.Manager
	tts      *tts.Client
	dialer   MediaDialer

	writer *protocol.Writer

	calls *call.Machine

	mu         sync.Mutex
	session    *callSession      // non-nil while a call is non-idle
	peerCallID map[string]string // peer-assigned call_id -> our call_id, for the active call
	relayAuth  map[string]string // our call_id -> relay_auth token carried on the invite

	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

// Deps bundles the constructed collaborators New needs. Built by
// cmd/pika's startup sequence.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Identity *identity.Identity
	Store    *mlsstore.Store
	Engine   mlsstore.Engine
	Relay    *relay.Client
	Bus      *obsbus.Bus
	TTS      *tts.Client
	Dialer   MediaDialer
	Out      io.Writer
}

// New wires an Actor and its Orchestrator together. The orchestrator's
// Sink is the Actor itself.
func New(d Deps) *Actor {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	a := &Actor{
		cfg:        d.Config,
		logger:     d.Logger,
		identity:   d.Identity,
		store:      d.Store,
		relay:      d.Relay,
		bus:        d.Bus,
		connMgr:    connwatch.NewManager(d.Logger),
		tts:        d.TTS,
		dialer:     d.Dialer,
		writer:     protocol.NewWriter(d.Out),
		calls:      call.New(),
		shutdown:   make(chan struct{}),
		peerCallID: make(map[string]string),
		relayAuth:  make(map[string]string),
	}
	a.orch = orchestrator.New(
		orchestrator.Config{KeyPackageRelays: d.Config.Relays, MessageRelays: d.Config.Relays},
		identity.NewSigner(d.Identity),
		d.Store, d.Engine, d.Relay, d.Bus, a, d.Config.AllowPubkeys, d.Logger,
	)
	return a
}

// emit writes one unsolicited event line.
func (a *Actor) emit(v any) {
	if err := a.writer.WriteLine(v); err != nil {
		a.logger.Error("write event line failed", "error", err)
	}
}

// Run performs the startup sequence (spec §4.1), emits ready, then
// reads commands from r until EOF, shutdown, or ctx cancellation.
func (a *Actor) Run(ctx context.Context, r io.Reader) error {
	if err := a.startup(ctx); err != nil {
		return fmt.Errorf("actor startup: %w", err)
	}

	npub, err := a.identity.Npub()
	if err != nil {
		return fmt.Errorf("encode npub: %w", err)
	}
	a.emit(protocol.NewReady(ProtocolVersion, a.identity.PublicKeyHex, npub))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.drainInbound(ctx)
	}()

	reader := protocol.NewReader(r)
	for {
		select {
		case <-a.shutdown:
			a.wg.Wait()
			return nil
		case <-ctx.Done():
			a.wg.Wait()
			return ctx.Err()
		default:
		}

		cmd, err := reader.Next()
		if err == io.EOF {
			a.wg.Wait()
			return nil
		}
		if err != nil {
			a.emit(protocol.Err("", protocol.ErrInvalidArgument, err.Error()))
			continue
		}
		a.dispatch(ctx, cmd)
	}
}

// startup performs spec §4.1's load-identity/open-store/connect-relays/
// probe/subscribe sequence. Identity and store are already opened by
// the caller (cmd/pika) since they gate the daemon's ability to start
// at all; this method owns relay connect, readiness, and subscriptions.
func (a *Actor) startup(ctx context.Context) error {
	a.relay.Connect(ctx, a.cfg.Relays)

	if len(a.cfg.Relays) > 0 {
		primary := a.cfg.Relays[0]
		ready := make(chan struct{})
		var once sync.Once
		w := a.connMgr.Watch(ctx, connwatch.WatcherConfig{
			Name:    primary,
			Probe:   a.relay.Probe(primary),
			Backoff: connwatch.DefaultBackoffConfig(),
			OnReady: func() { once.Do(func() { close(ready) }) },
			Logger:  a.logger,
		})
		timeout := time.Duration(a.cfg.ReadinessTimeoutSec) * time.Second
		select {
		case <-ready:
		case <-time.After(timeout):
			a.logger.Warn("readiness probe timed out, continuing with background reconnect", "relay", primary, "timeout", timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
		_ = w
	}

	a.orch.SubscribeGiftwrapInbox(a.cfg.GiftwrapLookbackSec)
	if err := a.orch.SubscribeExistingGroups(); err != nil {
		return fmt.Errorf("resubscribe existing groups: %w", err)
	}
	return nil
}

// drainInbound forwards every relay event to the orchestrator until ctx
// is done (spec §4.1's "only after ready will commands be accepted" is
// satisfied trivially since this goroutine starts after the ready
// event above).
func (a *Actor) drainInbound(ctx context.Context) {
	for {
		select {
		case ev, ok := <-a.relay.Events():
			if !ok {
				return
			}
			a.orch.HandleInbound(ev)
		case <-ctx.Done():
			return
		case <-a.shutdown:
			return
		}
	}
}

// requestShutdown closes the shutdown signal exactly once, tearing down
// any in-progress call and its workers (spec §4.1 "shutdown").
func (a *Actor) requestShutdown() {
	a.once.Do(func() {
		a.mu.Lock()
		sess := a.session
		a.mu.Unlock()
		if sess != nil {
			sess.close("daemon_shutdown")
		}
		a.connMgr.Stop()
		a.relay.Close()
		close(a.shutdown)
	})
}
