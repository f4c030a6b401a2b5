package actor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/suhailsaqan/pika/internal/audio"
	"github.com/suhailsaqan/pika/internal/call"
	"github.com/suhailsaqan/pika/internal/framing"
	"github.com/suhailsaqan/pika/internal/mediatransport"
	"github.com/suhailsaqan/pika/internal/obsbus"
)

// MediaClient is the transport capability a callSession needs. It is
// mediatransport.Client by another name so this package doesn't leak
// that import into every file that references a dialed client.
type MediaClient = mediatransport.Client

// observedClient wraps a MediaClient to report every published and
// received frame to the call machine, without requiring Pipeline or
// WebRTCClient to know about call bookkeeping.
type observedClient struct {
	MediaClient
	callID string
	calls  *call.Machine
	bus    *obsbus.Bus

	out chan []byte
	once sync.Once
}

func newObservedClient(c MediaClient, callID string, calls *call.Machine, bus *obsbus.Bus) *observedClient {
	return &observedClient{MediaClient: c, callID: callID, calls: calls, bus: bus, out: make(chan []byte, 64)}
}

// PublishOpusFrame records a tx frame before delegating to the
// underlying transport (spec §4.3 call_debug tx_frames counter).
func (o *observedClient) PublishOpusFrame(frame []byte, duration time.Duration) error {
	if err := o.MediaClient.PublishOpusFrame(frame, duration); err != nil {
		return err
	}
	o.calls.RecordTx(o.callID)
	o.bus.Publish(obsbus.Event{Timestamp: time.Now(), Source: obsbus.SourceCall, Kind: obsbus.KindTxFrame, Data: map[string]any{"call_id": o.callID}})
	return nil
}

// InboundFrames tees the underlying client's inbound channel through a
// locally owned buffered channel so every frame is counted exactly
// once before being handed to the audio pipeline.
func (o *observedClient) InboundFrames() <-chan []byte {
	o.once.Do(func() {
		go func() {
			defer close(o.out)
			for frame := range o.MediaClient.InboundFrames() {
				o.calls.RecordRx(o.callID)
				o.bus.Publish(obsbus.Event{Timestamp: time.Now(), Source: obsbus.SourceCall, Kind: obsbus.KindRxFrame, Data: map[string]any{"call_id": o.callID}})
				select {
				case o.out <- frame:
				default:
					o.calls.RecordRxDropped(o.callID)
					o.bus.Publish(obsbus.Event{Timestamp: time.Now(), Source: obsbus.SourceCall, Kind: obsbus.KindRxDropped, Data: map[string]any{"call_id": o.callID}})
				}
			}
		}()
	})
	return o.out
}

// framingTransport adapts the orchestrator's per-group publish into the
// framing.Transport interface for one bound call/group pair.
type framingTransport struct {
	ctx          context.Context
	publish      func(ctx context.Context, nostrGroupID string, data []byte) (string, error)
	nostrGroupID string
}

func (t *framingTransport) SendEnvelope(data []byte) error {
	_, err := t.publish(t.ctx, t.nostrGroupID, data)
	return err
}

// callSession owns every worker and piece of state bound to one active
// call: the media transport, the audio pipeline goroutine, and the
// tunneled framing.Session riding on MLS application messages (spec
// §4.6). Created on accept_call, torn down on end/reject/shutdown.
type callSession struct {
	callID       string
	nostrGroupID string
	logger       *slog.Logger

	transport *observedClient
	session   *framing.Session

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newCallSession(
	ctx context.Context,
	callID, nostrGroupID string,
	raw MediaClient,
	calls *call.Machine,
	bus *obsbus.Bus,
	publishFramed func(ctx context.Context, nostrGroupID string, data []byte) (string, error),
	framingHandler framing.Handler,
	logger *slog.Logger,
) *callSession {
	ctx, cancel := context.WithCancel(ctx)
	oc := newObservedClient(raw, callID, calls, bus)
	transport := &framingTransport{ctx: ctx, publish: publishFramed, nostrGroupID: nostrGroupID}
	fs := framing.NewSession(callID, transport, framingHandler, logger)

	cs := &callSession{
		callID:       callID,
		nostrGroupID: nostrGroupID,
		logger:       logger,
		transport:    oc,
		session:      fs,
		cancel:       cancel,
	}

	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		_ = fs.Run(ctx)
	}()

	return cs
}

// runPipeline starts the audio chunking pipeline (spec §4.4) against
// this session's observed transport. Call in its own goroutine.
func (cs *callSession) runPipeline(ctx context.Context, p *audio.Pipeline) error {
	cs.wg.Add(1)
	defer cs.wg.Done()
	return p.Run(ctx, cs.transport)
}

// close tears down the session's workers. reason is logged only; the
// call machine's own End transition is driven by the caller.
func (cs *callSession) close(reason string) {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return
	}
	cs.closed = true
	cs.mu.Unlock()

	cs.session.Close()
	cs.cancel()
	cs.wg.Wait()
	cs.logger.Info("call session closed", "call_id", cs.callID, "reason", reason)
}
