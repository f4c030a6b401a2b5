package actor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/suhailsaqan/pika/internal/audio"
	"github.com/suhailsaqan/pika/internal/call"
	"github.com/suhailsaqan/pika/internal/mediatransport"
	"github.com/suhailsaqan/pika/internal/obsbus"
	"github.com/suhailsaqan/pika/internal/orchestrator"
	"github.com/suhailsaqan/pika/internal/protocol"
	"github.com/suhailsaqan/pika/internal/tts"
)

// callDebugInterval is how often call_debug is emitted for an active
// call (spec §6.2 "periodic").
const callDebugInterval = 5 * time.Second

// dispatch decodes cmd's extra fields and runs its handler, recovering
// from any panic into an error event (spec §4.1 "panic in a command
// handler surfaces as an error event; the daemon then exits nonzero").
func (a *Actor) dispatch(ctx context.Context, cmd *protocol.Command) {
	defer func() {
		if r := recover(); r != nil {
			a.emit(protocol.Err(cmd.RequestID, protocol.ErrInternal, fmt.Sprintf("panic in command handler: %v", r)))
			a.logger.Error("command handler panicked, exiting", "cmd", cmd.Cmd, "panic", r)
			os.Exit(1)
		}
	}()

	switch cmd.Cmd {
	case "publish_keypackage":
		a.handlePublishKeypackage(ctx, cmd)
	case "set_relays":
		a.handleSetRelays(ctx, cmd)
	case "list_pending_welcomes":
		a.handleListPendingWelcomes(cmd)
	case "accept_welcome":
		a.handleAcceptWelcome(ctx, cmd)
	case "list_groups":
		a.handleListGroups(cmd)
	case "send_message":
		a.handleSendMessage(ctx, cmd)
	case "send_typing":
		a.handleSendTyping(ctx, cmd)
	case "init_group":
		a.handleInitGroup(ctx, cmd)
	case "accept_call":
		a.handleAcceptCall(ctx, cmd)
	case "reject_call":
		a.handleRejectCall(cmd)
	case "end_call":
		a.handleEndCall(cmd)
	case "send_audio_response":
		a.handleSendAudioResponse(ctx, cmd)
	case "send_audio_file":
		a.handleSendAudioFile(ctx, cmd)
	case "shutdown":
		a.emit(protocol.OK(cmd.RequestID, nil))
		a.requestShutdown()
	default:
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, "unknown cmd: "+cmd.Cmd))
	}
}

func (a *Actor) handlePublishKeypackage(ctx context.Context, cmd *protocol.Command) {
	var args protocol.PublishKeypackageArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	eventID, err := a.orch.PublishKeyPackage(ctx, args.Relays)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrPublishFailed, err.Error()))
		return
	}
	a.emit(protocol.NewKeypackagePublished(eventID))
	a.emit(protocol.OK(cmd.RequestID, map[string]string{"event_id": eventID}))
}

func (a *Actor) handleSetRelays(ctx context.Context, cmd *protocol.Command) {
	var args protocol.SetRelaysArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	a.cfg.Relays = args.Relays
	a.relay.Connect(ctx, args.Relays)
	a.emit(protocol.OK(cmd.RequestID, map[string][]string{"relays": args.Relays}))
}

func (a *Actor) handleListPendingWelcomes(cmd *protocol.Command) {
	welcomes, err := a.orch.ListPendingWelcomes()
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInternal, err.Error()))
		return
	}
	out := make([]protocol.PendingWelcomeSummary, 0, len(welcomes))
	for _, w := range welcomes {
		out = append(out, protocol.PendingWelcomeSummary{
			WrapperEventID: w.WrapperEventID,
			WelcomeEventID: w.WelcomeEventID,
			FromPubkey:     w.FromPubkey,
			NostrGroupID:   w.NostrGroupID,
			GroupName:      w.GroupName,
		})
	}
	a.emit(protocol.OK(cmd.RequestID, map[string]any{"welcomes": out}))
}

func (a *Actor) handleAcceptWelcome(ctx context.Context, cmd *protocol.Command) {
	var args protocol.AcceptWelcomeArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	nostrGroupID, mlsGroupID, err := a.orch.AcceptWelcome(ctx, args.WrapperEventID)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, classifyWelcomeError(err), err.Error()))
		return
	}
	a.emit(protocol.NewGroupJoined(nostrGroupID, mlsGroupID))
	a.emit(protocol.OK(cmd.RequestID, map[string]string{"nostr_group_id": nostrGroupID, "mls_group_id": mlsGroupID}))
}

// classifyWelcomeError maps the orchestrator's prefixed error strings to
// a stdout error code. The orchestrator doesn't export sentinel errors
// for these cases, so the actor matches on its documented message
// prefixes instead (same convention the orchestrator itself uses to
// tag these failures for logs).
func classifyWelcomeError(err error) protocol.ErrorCode {
	switch {
	case strings.Contains(err.Error(), "welcome_not_found"):
		return protocol.ErrWelcomeNotFound
	case strings.Contains(err.Error(), "welcome_stale"):
		return protocol.ErrWelcomeStale
	default:
		return protocol.ErrInternal
	}
}

func (a *Actor) handleListGroups(cmd *protocol.Command) {
	groups, err := a.orch.ListGroups()
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInternal, err.Error()))
		return
	}
	out := make([]protocol.GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, protocol.GroupSummary{
			NostrGroupID: g.NostrGroupID, MLSGroupID: g.MLSGroupID,
			Name: g.Name, Description: g.Description,
		})
	}
	a.emit(protocol.OK(cmd.RequestID, map[string]any{"groups": out}))
}

func (a *Actor) handleSendMessage(ctx context.Context, cmd *protocol.Command) {
	var args protocol.SendMessageArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	eventID, err := a.orch.SendMessage(ctx, args.NostrGroupID, orchestrator.InnerKindChat, args.Content, nil)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, classifySendError(err), err.Error()))
		return
	}
	a.emit(protocol.OK(cmd.RequestID, map[string]string{"event_id": eventID}))
}

func classifySendError(err error) protocol.ErrorCode {
	switch {
	case strings.Contains(err.Error(), "group_not_found"):
		return protocol.ErrGroupNotFound
	case strings.Contains(err.Error(), "publish_failed"):
		return protocol.ErrPublishFailed
	default:
		return protocol.ErrInternal
	}
}

func (a *Actor) handleSendTyping(ctx context.Context, cmd *protocol.Command) {
	var args protocol.SendTypingArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	// Best effort: publish happens in the background, ok regardless.
	go func() {
		if err := a.orch.SendTyping(ctx, args.NostrGroupID); err != nil {
			a.logger.Debug("send_typing publish failed", "error", err)
		}
	}()
	a.emit(protocol.OK(cmd.RequestID, nil))
}

func (a *Actor) handleInitGroup(ctx context.Context, cmd *protocol.Command) {
	var args protocol.InitGroupArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	if args.GroupName == "" {
		args.GroupName = "DM"
	}
	nostrGroupID, mlsGroupID, err := a.orch.InitGroup(ctx, args.PeerPubkey, args.GroupName)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, classifyInitGroupError(err), err.Error()))
		return
	}
	a.emit(protocol.GroupCreatedEvent{Event: "group_created", NostrGroupID: nostrGroupID, MLSGroupID: mlsGroupID, PeerPubkey: args.PeerPubkey})
	a.emit(protocol.OK(cmd.RequestID, map[string]string{
		"nostr_group_id": nostrGroupID, "mls_group_id": mlsGroupID, "peer_pubkey": args.PeerPubkey,
	}))
}

func classifyInitGroupError(err error) protocol.ErrorCode {
	if strings.Contains(err.Error(), "no_keypackage") {
		return protocol.ErrNoKeypackage
	}
	return protocol.ErrInternal
}

// handleAcceptCall validates relay_auth, joins the media transport, and
// starts the inbound audio pipeline and framed-envelope session (spec
// §4.3, §4.4, §4.6).
func (a *Actor) handleAcceptCall(ctx context.Context, cmd *protocol.Command) {
	var args protocol.AcceptCallArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}

	snap := a.calls.Snapshot()
	if snap == nil || snap.CallID != args.CallID {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, "no matching offered call"))
		return
	}
	a.mu.Lock()
	relayAuth := a.relayAuth[args.CallID]
	a.mu.Unlock()

	state, err := a.calls.Accept(args.CallID, relayAuth)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrAuthFailed, err.Error()))
		return
	}

	sess := a.startCallSession(ctx, state)
	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()

	a.emit(protocol.CallSessionStartedEvent{Event: "call_session_started", CallID: state.CallID, NostrGroupID: state.NostrGroupID, FromPubkey: state.PeerPubkey})
	a.emit(protocol.OK(cmd.RequestID, map[string]string{"call_id": state.CallID, "nostr_group_id": state.NostrGroupID}))
}

func (a *Actor) handleRejectCall(cmd *protocol.Command) {
	var args protocol.RejectCallArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	if args.Reason == "" {
		args.Reason = "declined"
	}
	if err := a.calls.Reject(args.CallID); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	a.forgetCall(args.CallID)
	a.emit(protocol.OK(cmd.RequestID, map[string]string{"call_id": args.CallID}))
}

// forgetCall drops the peer-call-id and relay-auth bookkeeping kept for
// one call once it leaves Offered/Accepted/Active.
func (a *Actor) forgetCall(callID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.relayAuth, callID)
	for peerID, ourID := range a.peerCallID {
		if ourID == callID {
			delete(a.peerCallID, peerID)
		}
	}
}

func (a *Actor) handleEndCall(cmd *protocol.Command) {
	var args protocol.EndCallArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	if args.Reason == "" {
		args.Reason = "user_hangup"
	}
	a.endCallSession(args.CallID, args.Reason)
	a.emit(protocol.OK(cmd.RequestID, map[string]string{"call_id": args.CallID}))
}

// endCallSession tears down the active session (if it matches callID),
// transitions the call machine to Ended, and emits call_session_ended.
// Safe to call with no active session.
func (a *Actor) endCallSession(callID, reason string) {
	a.mu.Lock()
	sess := a.session
	if sess != nil && sess.callID == callID {
		a.session = nil
	} else {
		sess = nil
	}
	a.mu.Unlock()

	if sess != nil {
		sess.close(reason)
	}
	if _, err := a.calls.End(callID); err != nil {
		a.logger.Debug("end_call on inactive call", "call_id", callID, "error", err)
	}
	a.forgetCall(callID)
	a.emit(protocol.NewCallSessionEnded(callID, reason))
}

func (a *Actor) handleSendAudioResponse(ctx context.Context, cmd *protocol.Command) {
	var args protocol.SendAudioResponseArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	sess, transport, track, err := a.activeCallTransport(args.CallID)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}

	result, err := a.tts.Synthesize(ctx, args.TTSText)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrTTSFailed, err.Error()))
		return
	}
	stats, err := ttsPublishPCM(ctx, transport, track, result.Samples, result.SampleRate)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrTTSFailed, err.Error()))
		return
	}
	_ = sess
	a.emit(protocol.OK(cmd.RequestID, protocol.AudioPublishResult{
		CallID: args.CallID, FramesPublished: stats.FramesPublished, Track: stats.Track,
	}))
}

// handleSendAudioFile starts the publish worker in the background and
// resolves ok only once it completes (spec §4.5's documented exception
// to "all side effects complete before ok").
func (a *Actor) handleSendAudioFile(ctx context.Context, cmd *protocol.Command) {
	var args protocol.SendAudioFileArgs
	if err := cmd.Decode(&args); err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	if args.Channels == 0 {
		args.Channels = 1
	}
	_, transport, track, err := a.activeCallTransport(args.CallID)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}

	raw, err := os.ReadFile(args.AudioPath)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}
	samples, err := audio.DecodeRawPCM16LE(raw, args.Channels)
	if err != nil {
		a.emit(protocol.Err(cmd.RequestID, protocol.ErrInvalidArgument, err.Error()))
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		stats, err := ttsPublishPCM(ctx, transport, track, samples, args.SampleRate)
		if err != nil {
			a.emit(protocol.Err(cmd.RequestID, protocol.ErrTTSFailed, err.Error()))
			return
		}
		a.emit(protocol.OK(cmd.RequestID, protocol.AudioPublishResult{
			CallID: args.CallID, FramesPublished: stats.FramesPublished, Track: stats.Track,
		}))
	}()
}

// activeCallTransport returns the current session's transport and
// outbound track name, erroring if no call matches callID.
func (a *Actor) activeCallTransport(callID string) (*callSession, mediatransport.Client, string, error) {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil || sess.callID != callID {
		return nil, nil, "", errNoActiveSession
	}
	return sess, sess.transport, outboundTrackName, nil
}

var errNoActiveSession = fmt.Errorf("no active call session")

const outboundTrackName = "pika-audio"

// startCallSession joins the media transport, wires the observed
// transport into the call machine, and starts the inbound audio
// pipeline and the per-call framing session.
func (a *Actor) startCallSession(ctx context.Context, state *call.State) *callSession {
	logger := a.logger.With("call_id", state.CallID)
	raw := a.dialer(logger)

	cs := newCallSession(ctx, state.CallID, state.NostrGroupID, raw, a.calls, a.bus,
		a.orch.PublishFramedEnvelope, a.framingHandler(state.CallID), logger)

	if err := raw.Join(ctx, state.Media.TransportURL, state.Media.PublishPath, state.Media.SubscribePath, outboundTrackName); err != nil {
		logger.Error("media transport join failed", "error", err)
		return cs
	}

	segCfg := audio.DefaultSegmenterConfig()
	segCfg.RMSThreshold = a.cfg.SilenceRMS
	pipeline, err := audio.NewPipeline("pika", state.CallID, segCfg, a, a.cfg.EchoMode, logger)
	if err != nil {
		logger.Error("new audio pipeline", "error", err)
		return cs
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := cs.runPipeline(ctx, pipeline); err != nil {
			logger.Info("audio pipeline stopped", "error", err)
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runCallDebugTicker(ctx, state.CallID)
	}()

	return cs
}

// runCallDebugTicker emits call_debug on a fixed interval for as long as
// callID remains the active call (spec §4.3 ordering: zero or more
// call_debug events between call_session_started and call_session_ended).
func (a *Actor) runCallDebugTicker(ctx context.Context, callID string) {
	ticker := time.NewTicker(callDebugInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.shutdown:
			return
		case <-ticker.C:
			snap := a.calls.Snapshot()
			if snap == nil || snap.CallID != callID {
				return
			}
			a.emit(protocol.NewCallDebug(callID, snap.TxFrames, snap.RxFrames, snap.RxDropped))
		}
	}
}

// OnAudioChunk implements audio.ChunkSink, emitting call_audio_chunk
// (spec §4.4 step 4).
func (a *Actor) OnAudioChunk(callID, audioPath string, sampleRate, channels int) {
	a.emit(protocol.NewCallAudioChunk(callID, audioPath, sampleRate, channels))
	a.bus.Publish(obsbus.Event{Source: obsbus.SourceAudio, Kind: "chunk_emitted",
		Data: map[string]any{"call_id": callID, "audio_path": audioPath}})
}

// ttsPublishPCM is a thin alias kept local so tests can assert against
// the actor package's own publishStats type without importing tts.
func ttsPublishPCM(ctx context.Context, transport mediatransport.Client, track string, samples []int16, srcRate int) (publishStats, error) {
	stats, err := tts.PublishPCM(ctx, transport, track, samples, srcRate)
	return publishStats{FramesPublished: stats.FramesPublished, Track: stats.Track}, err
}

type publishStats struct {
	FramesPublished int
	Track           string
}
