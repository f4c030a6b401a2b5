// Package mediatransport is the daemon's client for the media relay
// that carries Opus audio during calls (spec §2, §4.3 "Media
// coordinates"). The transport's own wire format is an external
// collaborator (spec §1) — this package defines the narrow interface
// the core needs (publish/subscribe of one named audio track per call)
// and a concrete WebRTC-based client.
//
// Grounded on the teacher's internal/mqtt publisher/subscriber pub/sub
// shape (a transport client wrapping a library, topic/track naming,
// reconnect) for the publish/subscribe surface, and on
// other_examples' n0remac-robot-webrtc SFU (pion/webrtc PeerConnection
// setup, RTP packet read loop via TrackRemote.ReadRTP) for the actual
// media plane: a PeerConnection negotiated over a WebSocket signaling
// channel to the relay-supplied transport URL. Inbound packet
// sequence numbers (github.com/pion/rtp's Header type) are tracked
// directly to detect loss ahead of Opus decode.
package mediatransport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Client is the interface the call/audio/tts packages depend on. The
// concrete WebRTCClient below is the production implementation; tests
// use a fake.
type Client interface {
	// Join establishes the media-plane connection for one call: dials
	// the transport, negotiates a PeerConnection, and registers the
	// named audio track for publish.
	Join(ctx context.Context, transportURL, publishPath, subscribePath, trackName string) error

	// PublishOpusFrame sends one encoded Opus frame on the outbound
	// track, with the given sample duration for RTP pacing.
	PublishOpusFrame(frame []byte, duration time.Duration) error

	// InboundFrames returns the channel of decoded-ready Opus frames
	// arriving on the subscribed track.
	InboundFrames() <-chan []byte

	// Leave tears down the PeerConnection and signaling socket.
	Leave() error
}

// signalMessage is the minimal offer/answer/candidate exchange the
// relay's signaling socket speaks. The wire format itself is the
// out-of-scope transport's; this shape is this client's assumption
// about it.
type signalMessage struct {
	Type      string                     `json:"type"`
	Path      string                     `json:"path,omitempty"`
	Track     string                     `json:"track,omitempty"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// WebRTCClient is the concrete media-transport client: one
// PeerConnection per Join, with a single local audio track for publish
// and OnTrack for the single supported inbound audio track (spec
// §4.3: "the core only supports a single inbound audio track").
type WebRTCClient struct {
	logger *slog.Logger

	mu       sync.Mutex
	ws       *websocket.Conn
	pc       *webrtc.PeerConnection
	local    *webrtc.TrackLocalStaticSample
	inbound  chan []byte
	closed   chan struct{}
	closeErr error
}

// NewWebRTCClient creates a client ready for Join.
func NewWebRTCClient(logger *slog.Logger) *WebRTCClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebRTCClient{logger: logger, inbound: make(chan []byte, 256), closed: make(chan struct{})}
}

// Join dials the transport's signaling socket, creates a
// PeerConnection with one local Opus audio track, performs an
// offer/answer exchange. It returns once the answer is applied as the
// remote description; it does not wait for the connection to establish.
func (c *WebRTCClient) Join(ctx context.Context, transportURL, publishPath, subscribePath, trackName string) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, transportURL, nil)
	if err != nil {
		return fmt.Errorf("dial media transport: %w", err)
	}

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		ws.Close()
		return fmt.Errorf("register codecs: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(m))

	pc, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		ws.Close()
		return fmt.Errorf("new peer connection: %w", err)
	}

	localTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		trackName, "pika",
	)
	if err != nil {
		pc.Close()
		ws.Close()
		return fmt.Errorf("new local track: %w", err)
	}
	if _, err := pc.AddTrack(localTrack); err != nil {
		pc.Close()
		ws.Close()
		return fmt.Errorf("add local track: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.pc = pc
	c.local = localTrack
	c.mu.Unlock()

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.readRemoteTrack(remote)
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	if err := ws.WriteJSON(signalMessage{Type: "offer", Path: publishPath, Track: subscribePath, Offer: &offer}); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}

	var msg signalMessage
	if err := ws.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read answer: %w", err)
	}
	if msg.Type != "answer" || msg.Answer == nil {
		return fmt.Errorf("media transport handshake: expected answer, got %q", msg.Type)
	}
	if err := pc.SetRemoteDescription(*msg.Answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	go c.readSignalingCandidates()
	return nil
}

func (c *WebRTCClient) readRemoteTrack(remote *webrtc.TrackRemote) {
	if remote.Kind() != webrtc.RTPCodecTypeAudio {
		return // video is out of scope (spec §1 non-goals)
	}
	var prevHeader rtp.Header
	haveSeq := false
	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			c.logger.Debug("media transport remote track closed", "error", err)
			return
		}
		if haveSeq && pkt.SequenceNumber != prevHeader.SequenceNumber+1 {
			c.logger.Debug("rtp sequence gap on inbound audio track",
				"expected", prevHeader.SequenceNumber+1, "got", pkt.SequenceNumber)
		}
		prevHeader = pkt.Header
		haveSeq = true

		select {
		case c.inbound <- pkt.Payload:
		default:
			c.logger.Warn("media transport inbound buffer full, dropping frame")
		}
	}
}

func (c *WebRTCClient) readSignalingCandidates() {
	for {
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws == nil {
			return
		}
		var msg signalMessage
		if err := ws.ReadJSON(&msg); err != nil {
			select {
			case <-c.closed:
			default:
				close(c.closed)
			}
			return
		}
		if msg.Type == "candidate" && msg.Candidate != nil {
			c.mu.Lock()
			pc := c.pc
			c.mu.Unlock()
			if pc != nil {
				_ = pc.AddICECandidate(*msg.Candidate)
			}
		}
	}
}

// PublishOpusFrame writes one Opus frame to the local track as a
// media.Sample.
func (c *WebRTCClient) PublishOpusFrame(frame []byte, duration time.Duration) error {
	c.mu.Lock()
	local := c.local
	c.mu.Unlock()
	if local == nil {
		return fmt.Errorf("media transport: not joined")
	}
	return local.WriteSample(media.Sample{Data: frame, Duration: duration})
}

// InboundFrames returns the channel of raw Opus payloads received from
// the peer's RTP packets (header stripped; spec §4.4 step 2 decodes
// these further).
func (c *WebRTCClient) InboundFrames() <-chan []byte {
	return c.inbound
}

// Leave tears down the PeerConnection and signaling socket.
func (c *WebRTCClient) Leave() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	if c.pc != nil {
		if err := c.pc.Close(); err != nil {
			firstErr = err
		}
		c.pc = nil
	}
	if c.ws != nil {
		if err := c.ws.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.ws = nil
	}
	return firstErr
}
