package mediatransport

import (
	"context"
	"sync"
	"time"
)

// FakeClient is an in-memory Client for tests in this package and its
// consumers (audio, tts, call, actor) that need a media transport
// without a real relay or ICE negotiation.
type FakeClient struct {
	mu        sync.Mutex
	Published [][]byte
	Inbound   chan []byte
	Joined    bool
	Left      bool
}

// NewFakeClient creates a ready-to-use fake with a buffered inbound
// channel; push test frames directly into FakeClient.Inbound.
func NewFakeClient() *FakeClient {
	return &FakeClient{Inbound: make(chan []byte, 256)}
}

func (f *FakeClient) Join(ctx context.Context, transportURL, publishPath, subscribePath, trackName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Joined = true
	return nil
}

func (f *FakeClient) PublishOpusFrame(frame []byte, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = append(f.Published, append([]byte(nil), frame...))
	return nil
}

func (f *FakeClient) InboundFrames() <-chan []byte {
	return f.Inbound
}

func (f *FakeClient) Leave() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Left = true
	return nil
}

// FramesPublished returns the number of frames published so far.
func (f *FakeClient) FramesPublished() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Published)
}
