package mediatransport

import (
	"testing"
	"time"
)

func TestFakeClientImplementsClient(t *testing.T) {
	var _ Client = NewFakeClient()
}

func TestFakeClientPublishRecordsFrames(t *testing.T) {
	f := NewFakeClient()
	if err := f.PublishOpusFrame([]byte{1, 2, 3}, 20*time.Millisecond); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if f.FramesPublished() != 1 {
		t.Fatalf("published = %d, want 1", f.FramesPublished())
	}
}

func TestFakeClientInboundDelivery(t *testing.T) {
	f := NewFakeClient()
	f.Inbound <- []byte{9, 9}
	select {
	case got := <-f.InboundFrames():
		if len(got) != 2 {
			t.Fatalf("got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}
