package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nbd-wtf/go-nostr"
)

// echoRelay is a minimal test relay: it acks every EVENT frame with OK
// and echoes EVENT frames straight back to the same connection for any
// open REQ subscription, simulating a relay that stores-then-delivers.
func echoRelay(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		var subID string
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
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
				var ev nostr.Event
				_ = json.Unmarshal(frame[1], &ev)
				_ = ws.WriteJSON([]any{"OK", ev.ID, true, ""})
				if subID != "" {
					_ = ws.WriteJSON([]any{"EVENT", subID, ev})
				}
			case "REQ":
				_ = json.Unmarshal(frame[1], &subID)
				_ = ws.WriteJSON([]any{"EOSE", subID})
			case "CLOSE":
				subID = ""
			}
		}
	}))
	return srv
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestPublishAckedByAnyRelay(t *testing.T) {
	srv := echoRelay(t)
	defer srv.Close()

	c := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Connect(ctx, []string{wsURL(srv.URL)})
	defer c.Close()
	time.Sleep(100 * time.Millisecond)

	ev := &nostr.Event{Kind: 443, Content: "kp", CreatedAt: nostr.Now()}
	sk := nostr.GeneratePrivateKey()
	if err := ev.Sign(sk); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := c.Publish(ctx, ev, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestSubscribeReceivesEchoedEvent(t *testing.T) {
	srv := echoRelay(t)
	defer srv.Close()

	c := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Connect(ctx, []string{wsURL(srv.URL)})
	defer c.Close()
	time.Sleep(100 * time.Millisecond)

	c.Subscribe(nostr.Filter{Kinds: []int{1}})
	time.Sleep(50 * time.Millisecond)

	ev := &nostr.Event{Kind: 1, Content: "hi", CreatedAt: nostr.Now()}
	sk := nostr.GeneratePrivateKey()
	if err := ev.Sign(sk); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := c.Publish(ctx, ev, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-c.Events():
		if got.Content != "hi" {
			t.Fatalf("content = %q, want hi", got.Content)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for echoed event")
	}
}

// TestSubscribeCollectDoesNotLeakToMergedStream guards against the
// collect-subscription/drainInbound race: an event matching a
// SubscribeCollect subscription must arrive only on its dedicated
// channel, never on the shared Events() stream a long-lived consumer
// might also be reading.
func TestSubscribeCollectDoesNotLeakToMergedStream(t *testing.T) {
	srv := echoRelay(t)
	defer srv.Close()

	c := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Connect(ctx, []string{wsURL(srv.URL)})
	defer c.Close()
	time.Sleep(100 * time.Millisecond)

	sub, collected := c.SubscribeCollect(nostr.Filter{Kinds: []int{443}})
	defer c.UnsubscribeCollect(sub)
	time.Sleep(50 * time.Millisecond)

	ev := &nostr.Event{Kind: 443, Content: "kp", CreatedAt: nostr.Now()}
	sk := nostr.GeneratePrivateKey()
	if err := ev.Sign(sk); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := c.Publish(ctx, ev, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-collected:
		if got.Content != "kp" {
			t.Fatalf("content = %q, want kp", got.Content)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for collected event")
	}

	select {
	case got := <-c.Events():
		t.Fatalf("event leaked onto merged stream: %+v", got)
	case <-time.After(200 * time.Millisecond):
	}
}
