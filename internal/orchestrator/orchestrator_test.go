package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/nbd-wtf/go-nostr"
)

func TestStripProtectedRemovesMarker(t *testing.T) {
	ev := &nostr.Event{Tags: nostr.Tags{
		{"protected"},
		{"h", "group1"},
	}}
	stripProtected(ev, false)
	for _, tag := range ev.Tags {
		if len(tag) > 0 && tag[0] == protectedTagName {
			t.Fatalf("protected tag survived stripping: %v", ev.Tags)
		}
	}
	if len(ev.Tags) != 1 || ev.Tags[0][0] != "h" {
		t.Fatalf("unexpected tags after stripping: %v", ev.Tags)
	}
}

func TestStripProtectedKeepsWhenConfigured(t *testing.T) {
	ev := &nostr.Event{Tags: nostr.Tags{{"protected"}}}
	stripProtected(ev, true)
	if len(ev.Tags) != 1 {
		t.Fatalf("expected protected tag kept, got %v", ev.Tags)
	}
}

func TestParseCallEnvelopeDirect(t *testing.T) {
	raw, _ := json.Marshal(CallEnvelope{V: 1, NS: CallNS, Type: "invite", CallID: "c1"})
	env, form, err := parseCallEnvelope(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if form != "direct" || env.CallID != "c1" {
		t.Fatalf("got form=%s env=%+v", form, env)
	}
}

func TestParseCallEnvelopeDoubleEncoded(t *testing.T) {
	inner, _ := json.Marshal(CallEnvelope{V: 1, NS: CallNS, Type: "accept", CallID: "c2"})
	raw, _ := json.Marshal(string(inner))
	env, form, err := parseCallEnvelope(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if form != "double_encoded_string" || env.CallID != "c2" {
		t.Fatalf("got form=%s env=%+v", form, env)
	}
}

func TestParseCallEnvelopeNestedContent(t *testing.T) {
	inner, _ := json.Marshal(CallEnvelope{V: 1, NS: CallNS, Type: "end", CallID: "c3"})
	wrapper := struct {
		Content string `json:"content"`
	}{Content: string(inner)}
	raw, _ := json.Marshal(wrapper)
	env, form, err := parseCallEnvelope(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if form != "nested_content" || env.CallID != "c3" {
		t.Fatalf("got form=%s env=%+v", form, env)
	}
}

func TestParseCallEnvelopeNestedRumorContent(t *testing.T) {
	inner, _ := json.Marshal(CallEnvelope{V: 1, NS: CallNS, Type: "reject", CallID: "c4"})
	wrapper := struct {
		Rumor struct {
			Content string `json:"content"`
		} `json:"rumor"`
	}{}
	wrapper.Rumor.Content = string(inner)
	raw, _ := json.Marshal(wrapper)
	env, form, err := parseCallEnvelope(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if form != "nested_content" || env.CallID != "c4" {
		t.Fatalf("got form=%s env=%+v", form, env)
	}
}

func TestParseCallEnvelopeRejectsUnrelated(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"foo": "bar"})
	if _, _, err := parseCallEnvelope(raw); err == nil {
		t.Fatal("expected error for unrelated payload")
	}
}
