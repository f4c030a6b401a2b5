package tts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/suhailsaqan/pika/internal/audio"
)

func TestSynthesizeFixtureModeNoNetwork(t *testing.T) {
	c := New(Config{Fixture: true}, nil)
	result, err := c.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if result.SampleRate != FixtureSampleRate {
		t.Fatalf("sample rate = %d, want %d", result.SampleRate, FixtureSampleRate)
	}
	wantLen := int(FixtureDuration * FixtureSampleRate)
	if len(result.Samples) != wantLen {
		t.Fatalf("samples = %d, want %d", len(result.Samples), wantLen)
	}
}

func TestSynthesizeFixtureIsDeterministic(t *testing.T) {
	c := New(Config{Fixture: true}, nil)
	a, err := c.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	b, err := c.Synthesize(context.Background(), "a different prompt")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(a.Samples) != len(b.Samples) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Samples), len(b.Samples))
	}
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("fixture tone not deterministic at %d", i)
		}
	}
}

func TestSynthesizeCallsSpeechEndpoint(t *testing.T) {
	samples := []int16{100, -100, 200, -200}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		var buf bytes.Buffer
		if err := audio.EncodeWAV(&buf, samples, 24000, 1); err != nil {
			t.Fatalf("encode wav: %v", err)
		}
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "tts-1", Voice: "alloy"}, nil)
	result, err := c.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if result.SampleRate != 24000 {
		t.Fatalf("sample rate = %d, want 24000", result.SampleRate)
	}
	if len(result.Samples) != len(samples) {
		t.Fatalf("samples = %d, want %d", len(result.Samples), len(samples))
	}
}

func TestSynthesizePropagatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	_, err := c.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error from 500 response")
	}
}
