// Package tts synthesizes speech for send_audio_response: an
// OpenAI-compatible HTTP speech endpoint in the default mode, or a
// deterministic fixture tone when no network call should be made.
// Grounded on the teacher's internal/llm provider clients
// (NewOllamaClient/NewAnthropicClient: a net/http.Client wrapped in a
// bounded-timeout, typed-request/response constructor) — here adapted
// to a single-shot synthesis call instead of a chat completion.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/suhailsaqan/pika/internal/audio"
	"github.com/suhailsaqan/pika/internal/httpkit"
)

// FixtureDuration is the length of the deterministic sine-tone fixture
// (spec: "a 440 Hz sine tone of a fixed duration").
const FixtureDuration = 1.5 // seconds

// FixtureFreqHz is the fixture tone's frequency.
const FixtureFreqHz = 440.0

// FixtureSampleRate is the sample rate the fixture tone is generated at.
const FixtureSampleRate = 24000

// Client synthesizes PCM16 audio from text.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	voice      string
	fixture    bool
	httpClient *http.Client
	logger     *slog.Logger
}

// Config configures a Client. BaseURL defaults to the OpenAI speech
// endpoint when empty.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Voice   string
	Fixture bool
	Timeout time.Duration
}

// New builds a speech client. In fixture mode no HTTP client is needed,
// but one is still constructed for API uniformity.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		voice:   cfg.Voice,
		fixture: cfg.Fixture,
		logger:  logger.With("component", "tts"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(timeout),
			httpkit.WithRetry(2, 500*time.Millisecond),
			httpkit.WithLogger(logger),
		),
	}
}

// speechRequest is the OpenAI-compatible request body for
// POST /audio/speech.
type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Result holds the synthesized audio as decoded PCM16 mono samples plus
// the sample rate the provider (or fixture) generated at.
type Result struct {
	Samples    []int16
	SampleRate int
}

// Synthesize turns text into PCM audio. In fixture mode this returns a
// deterministic sine tone and performs no network I/O (spec: "the only
// mode that works in tests without network"). Otherwise it calls the
// configured speech endpoint and decodes the returned WAV, accepting
// both normal and streaming-sentinel data chunk sizes.
func (c *Client) Synthesize(ctx context.Context, text string) (Result, error) {
	if c.fixture {
		c.logger.Debug("tts fixture mode, skipping network call", "text_len", len(text))
		return Result{
			Samples:    audio.SineTone(FixtureFreqHz, FixtureDuration, FixtureSampleRate),
			SampleRate: FixtureSampleRate,
		}, nil
	}

	reqBody := speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: "wav",
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("marshal speech request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("create speech request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("synthesizing speech", "model", c.model, "voice", c.voice, "text_len", len(text))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		return Result{}, fmt.Errorf("speech API error %d: %s", resp.StatusCode, errBody)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read speech response: %w", err)
	}

	info, err := audio.DecodeWAV(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("decode speech WAV: %w", err)
	}

	c.logger.Debug("speech synthesized", "samples", len(info.Samples), "sample_rate", info.SampleRate)
	return Result{Samples: info.Samples, SampleRate: info.SampleRate}, nil
}
