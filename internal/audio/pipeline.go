package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/suhailsaqan/pika/internal/mediatransport"
)

// ChunkSink receives each WAV chunk the pipeline flushes (spec §4.4
// step 4: call_audio_chunk).
type ChunkSink interface {
	OnAudioChunk(callID, audioPath string, sampleRate, channels int)
}

// Pipeline runs the inbound chunking worker for one call: decode,
// segment, write WAV, notify. It runs on its own goroutine, started by
// the actor's startCallSession when accept_call accepts a call (spec
// §4.4, §5 "dedicated blocking threads").
type Pipeline struct {
	CallID  string
	TmpDir  string // per-call temp directory, spec: <TMP>/<daemon>-audio-<call_id>
	Config  SegmenterConfig
	Logger  *slog.Logger
	Sink    ChunkSink
	EchoOut bool // spec §4.4 "Echo mode": republish decoded PCM instead of chunking
}

// chunkDir returns (creating if needed) the per-call temp directory.
func chunkDir(daemonName, callID string) (string, error) {
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("%s-audio-%s", daemonName, callID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chunk dir: %w", err)
	}
	return dir, nil
}

// NewPipeline creates a Pipeline with its temp directory pre-created.
func NewPipeline(daemonName, callID string, cfg SegmenterConfig, sink ChunkSink, echo bool, logger *slog.Logger) (*Pipeline, error) {
	dir, err := chunkDir(daemonName, callID)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{CallID: callID, TmpDir: dir, Config: cfg, Logger: logger, Sink: sink, EchoOut: echo}, nil
}

// Run decodes inbound Opus frames from transport and either segments
// them into WAV chunks (default) or republishes them for an echo-mode
// smoke test. Returns when ctx is cancelled or the inbound channel
// closes.
func (p *Pipeline) Run(ctx context.Context, transport mediatransport.Client) error {
	dec, err := NewDecoder()
	if err != nil {
		return fmt.Errorf("pipeline decoder: %w", err)
	}

	var enc *Encoder
	if p.EchoOut {
		enc, err = NewEncoder()
		if err != nil {
			return fmt.Errorf("pipeline echo encoder: %w", err)
		}
	}

	seg := NewSegmenter(p.Config)
	seq := 0

	flushIfReady := func(samples []int16) {
		if samples == nil {
			return
		}
		if err := p.writeChunk(seq, samples); err != nil {
			p.Logger.Warn("write audio chunk failed", "call_id", p.CallID, "error", err)
			return
		}
		seq++
	}

	for {
		select {
		case <-ctx.Done():
			if !p.EchoOut {
				if tail, ok := seg.Flush(); ok {
					flushIfReady(tail)
				}
			}
			return ctx.Err()
		case frame, ok := <-transport.InboundFrames():
			if !ok {
				return nil
			}
			pcm, err := dec.Decode(frame)
			if err != nil {
				p.Logger.Debug("opus decode failed, dropping frame", "call_id", p.CallID, "error", err)
				continue
			}

			if p.EchoOut {
				for _, fr := range Frames(pcm) {
					out, err := enc.Encode(fr)
					if err != nil {
						continue
					}
					_ = transport.PublishOpusFrame(out, frameDuration)
				}
				continue
			}

			if chunk, ready := seg.Push(pcm); ready {
				flushIfReady(chunk)
			}
		}
	}
}

const frameDuration = 20 * time.Millisecond // matches FrameSamples at 48kHz

func (p *Pipeline) writeChunk(seq int, samples []int16) error {
	path := filepath.Join(p.TmpDir, fmt.Sprintf("chunk_%04d.wav", seq))
	if err := WriteWAV(path, samples, SampleRate, Channels); err != nil {
		return err
	}
	if p.Sink != nil {
		p.Sink.OnAudioChunk(p.CallID, path, SampleRate, Channels)
	}
	return nil
}
