package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/suhailsaqan/pika/internal/audio"
	"github.com/suhailsaqan/pika/internal/mediatransport"
)

// PublishStats is returned to the actor for both send_audio_response
// (synchronous) and send_audio_file (resolved asynchronously, since
// that worker runs off the actor thread) per spec §4.5.
type PublishStats struct {
	FramesPublished int
	Track           string
}

const outboundFrameDuration = 20 * time.Millisecond

// PublishPCM resamples PCM16 samples to the audio pipeline's expected
// rate, re-encodes to Opus, and publishes frame-by-frame on transport.
// Cancelling ctx (call end) stops publishing after the in-flight frame;
// partial completion is acceptable per spec §4.5 "Cancellation".
func PublishPCM(ctx context.Context, transport mediatransport.Client, trackName string, samples []int16, srcRate int) (PublishStats, error) {
	if srcRate != audio.SampleRate {
		samples = audio.Resample(samples, srcRate, audio.SampleRate)
	}

	enc, err := audio.NewEncoder()
	if err != nil {
		return PublishStats{}, fmt.Errorf("tts publish: new encoder: %w", err)
	}

	stats := PublishStats{Track: trackName}
	for _, frame := range audio.Frames(samples) {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		opusFrame, err := enc.Encode(frame)
		if err != nil {
			continue
		}
		if err := transport.PublishOpusFrame(opusFrame, outboundFrameDuration); err != nil {
			return stats, fmt.Errorf("tts publish: publish frame: %w", err)
		}
		stats.FramesPublished++
	}
	return stats, nil
}
