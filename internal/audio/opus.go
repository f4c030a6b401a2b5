// Package audio implements the inbound chunking pipeline (spec §4.4):
// Opus decode to PCM, RMS-based silence segmentation into WAV chunks,
// plus the outbound encode path shared with internal/tts, an echo
// worker for end-to-end smoke testing, and WAV I/O including the
// streaming-sentinel form the TTS service may return.
//
// Grounded on no direct pack precedent for audio segmentation; the
// segmenter's accumulate-then-flush-on-timer shape is modeled after the
// teacher's internal/scheduler timer/threshold bookkeeping style. Opus
// codec access is layeh.com/gopus, the only Opus binding anywhere in
// the retrieval pack (other_examples' MrWong99-glyphoxa manifest).
package audio

import (
	"fmt"

	"layeh.com/gopus"
)

// SampleRate is the decoder/encoder's native rate (spec §4.4 step 2).
const SampleRate = 48000

// Channels is the channel count the core's Opus codec operates at.
const Channels = 1

// FrameSamples is the number of samples per 20ms Opus frame at 48kHz —
// the frame size this package assumes throughout, matching the common
// Opus frame duration used by VoIP applications.
const FrameSamples = SampleRate / 50

// Decoder wraps a gopus.Decoder for one inbound track.
type Decoder struct {
	dec *gopus.Decoder
}

// NewDecoder creates a 48kHz mono Opus decoder.
func NewDecoder() (*Decoder, error) {
	dec, err := gopus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("new opus decoder: %w", err)
	}
	return &Decoder{dec: dec}, nil
}

// Decode decodes one Opus frame into 16-bit PCM samples.
func (d *Decoder) Decode(frame []byte) ([]int16, error) {
	pcm, err := d.dec.Decode(frame, FrameSamples, false)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return pcm, nil
}

// Encoder wraps a gopus.Encoder for outbound publishing.
type Encoder struct {
	enc *gopus.Encoder
}

// NewEncoder creates a 48kHz mono Opus encoder tuned for voice.
func NewEncoder() (*Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("new opus encoder: %w", err)
	}
	return &Encoder{enc: enc}, nil
}

// Encode encodes one frame of 16-bit PCM samples to Opus.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	data, err := e.enc.Encode(pcm, FrameSamples, len(pcm)*2)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return data, nil
}
