package audio

import (
	"time"
)

// SegmenterConfig holds the silence-segmentation parameters (spec
// §4.4 step 3). The actor takes RMSThreshold from internal/config
// (PIKA_SILENCE_RMS); the other fields keep their defaults.
type SegmenterConfig struct {
	// RMSThreshold is the int16-units RMS below which samples count as
	// silence. Default 500.
	RMSThreshold int
	// SilenceDuration is how long continuous sub-threshold audio must
	// persist before it triggers a flush. Default 700ms.
	SilenceDuration time.Duration
	// MinChunkDuration: chunks shorter than this are coalesced into the
	// next chunk instead of being flushed alone. Default 500ms.
	MinChunkDuration time.Duration
	// MaxChunkDuration forces a flush even without silence. Default 20s.
	MaxChunkDuration time.Duration
}

// DefaultSegmenterConfig returns the spec §4.4 defaults.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		RMSThreshold:     500,
		SilenceDuration:  700 * time.Millisecond,
		MinChunkDuration: 500 * time.Millisecond,
		MaxChunkDuration: 20 * time.Second,
	}
}

// Segmenter accumulates PCM samples and emits a chunk each time it
// observes a sufficiently long silence gap, the max length is reached,
// or Flush is called explicitly (e.g. on call end).
type Segmenter struct {
	cfg SegmenterConfig

	buf           []int16
	silenceRun    int // consecutive sub-threshold samples
	silenceFrames int // cached threshold in samples
	maxSamples    int
	minSamples    int
}

// NewSegmenter creates a segmenter at the package's fixed SampleRate.
func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	return &Segmenter{
		cfg:           cfg,
		silenceFrames: durationToSamples(cfg.SilenceDuration),
		maxSamples:    durationToSamples(cfg.MaxChunkDuration),
		minSamples:    durationToSamples(cfg.MinChunkDuration),
	}
}

func durationToSamples(d time.Duration) int {
	return int(d.Seconds() * float64(SampleRate))
}

func rms(samples []int16) int {
	if len(samples) == 0 {
		return 0
	}
	var sumSq int64
	for _, s := range samples {
		v := int64(s)
		sumSq += v * v
	}
	mean := sumSq / int64(len(samples))
	return isqrt(mean)
}

func isqrt(n int64) int {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return int(x)
}

// Push feeds one decoded frame's samples into the segmenter. It
// returns a completed chunk (and true) whenever the frame triggers a
// flush: sustained silence, or the max-length cap.
func (s *Segmenter) Push(samples []int16) ([]int16, bool) {
	s.buf = append(s.buf, samples...)

	if rms(samples) < s.cfg.RMSThreshold {
		s.silenceRun += len(samples)
	} else {
		s.silenceRun = 0
	}

	if s.silenceRun >= s.silenceFrames && len(s.buf) > s.silenceRun {
		// Flush everything up to (but not including) the trailing
		// silence run, so the next chunk doesn't start mid-silence.
		return s.flushCoalesced(len(s.buf) - s.silenceRun)
	}

	if len(s.buf) >= s.maxSamples {
		return s.flushCoalesced(len(s.buf))
	}

	return nil, false
}

// flushCoalesced cuts the first n samples off the buffer. If the
// resulting chunk is shorter than MinChunkDuration, it is NOT flushed
// yet — it is left in place to coalesce with the next segment (spec
// §4.4: "chunks shorter than this are coalesced into the next").
func (s *Segmenter) flushCoalesced(n int) ([]int16, bool) {
	if n < s.minSamples && n < s.maxSamples {
		return nil, false
	}
	chunk := append([]int16(nil), s.buf[:n]...)
	s.buf = append([]int16(nil), s.buf[n:]...)
	s.silenceRun = 0
	return chunk, true
}

// Flush forces emission of whatever is buffered, regardless of length.
// Used at call end so the final partial utterance is not lost.
func (s *Segmenter) Flush() ([]int16, bool) {
	if len(s.buf) == 0 {
		return nil, false
	}
	chunk := s.buf
	s.buf = nil
	s.silenceRun = 0
	return chunk, true
}
