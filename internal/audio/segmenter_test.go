package audio

import "testing"

func loud(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 20000
		} else {
			out[i] = -20000
		}
	}
	return out
}

func silent(n int) []int16 {
	return make([]int16, n)
}

func TestSegmenterSingleBurstSingleChunk(t *testing.T) {
	cfg := DefaultSegmenterConfig()
	s := NewSegmenter(cfg)

	// 3s of speech, fed in 20ms frames.
	frame := SampleRate / 50
	burstSamples := 3 * SampleRate
	chunks := 0
	for fed := 0; fed < burstSamples; fed += frame {
		if _, ok := s.Push(loud(frame)); ok {
			chunks++
		}
	}
	// 1s of silence should trigger exactly one flush.
	silenceSamples := SampleRate
	for fed := 0; fed < silenceSamples; fed += frame {
		if _, ok := s.Push(silent(frame)); ok {
			chunks++
		}
	}
	if chunks != 1 {
		t.Fatalf("chunks = %d, want 1", chunks)
	}
}

func TestSegmenterTwoBurstsTwoChunks(t *testing.T) {
	cfg := DefaultSegmenterConfig()
	s := NewSegmenter(cfg)
	frame := SampleRate / 50
	chunks := 0

	feedBurst := func(totalSamples int, samples func(int) []int16) {
		for fed := 0; fed < totalSamples; fed += frame {
			if _, ok := s.Push(samples(frame)); ok {
				chunks++
			}
		}
	}

	feedBurst(2*SampleRate, loud)
	// >700ms silence between bursts.
	feedBurst(SampleRate, silent)
	feedBurst(2*SampleRate, loud)
	feedBurst(SampleRate, silent)

	if chunks != 2 {
		t.Fatalf("chunks = %d, want 2", chunks)
	}
}

func TestSegmenterMaxLengthFlush(t *testing.T) {
	cfg := DefaultSegmenterConfig()
	s := NewSegmenter(cfg)
	frame := SampleRate / 50
	chunks := 0
	// Continuous speech with no silence should still flush at 20s.
	for fed := 0; fed < 25*SampleRate; fed += frame {
		if _, ok := s.Push(loud(frame)); ok {
			chunks++
		}
	}
	if chunks < 1 {
		t.Fatal("expected at least one max-length flush")
	}
}

func TestSegmenterShortChunkCoalesces(t *testing.T) {
	cfg := DefaultSegmenterConfig()
	s := NewSegmenter(cfg)
	frame := SampleRate / 50

	// A burst shorter than MinChunkDuration followed by silence should
	// NOT flush on its own.
	short := int(0.2 * SampleRate) // 200ms < 500ms min
	flushed := false
	for fed := 0; fed < short; fed += frame {
		if _, ok := s.Push(loud(frame)); ok {
			flushed = true
		}
	}
	for fed := 0; fed < SampleRate; fed += frame {
		if _, ok := s.Push(silent(frame)); ok {
			flushed = true
		}
	}
	if flushed {
		t.Fatal("short chunk should have coalesced instead of flushing alone")
	}
}
