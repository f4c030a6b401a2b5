package audio

import "math"

// SineTone generates a deterministic fixture tone (spec §4.5: "A
// fixture mode... substitutes a 440 Hz sine tone of a fixed
// duration — this must exist and be deterministic; it is the only
// mode that works in tests without network"). Amplitude is kept well
// below full scale to avoid clipping after resampling/re-encoding.
func SineTone(freqHz float64, duration float64, sampleRate int) []int16 {
	n := int(duration * float64(sampleRate))
	out := make([]int16, n)
	const amplitude = 0.3 * math.MaxInt16
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		out[i] = int16(amplitude * math.Sin(2*math.Pi*freqHz*t))
	}
	return out
}
