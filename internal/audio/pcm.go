package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeRawPCM16LE parses raw little-endian 16-bit PCM bytes, as used
// by send_audio_file (spec §4.5, §9 "Audio input is raw PCM, not
// WAV"). Rejects files whose length is not a multiple of channels*2.
func DecodeRawPCM16LE(data []byte, channels int) ([]int16, error) {
	if channels <= 0 {
		channels = 1
	}
	frameBytes := channels * 2
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("raw pcm length %d is not a multiple of channels*2 (%d)", len(data), frameBytes)
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples, nil
}

// Resample converts samples from srcRate to dstRate using linear
// interpolation. A no-op (returns samples unmodified) when the rates
// already match.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(dstRate) / float64(srcRate)
	outLen := int(float64(len(samples)) * ratio)
	out := make([]int16, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		i0 := int(math.Floor(srcPos))
		i1 := i0 + 1
		frac := srcPos - float64(i0)
		if i1 >= len(samples) {
			i1 = len(samples) - 1
		}
		if i0 >= len(samples) {
			i0 = len(samples) - 1
		}
		v := float64(samples[i0])*(1-frac) + float64(samples[i1])*frac
		out[i] = int16(v)
	}
	return out
}

// ToMono downmixes interleaved multi-channel samples to mono by
// averaging channels.
func ToMono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, len(samples)/channels)
	for i := range out {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		out[i] = int16(sum / int32(channels))
	}
	return out
}

// Frames splits samples into consecutive frames of exactly
// FrameSamples length, dropping any incomplete trailing frame (the
// Opus encoder requires a fixed frame size).
func Frames(samples []int16) [][]int16 {
	var out [][]int16
	for i := 0; i+FrameSamples <= len(samples); i += FrameSamples {
		out = append(out, samples[i:i+FrameSamples])
	}
	return out
}
