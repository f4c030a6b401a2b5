package audio

import "testing"

func TestDecodeRawPCM16LERoundTrip(t *testing.T) {
	want := []int16{1, -1, 1234, -1234, 32767, -32768}
	raw := make([]byte, len(want)*2)
	for i, s := range want {
		raw[i*2] = byte(uint16(s))
		raw[i*2+1] = byte(uint16(s) >> 8)
	}
	got, err := DecodeRawPCM16LE(raw, 1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecodeRawPCM16LERejectsMisalignedLength(t *testing.T) {
	_, err := DecodeRawPCM16LE([]byte{0x01, 0x02, 0x03}, 1)
	if err == nil {
		t.Fatal("expected error for misaligned PCM length")
	}
}

func TestDecodeRawPCM16LEStereoAlignment(t *testing.T) {
	// 2 channels * 2 bytes = 4-byte frames; 6 bytes is not a multiple of 4.
	_, err := DecodeRawPCM16LE(make([]byte, 6), 2)
	if err == nil {
		t.Fatal("expected error for stereo misalignment")
	}
	_, err = DecodeRawPCM16LE(make([]byte, 8), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResampleNoOpWhenRatesMatch(t *testing.T) {
	in := []int16{1, 2, 3}
	out := Resample(in, 48000, 48000)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
}

func TestResampleChangesLength(t *testing.T) {
	in := make([]int16, 480) // 10ms at 48kHz
	out := Resample(in, 48000, 24000)
	if len(out) != 240 {
		t.Fatalf("len = %d, want 240", len(out))
	}
	out = Resample(in, 48000, 96000)
	if len(out) != 960 {
		t.Fatalf("len = %d, want 960", len(out))
	}
}

func TestToMonoDownmixesStereo(t *testing.T) {
	stereo := []int16{10, 20, 30, 40}
	mono := ToMono(stereo, 2)
	if len(mono) != 2 {
		t.Fatalf("len = %d, want 2", len(mono))
	}
	if mono[0] != 15 || mono[1] != 35 {
		t.Fatalf("mono = %v, want [15 35]", mono)
	}
}

func TestToMonoPassthroughWhenAlreadyMono(t *testing.T) {
	in := []int16{1, 2, 3}
	out := ToMono(in, 1)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
}

func TestFramesSplitsAndDropsIncompleteTail(t *testing.T) {
	in := make([]int16, FrameSamples*2+10)
	frames := Frames(in)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	for _, f := range frames {
		if len(f) != FrameSamples {
			t.Fatalf("frame len = %d, want %d", len(f), FrameSamples)
		}
	}
}

func TestSineToneDeterministicLength(t *testing.T) {
	tone := SineTone(440, 1.0, SampleRate)
	if len(tone) != SampleRate {
		t.Fatalf("len = %d, want %d", len(tone), SampleRate)
	}
	tone2 := SineTone(440, 1.0, SampleRate)
	for i := range tone {
		if tone[i] != tone2[i] {
			t.Fatalf("sine tone not deterministic at %d", i)
		}
	}
}
