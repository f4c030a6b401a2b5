package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	samples := []int16{1, -1, 1000, -1000, 32000, -32000}
	var buf bytes.Buffer
	if err := EncodeWAV(&buf, samples, 48000, 1); err != nil {
		t.Fatalf("encode: %v", err)
	}

	info, err := DecodeWAV(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.SampleRate != 48000 || info.Channels != 1 {
		t.Fatalf("header = %+v", info)
	}
	if len(info.Samples) != len(samples) {
		t.Fatalf("samples len = %d, want %d", len(info.Samples), len(samples))
	}
	for i := range samples {
		if info.Samples[i] != samples[i] {
			t.Fatalf("sample[%d] = %d, want %d", i, info.Samples[i], samples[i])
		}
	}
}

func TestDecodeWAVStreamingSentinel(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // riff size irrelevant for this test
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(24000))
	binary.Write(&buf, binary.LittleEndian, uint32(24000*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(streamingDataSize))
	samples := []int16{5, -5, 10, -10}
	binary.Write(&buf, binary.LittleEndian, samples)

	info, err := DecodeWAV(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.SampleRate != 24000 {
		t.Fatalf("sample rate = %d, want 24000", info.SampleRate)
	}
	if len(info.Samples) != len(samples) {
		t.Fatalf("samples len = %d, want %d", len(info.Samples), len(samples))
	}
}

func TestWriteWAVValidHeader(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/chunk_0000.wav"
	if err := WriteWAV(path, []int16{1, 2, 3, 4}, 48000, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	info, err := DecodeWAV(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.SampleRate != 48000 || info.Channels != 1 || len(info.Samples) != 4 {
		t.Fatalf("info = %+v", info)
	}
}
