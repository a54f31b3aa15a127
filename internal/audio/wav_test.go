package audio

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(i - 800)
	}
	pcm := EncodeSamples(samples)

	data, err := EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(data) != 44+len(pcm) {
		t.Errorf("expected %d bytes, got %d", 44+len(pcm), len(data))
	}

	decoded, sampleRate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if sampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", sampleRate)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Error("PCM mismatch after round trip")
	}
}

func TestEncodeWAVErrors(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("expected error for empty audio, got nil")
	}

	if _, err := EncodeWAV([]byte{0x01}, 16000); err == nil {
		t.Error("expected error for odd-length audio, got nil")
	}

	if _, err := EncodeWAV([]byte{0x01, 0x02}, 0); err == nil {
		t.Error("expected error for zero sample rate, got nil")
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("too short")); err == nil {
		t.Error("expected error for short data, got nil")
	}

	valid, err := EncodeWAV([]byte{0x01, 0x02, 0x03, 0x04}, 8000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	corrupt := make([]byte, len(valid))
	copy(corrupt, valid)
	copy(corrupt[0:4], "JUNK")
	if _, _, err := DecodeWAV(corrupt); err == nil {
		t.Error("expected error for missing RIFF marker, got nil")
	}

	truncated := make([]byte, len(valid))
	copy(truncated, valid)
	truncated = truncated[:len(truncated)-2]
	if _, _, err := DecodeWAV(truncated); err == nil {
		t.Error("expected error for truncated data, got nil")
	}
}
