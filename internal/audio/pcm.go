package audio

import (
	"fmt"
	"time"
)

// PCM format constants. The whole pipeline works on 16-bit signed
// little-endian mono audio; only the sample rate varies.
const (
	BytesPerSample = 2
	Channels       = 1

	// FrameDuration is the fixed length of every frame handed to the sink.
	FrameDuration = 100 * time.Millisecond
)

// FrameSizeBytes returns the byte length of one frame at the given sample
// rate. Returns a non-positive value for degenerate rates; callers must
// check before slicing.
func FrameSizeBytes(sampleRate int) int {
	return int(BytesPerSample * FrameDuration.Seconds() * float64(sampleRate))
}

// DecodeSamples converts little-endian PCM-16 bytes into samples.
func DecodeSamples(pcm []byte) ([]int16, error) {
	if len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("audio data length must be even (got %d bytes)", len(pcm))
	}

	samples := make([]int16, len(pcm)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return samples, nil
}

// EncodeSamples converts samples back into little-endian PCM-16 bytes.
func EncodeSamples(samples []int16) []byte {
	pcm := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}
	return pcm
}
