package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Converter converts PCM frames from their source sample rate to a fixed
// output rate. Exact integer upsampling ratios use sample repetition, which
// is cheaper and perceptually smoother for short chunks than a filtering
// resampler. Everything else (including downsampling) goes through a
// generic resampler instantiated per call, so no filter state ever crosses
// a chunk boundary.
type Converter struct {
	outputRate int
}

// NewConverter creates a converter targeting the given output sample rate
func NewConverter(outputRate int) (*Converter, error) {
	if outputRate <= 0 {
		return nil, fmt.Errorf("output sample rate must be positive, got %d", outputRate)
	}
	return &Converter{outputRate: outputRate}, nil
}

// OutputRate returns the fixed target sample rate
func (c *Converter) OutputRate() int {
	return c.outputRate
}

// Convert returns the frame converted to the output sample rate. The input
// is returned unmodified when the rates already match.
func (c *Converter) Convert(pcm []byte, srcRate int) ([]byte, error) {
	if srcRate <= 0 {
		return nil, fmt.Errorf("source sample rate must be positive, got %d", srcRate)
	}

	if len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("audio data length must be even (got %d bytes)", len(pcm))
	}

	if srcRate == c.outputRate {
		return pcm, nil
	}

	if ratio := c.outputRate / srcRate; c.outputRate%srcRate == 0 && ratio > 1 {
		return repeatSamples(pcm, ratio), nil
	}

	return c.resample(pcm, srcRate)
}

// repeatSamples upsamples by duplicating each 16-bit sample ratio times,
// preserving order (e.g. [1 2 3] -> [1 1 2 2 3 3] for ratio 2).
func repeatSamples(pcm []byte, ratio int) []byte {
	out := make([]byte, len(pcm)*ratio)
	for i := 0; i < len(pcm); i += BytesPerSample {
		base := i * ratio
		for r := 0; r < ratio; r++ {
			out[base+r*2] = pcm[i]
			out[base+r*2+1] = pcm[i+1]
		}
	}
	return out
}

// resample performs generic rate conversion through the resampling library.
// A fresh resampler is created for every call; the resulting lack of
// cross-chunk filter continuity is an accepted quality trade-off for the
// small chunk sizes this pipeline carries.
func (c *Converter) resample(pcm []byte, srcRate int) ([]byte, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(c.outputRate),
		Channels:   Channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	samples, err := DecodeSamples(pcm)
	if err != nil {
		return nil, err
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	out := make([]int16, len(output))
	for i, v := range output {
		switch {
		case v >= 1.0:
			out[i] = 32767
		case v <= -1.0:
			out[i] = -32768
		default:
			out[i] = int16(v * 32767.0)
		}
	}

	return EncodeSamples(out), nil
}
