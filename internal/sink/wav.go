package sink

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/meetbotics/realtime-playback/internal/audio"
)

// WAVRecorder buffers played frames in memory and writes a single WAV file
// on Close. All frames must share one sample rate; the first frame pins it.
type WAVRecorder struct {
	logger *slog.Logger
	path   string

	mu         sync.Mutex
	pcm        []byte
	sampleRate int
	closed     bool
}

// NewWAVRecorder creates a recorder that will write to the given path
func NewWAVRecorder(logger *slog.Logger, path string) *WAVRecorder {
	return &WAVRecorder{
		logger: logger,
		path:   path,
	}
}

// Write appends the frame to the recording buffer
func (r *WAVRecorder) Write(pcm []byte, sampleRate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("wav recorder is closed")
	}

	if r.sampleRate == 0 {
		r.sampleRate = sampleRate
	} else if r.sampleRate != sampleRate {
		return fmt.Errorf("sample rate changed mid-recording: %d -> %d", r.sampleRate, sampleRate)
	}

	r.pcm = append(r.pcm, pcm...)
	return nil
}

// Close writes the buffered audio to disk. A recording with no frames
// produces no file.
func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if len(r.pcm) == 0 {
		r.logger.Info("WAV recorder closed with no audio, skipping file",
			slog.String("path", r.path),
		)
		return nil
	}

	data, err := audio.EncodeWAV(r.pcm, r.sampleRate)
	if err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write WAV file %s: %w", r.path, err)
	}

	r.logger.Info("WAV recording written",
		slog.String("path", r.path),
		slog.Int("pcm_bytes", len(r.pcm)),
		slog.Int("sample_rate", r.sampleRate),
	)

	return nil
}
