package audio

import (
	"log/slog"
	"sync"
	"time"
)

// staleResidueThreshold is the silence gap after which any partial frame
// left in the buffer is considered a stale tail and discarded.
const staleResidueThreshold = 150 * time.Millisecond

// Frame is one fixed-duration slice of PCM audio cut by the Accumulator,
// still at its source sample rate.
type Frame struct {
	Data       []byte
	SampleRate int
}

// Accumulator coalesces arbitrary-sized inbound byte chunks into
// fixed-duration frames. Push calls must be serialized by the caller to
// preserve frame order; the internal lock only makes stats snapshots safe
// against a concurrent producer.
type Accumulator struct {
	logger *slog.Logger

	mu           sync.RWMutex
	buf          []byte
	lastActivity time.Time

	// Statistics
	chunksReceived uint64
	framesEmitted  uint64
	staleDiscards  uint64
	rejectedChunks uint64
}

// AccumulatorStats represents accumulator statistics for monitoring
type AccumulatorStats struct {
	BufferedBytes  int       `json:"buffered_bytes"`
	ChunksReceived uint64    `json:"chunks_received"`
	FramesEmitted  uint64    `json:"frames_emitted"`
	StaleDiscards  uint64    `json:"stale_discards"`
	RejectedChunks uint64    `json:"rejected_chunks"`
	LastActivity   time.Time `json:"last_activity"`
}

// NewAccumulator creates a new chunk accumulator
func NewAccumulator(logger *slog.Logger) *Accumulator {
	return &Accumulator{
		logger:       logger,
		lastActivity: time.Now(),
	}
}

// Push appends a chunk of PCM audio and returns every complete frame that
// can be sliced off the front of the buffer, in order. The remainder stays
// buffered for the next call. If more than staleResidueThreshold has passed
// since the previous call, any buffered residue is dropped first.
func (a *Accumulator) Push(chunk []byte, sampleRate int) []Frame {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()

	frameSize := FrameSizeBytes(sampleRate)
	if frameSize <= 0 {
		a.rejectedChunks++
		a.lastActivity = now
		a.logger.Warn("Rejecting chunk with degenerate sample rate",
			slog.Int("sample_rate", sampleRate),
			slog.Int("chunk_size", len(chunk)),
		)
		return nil
	}

	if now.Sub(a.lastActivity) > staleResidueThreshold && len(a.buf) > 0 {
		a.staleDiscards++
		a.logger.Debug("Discarding stale buffered residue",
			slog.Int("residue_bytes", len(a.buf)),
			slog.Duration("gap", now.Sub(a.lastActivity)),
		)
		a.buf = a.buf[:0]
	}
	a.lastActivity = now
	a.chunksReceived++

	a.buf = append(a.buf, chunk...)

	var frames []Frame
	for len(a.buf) >= frameSize {
		data := make([]byte, frameSize)
		copy(data, a.buf[:frameSize])
		a.buf = a.buf[:copy(a.buf, a.buf[frameSize:])]

		frames = append(frames, Frame{Data: data, SampleRate: sampleRate})
		a.framesEmitted++
	}

	return frames
}

// LastActivity returns the time of the most recent Push call
func (a *Accumulator) LastActivity() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.lastActivity
}

// BufferedBytes returns the current number of bytes awaiting a frame boundary
func (a *Accumulator) BufferedBytes() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.buf)
}

// GetStats returns current accumulator statistics
func (a *Accumulator) GetStats() AccumulatorStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return AccumulatorStats{
		BufferedBytes:  len(a.buf),
		ChunksReceived: a.chunksReceived,
		FramesEmitted:  a.framesEmitted,
		StaleDiscards:  a.staleDiscards,
		RejectedChunks: a.rejectedChunks,
		LastActivity:   a.lastActivity,
	}
}
