package loudness

import (
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/meetbotics/realtime-playback/internal/audio"
)

const (
	// ThresholdEnvVar overrides the auto-pause amplitude threshold when no
	// per-instance value is configured.
	ThresholdEnvVar = "REALTIME_AUDIO_AUTOPAUSE_THRESHOLD"

	// defaultThreshold is the built-in amplitude threshold used when
	// neither configuration nor the environment provides one.
	defaultThreshold = 1500

	// defaultPauseDuration is the fixed window applied on every trigger.
	// Sustained loud audio keeps re-applying it, and the gate's
	// max-combination rule turns that into a rolling pause.
	defaultPauseDuration = 1 * time.Second
)

// Pauser is the playback suspension entry point the monitor drives
type Pauser interface {
	PauseFor(d time.Duration)
}

// Config contains loudness monitor configuration
type Config struct {
	// Threshold is the per-instance amplitude threshold. Zero means
	// unset; resolution falls through to the environment, then the
	// built-in default.
	Threshold int

	// PauseDuration is the fixed pause window applied per trigger.
	// Zero selects the default.
	PauseDuration time.Duration
}

// Monitor watches inbound mixed meeting audio and pauses playback while
// other participants are speaking loudly enough. The threshold is resolved
// once at construction: per-instance config, then environment override,
// then the built-in default.
type Monitor struct {
	logger *slog.Logger
	pauser Pauser

	threshold     int
	pauseDuration time.Duration

	chunksSeen atomic.Uint64
	triggers   atomic.Uint64
}

// MonitorStats represents monitor statistics
type MonitorStats struct {
	Threshold     int     `json:"threshold"`
	PauseDuration float64 `json:"pause_duration_seconds"`
	ChunksSeen    uint64  `json:"chunks_seen"`
	Triggers      uint64  `json:"triggers"`
}

// NewMonitor creates a loudness monitor driving the given pauser
func NewMonitor(logger *slog.Logger, pauser Pauser, cfg Config) *Monitor {
	pauseDuration := cfg.PauseDuration
	if pauseDuration <= 0 {
		pauseDuration = defaultPauseDuration
	}

	return &Monitor{
		logger:        logger,
		pauser:        pauser,
		threshold:     resolveThreshold(cfg.Threshold),
		pauseDuration: pauseDuration,
	}
}

// resolveThreshold applies the documented precedence: per-instance
// configuration, then the environment override, then the built-in default
func resolveThreshold(configured int) int {
	if configured > 0 {
		return configured
	}

	if v := os.Getenv(ThresholdEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}

	return defaultThreshold
}

// Threshold returns the resolved amplitude threshold
func (m *Monitor) Threshold() int {
	return m.threshold
}

// Process examines one chunk of mixed meeting audio and pauses playback
// when its peak amplitude exceeds the threshold. Malformed chunks are
// logged and skipped.
func (m *Monitor) Process(pcm []byte) {
	peak, err := PeakAmplitude(pcm)
	if err != nil {
		m.logger.Warn("Skipping malformed monitor chunk",
			slog.Int("chunk_size", len(pcm)),
			slog.String("error", err.Error()),
		)
		return
	}
	m.chunksSeen.Add(1)

	if peak <= m.threshold {
		return
	}

	m.pauser.PauseFor(m.pauseDuration)
	m.triggers.Add(1)

	m.logger.Debug("Auto-pause triggered by meeting audio",
		slog.Int("peak_amplitude", peak),
		slog.Int("threshold", m.threshold),
		slog.Duration("pause_duration", m.pauseDuration),
	)
}

// GetStats returns current monitor statistics
func (m *Monitor) GetStats() MonitorStats {
	return MonitorStats{
		Threshold:     m.threshold,
		PauseDuration: m.pauseDuration.Seconds(),
		ChunksSeen:    m.chunksSeen.Load(),
		Triggers:      m.triggers.Load(),
	}
}

// PeakAmplitude returns the maximum absolute 16-bit sample value in the
// chunk
func PeakAmplitude(pcm []byte) (int, error) {
	samples, err := audio.DecodeSamples(pcm)
	if err != nil {
		return 0, err
	}

	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak, nil
}
