package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meetbotics/realtime-playback/internal/audio"
)

const (
	// queueCapacity bounds the frame FIFO; a producer outrunning the sink
	// by more than this drops frames rather than growing without limit.
	queueCapacity = 256

	// popTimeout bounds how long the worker blocks on an empty queue
	// before re-checking the idle deadline.
	popTimeout = 1 * time.Second

	// defaultIdleTimeout is how long the worker survives without a new
	// frame before reclaiming itself. The next AddChunk respawns it.
	defaultIdleTimeout = 10 * time.Second

	// pollInterval is the slice granularity for pause and pacing waits,
	// bounding pause and stop latency.
	pollInterval = 50 * time.Millisecond
)

// Sink is the downstream consumer of output audio, called once per ready
// frame with output-rate PCM. Errors are logged and the frame is dropped;
// a failing sink never halts the pipeline.
type Sink func(pcm []byte, sampleRate int) error

// Recorder receives playback lifecycle events for metrics. Implementations
// must be safe for concurrent use.
type Recorder interface {
	RecordFrameEnqueued()
	RecordFramePlayed()
	RecordFrameDropped()
	RecordConversionError()
	RecordSinkError()
	RecordWorkerStarted()
	RecordWorkerIdleExit()
}

// Config contains playback manager configuration
type Config struct {
	// Sink is called with each converted frame. Required.
	Sink Sink

	// InterChunkDelayMultiplier scales the pacing sleep between frames
	// (multiplier x frame duration). Zero disables pacing.
	InterChunkDelayMultiplier float64

	// OutputSampleRate is the fixed rate every frame is converted to
	// before reaching the sink. Required.
	OutputSampleRate int

	// Recorder receives metrics events. Optional.
	Recorder Recorder
}

// Manager owns the realtime playback pipeline: chunk accumulation, the
// frame FIFO, a lazily spawned playback worker, and the pause gate.
// AddChunk calls must be serialized by the caller; PauseFor and Cleanup
// may be called from any goroutine at any time.
type Manager struct {
	logger *slog.Logger

	sink            Sink
	delayMultiplier float64
	recorder        Recorder

	accumulator *audio.Accumulator
	converter   *audio.Converter
	gate        *Gate

	queue chan audio.Frame

	// Lifecycle state: at most one worker exists at any time. The lock
	// prevents duplicate spawns; liveness is re-checked under it.
	mu     sync.Mutex
	worker *workerHandle

	lastEnqueueNanos atomic.Int64
	idleTimeout      time.Duration

	// Statistics
	framesEnqueued   atomic.Uint64
	framesPlayed     atomic.Uint64
	framesDropped    atomic.Uint64
	conversionErrors atomic.Uint64
	sinkErrors       atomic.Uint64
	workerStarts     atomic.Uint64
	idleExits        atomic.Uint64
}

// workerHandle identifies one worker generation. Each spawn gets a fresh
// stop channel so a cleaned-up manager can transparently restart.
type workerHandle struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (w *workerHandle) requestStop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Stats represents a snapshot of manager state for monitoring
type Stats struct {
	WorkerRunning    bool          `json:"worker_running"`
	QueueLength      int           `json:"queue_length"`
	QueueCapacity    int           `json:"queue_capacity"`
	PauseRemaining   time.Duration `json:"pause_remaining"`
	FramesEnqueued   uint64        `json:"frames_enqueued"`
	FramesPlayed     uint64        `json:"frames_played"`
	FramesDropped    uint64        `json:"frames_dropped"`
	ConversionErrors uint64        `json:"conversion_errors"`
	SinkErrors       uint64        `json:"sink_errors"`
	WorkerStarts     uint64        `json:"worker_starts"`
	IdleExits        uint64        `json:"idle_exits"`

	Accumulator audio.AccumulatorStats `json:"accumulator"`
}

// NewManager creates a playback manager. No worker is started until the
// first frame is enqueued.
func NewManager(logger *slog.Logger, cfg Config) (*Manager, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("sink callback is required")
	}

	if cfg.InterChunkDelayMultiplier < 0 {
		return nil, fmt.Errorf("inter-chunk delay multiplier cannot be negative, got %f",
			cfg.InterChunkDelayMultiplier)
	}

	converter, err := audio.NewConverter(cfg.OutputSampleRate)
	if err != nil {
		return nil, fmt.Errorf("invalid output sample rate: %w", err)
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Manager{
		logger:          logger,
		sink:            cfg.Sink,
		delayMultiplier: cfg.InterChunkDelayMultiplier,
		recorder:        recorder,
		accumulator:     audio.NewAccumulator(logger),
		converter:       converter,
		gate:            NewGate(),
		queue:           make(chan audio.Frame, queueCapacity),
		idleTimeout:     defaultIdleTimeout,
	}, nil
}

// OutputSampleRate returns the fixed output rate frames are converted to
func (m *Manager) OutputSampleRate() int {
	return m.converter.OutputRate()
}

// AddChunk feeds inbound PCM audio into the pipeline. Complete frames are
// enqueued in order and a worker is spawned if none is alive. Degenerate
// sample rates are rejected inside the accumulator with a logged warning.
func (m *Manager) AddChunk(chunk []byte, sampleRate int) {
	for _, frame := range m.accumulator.Push(chunk, sampleRate) {
		m.enqueue(frame)
	}
}

// PauseFor suspends playback for the given duration. Concurrent and
// repeated requests are cumulative via max, never additive.
func (m *Manager) PauseFor(d time.Duration) {
	m.gate.PauseFor(d)
}

// Cleanup stops the worker, drops all pending frames without playing them,
// and clears the pause gate. No sink invocation happens after it returns.
// Safe to call multiple times; a later AddChunk restarts playback.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	w := m.worker
	m.mu.Unlock()

	if w != nil {
		w.requestStop()
	}

	// Pending unplayed frames are dropped, never flushed.
drain:
	for {
		select {
		case <-m.queue:
			m.framesDropped.Add(1)
			m.recorder.RecordFrameDropped()
		default:
			break drain
		}
	}

	if w != nil {
		<-w.done
	}

	m.gate.Reset()
}

// GetStats returns a snapshot of manager state
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	running := m.worker != nil
	m.mu.Unlock()

	return Stats{
		WorkerRunning:    running,
		QueueLength:      len(m.queue),
		QueueCapacity:    cap(m.queue),
		PauseRemaining:   m.gate.Remaining(),
		FramesEnqueued:   m.framesEnqueued.Load(),
		FramesPlayed:     m.framesPlayed.Load(),
		FramesDropped:    m.framesDropped.Load(),
		ConversionErrors: m.conversionErrors.Load(),
		SinkErrors:       m.sinkErrors.Load(),
		WorkerStarts:     m.workerStarts.Load(),
		IdleExits:        m.idleExits.Load(),
		Accumulator:      m.accumulator.GetStats(),
	}
}

// enqueue pushes a frame to the FIFO and ensures a worker is alive to
// consume it. A full queue drops the frame with a warning.
func (m *Manager) enqueue(frame audio.Frame) {
	select {
	case m.queue <- frame:
	default:
		m.framesDropped.Add(1)
		m.recorder.RecordFrameDropped()
		m.logger.Warn("Playback queue full, dropping frame",
			slog.Int("frame_size", len(frame.Data)),
			slog.Int("sample_rate", frame.SampleRate),
		)
		return
	}

	m.lastEnqueueNanos.Store(time.Now().UnixNano())
	m.framesEnqueued.Add(1)
	m.recorder.RecordFrameEnqueued()

	m.ensureWorker()
}

// ensureWorker spawns the playback worker if none is alive. Liveness is
// re-checked under the lifecycle lock so concurrent producers cannot
// double-spawn.
func (m *Manager) ensureWorker() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.worker != nil {
		return
	}

	w := &workerHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	m.worker = w
	m.workerStarts.Add(1)
	m.recorder.RecordWorkerStarted()

	go m.run(w)

	m.logger.Info("Playback worker started")
}

// run is the worker loop: pop with a bounded wait, convert, honor the
// pause gate, play, pace. The worker self-terminates after idleTimeout
// without a new frame; that is resource reclamation, not cancellation.
func (m *Manager) run(w *workerHandle) {
	defer func() {
		m.mu.Lock()
		if m.worker == w {
			m.worker = nil
		}
		m.mu.Unlock()
		close(w.done)
		m.logger.Info("Playback worker exited")
	}()

	for {
		select {
		case <-w.stop:
			return

		case frame := <-m.queue:
			m.playFrame(frame, w)

		case <-time.After(popTimeout):
			last := time.Unix(0, m.lastEnqueueNanos.Load())
			if time.Since(last) <= m.idleTimeout {
				continue
			}

			// Re-check the queue under the lifecycle lock: a producer may
			// have enqueued after our last pop but before spawning would
			// be allowed again.
			m.mu.Lock()
			if len(m.queue) > 0 {
				m.mu.Unlock()
				continue
			}
			if m.worker == w {
				m.worker = nil
			}
			m.mu.Unlock()

			m.idleExits.Add(1)
			m.recorder.RecordWorkerIdleExit()
			m.logger.Info("Playback worker idle timeout reached",
				slog.Duration("idle_timeout", m.idleTimeout),
			)
			return
		}
	}
}

// playFrame handles a single frame. Every failure is isolated to this
// frame; the worker always moves on to the next item.
func (m *Manager) playFrame(frame audio.Frame, w *workerHandle) {
	// A frame popped in the same instant stop was requested must not play.
	select {
	case <-w.stop:
		return
	default:
	}

	defer func() {
		if r := recover(); r != nil {
			m.sinkErrors.Add(1)
			m.recorder.RecordSinkError()
			m.logger.Error("Panic while playing frame, skipping",
				slog.Any("panic", r),
			)
		}
	}()

	converted, err := m.converter.Convert(frame.Data, frame.SampleRate)
	if err != nil {
		m.conversionErrors.Add(1)
		m.recorder.RecordConversionError()
		m.logger.Warn("Dropping frame: sample rate conversion failed",
			slog.Int("sample_rate", frame.SampleRate),
			slog.Int("frame_size", len(frame.Data)),
			slog.String("error", err.Error()),
		)
		return
	}

	if !m.waitWhilePaused(w) {
		return // stop requested during pause
	}

	if err := m.sink(converted, m.converter.OutputRate()); err != nil {
		m.sinkErrors.Add(1)
		m.recorder.RecordSinkError()
		m.logger.Warn("Sink callback failed, continuing",
			slog.Int("frame_size", len(converted)),
			slog.String("error", err.Error()),
		)
	} else {
		m.framesPlayed.Add(1)
		m.recorder.RecordFramePlayed()
	}

	m.pace(w)
}

// waitWhilePaused blocks in short slices until the pause gate clears.
// Returns false if stop was requested while waiting.
func (m *Manager) waitWhilePaused(w *workerHandle) bool {
	for {
		remaining := m.gate.Remaining()
		if remaining <= 0 {
			return true
		}

		wait := remaining
		if wait > pollInterval {
			wait = pollInterval
		}

		select {
		case <-w.stop:
			return false
		case <-time.After(wait):
		}
	}
}

// pace sleeps multiplier x frame duration between frames, in short slices.
// It returns early if a pause becomes active (so the next frame's pre-play
// wait handles it promptly) or stop is requested.
func (m *Manager) pace(w *workerHandle) {
	total := time.Duration(m.delayMultiplier * float64(audio.FrameDuration))
	if total <= 0 {
		return
	}

	deadline := time.Now().Add(total)
	for {
		if m.gate.Active() {
			return
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}

		wait := remaining
		if wait > pollInterval {
			wait = pollInterval
		}

		select {
		case <-w.stop:
			return
		case <-time.After(wait):
		}
	}
}

// nopRecorder is used when no metrics recorder is configured
type nopRecorder struct{}

func (nopRecorder) RecordFrameEnqueued()   {}
func (nopRecorder) RecordFramePlayed()     {}
func (nopRecorder) RecordFrameDropped()    {}
func (nopRecorder) RecordConversionError() {}
func (nopRecorder) RecordSinkError()       {}
func (nopRecorder) RecordWorkerStarted()   {}
func (nopRecorder) RecordWorkerIdleExit()  {}
