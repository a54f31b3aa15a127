package playback

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/meetbotics/realtime-playback/internal/audio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// captureSink records every frame handed to the sink
type captureSink struct {
	mu     sync.Mutex
	frames [][]byte
	rates  []int
	err    error
}

func (s *captureSink) write(pcm []byte, sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make([]byte, len(pcm))
	copy(data, pcm)
	s.frames = append(s.frames, data)
	s.rates = append(s.rates, sampleRate)
	return s.err
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *captureSink) frame(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i]
}

func (s *captureSink) rate(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rates[i]
}

// waitFor polls until cond is true or the deadline expires
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func newTestManager(t *testing.T, sink *captureSink, outputRate int) *Manager {
	t.Helper()

	m, err := NewManager(testLogger(), Config{
		Sink:             sink.write,
		OutputSampleRate: outputRate,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(m.Cleanup)
	return m
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(testLogger(), Config{OutputSampleRate: 16000}); err == nil {
		t.Error("expected error for missing sink, got nil")
	}

	sink := &captureSink{}
	if _, err := NewManager(testLogger(), Config{
		Sink:             sink.write,
		OutputSampleRate: 0,
	}); err == nil {
		t.Error("expected error for zero output rate, got nil")
	}

	if _, err := NewManager(testLogger(), Config{
		Sink:                      sink.write,
		OutputSampleRate:          16000,
		InterChunkDelayMultiplier: -1,
	}); err == nil {
		t.Error("expected error for negative delay multiplier, got nil")
	}
}

func TestPlaybackOrderAndConversion(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink, 16000)

	// 2.5 frames at 8000 Hz; each input frame converts to one full output
	// frame via ratio-2 sample repetition.
	inputFrameSize := audio.FrameSizeBytes(8000)
	chunk := make([]byte, inputFrameSize*2+inputFrameSize/2)
	for i := 0; i < len(chunk); i += 2 {
		chunk[i] = byte(i / 2)
		chunk[i+1] = byte(i / 512)
	}

	m.AddChunk(chunk, 8000)

	if !waitFor(t, 2*time.Second, func() bool { return sink.count() == 2 }) {
		t.Fatalf("expected 2 frames played, got %d", sink.count())
	}

	outputFrameSize := audio.FrameSizeBytes(16000)
	for i := 0; i < 2; i++ {
		frame := sink.frame(i)
		if len(frame) != outputFrameSize {
			t.Errorf("frame %d: expected %d bytes, got %d", i, outputFrameSize, len(frame))
		}
	}

	// First output sample pair must be the first input sample, repeated.
	first := sink.frame(0)
	if first[0] != chunk[0] || first[1] != chunk[1] || first[2] != chunk[0] || first[3] != chunk[1] {
		t.Error("first frame does not start with the repeated first input sample")
	}

	if sink.rate(0) != 16000 {
		t.Errorf("expected output rate 16000, got %d", sink.rate(0))
	}

	// The half-frame tail stays buffered, never played.
	if sink.count() != 2 {
		t.Errorf("partial frame leaked to the sink: %d calls", sink.count())
	}
}

func TestPauseDefersPlayback(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink, 16000)

	m.PauseFor(200 * time.Millisecond)

	frame := make([]byte, audio.FrameSizeBytes(16000))
	for i := range frame {
		frame[i] = byte(i)
	}
	m.AddChunk(frame, 16000)

	time.Sleep(80 * time.Millisecond)
	if got := sink.count(); got != 0 {
		t.Fatalf("frame played during pause window: %d calls", got)
	}

	if !waitFor(t, 2*time.Second, func() bool { return sink.count() == 1 }) {
		t.Fatalf("expected 1 frame after pause expiry, got %d", sink.count())
	}

	// Pausing delays the frame but never modifies or drops it.
	if !bytes.Equal(sink.frame(0), frame) {
		t.Error("frame was modified while paused")
	}
}

func TestPauseCombinesViaMax(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink, 16000)

	m.PauseFor(300 * time.Millisecond)
	m.PauseFor(100 * time.Millisecond)

	start := time.Now()
	m.AddChunk(make([]byte, audio.FrameSizeBytes(16000)), 16000)

	if !waitFor(t, 2*time.Second, func() bool { return sink.count() == 1 }) {
		t.Fatal("frame never played")
	}

	// The second, shorter request must not have cut the window.
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
		t.Errorf("frame played after %v, before the longer pause expired", elapsed)
	}
}

func TestCleanupDropsPendingFrames(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink, 16000)

	// Hold playback so every frame stays pending.
	m.PauseFor(time.Hour)

	frameSize := audio.FrameSizeBytes(16000)
	m.AddChunk(make([]byte, frameSize*5), 16000)

	time.Sleep(100 * time.Millisecond)
	if got := sink.count(); got != 0 {
		t.Fatalf("frames played during pause: %d", got)
	}

	m.Cleanup()

	stats := m.GetStats()
	if stats.WorkerRunning {
		t.Error("worker still running after Cleanup")
	}
	if stats.QueueLength != 0 {
		t.Errorf("queue not drained: %d frames", stats.QueueLength)
	}
	if stats.FramesDropped < 4 {
		t.Errorf("expected at least 4 dropped frames, got %d", stats.FramesDropped)
	}
	if stats.PauseRemaining != 0 {
		t.Errorf("pause gate not reset: %v remaining", stats.PauseRemaining)
	}

	// Dropped frames are never flushed to the sink afterwards.
	time.Sleep(100 * time.Millisecond)
	if got := sink.count(); got != 0 {
		t.Errorf("frames leaked to the sink after Cleanup: %d", got)
	}
}

func TestManagerReusableAfterCleanup(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink, 16000)

	frame := make([]byte, audio.FrameSizeBytes(16000))

	m.AddChunk(frame, 16000)
	if !waitFor(t, 2*time.Second, func() bool { return sink.count() == 1 }) {
		t.Fatal("first frame never played")
	}

	m.Cleanup()

	m.AddChunk(frame, 16000)
	if !waitFor(t, 2*time.Second, func() bool { return sink.count() == 2 }) {
		t.Fatal("frame not played after Cleanup; manager is not reusable")
	}

	if starts := m.GetStats().WorkerStarts; starts != 2 {
		t.Errorf("expected 2 worker starts, got %d", starts)
	}
}

func TestWorkerIdleExitAndRespawn(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink, 16000)
	m.idleTimeout = 200 * time.Millisecond

	frame := make([]byte, audio.FrameSizeBytes(16000))

	m.AddChunk(frame, 16000)
	if !waitFor(t, 2*time.Second, func() bool { return sink.count() == 1 }) {
		t.Fatal("frame never played")
	}

	// The worker re-checks idleness on its pop timeout tick.
	if !waitFor(t, 3*time.Second, func() bool { return !m.GetStats().WorkerRunning }) {
		t.Fatal("worker did not exit after idle timeout")
	}

	if m.GetStats().IdleExits != 1 {
		t.Errorf("expected 1 idle exit, got %d", m.GetStats().IdleExits)
	}

	// New audio transparently respawns the worker.
	m.AddChunk(frame, 16000)
	if !waitFor(t, 2*time.Second, func() bool { return sink.count() == 2 }) {
		t.Fatal("frame not played after idle exit; worker did not respawn")
	}

	if starts := m.GetStats().WorkerStarts; starts != 2 {
		t.Errorf("expected 2 worker starts, got %d", starts)
	}
}

func TestStoppedWorkerNeverPlaysPoppedFrame(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink, 16000)

	w := &workerHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	w.requestStop()

	frame := audio.Frame{
		Data:       make([]byte, audio.FrameSizeBytes(16000)),
		SampleRate: 16000,
	}
	m.playFrame(frame, w)

	if sink.count() != 0 {
		t.Errorf("frame played after stop was requested: %d sink calls", sink.count())
	}
	if m.GetStats().FramesPlayed != 0 {
		t.Errorf("stopped frame counted as played")
	}
}

func TestSinkErrorDoesNotHaltPipeline(t *testing.T) {
	sink := &captureSink{err: fmt.Errorf("downstream unavailable")}
	m := newTestManager(t, sink, 16000)

	frameSize := audio.FrameSizeBytes(16000)
	m.AddChunk(make([]byte, frameSize*3), 16000)

	if !waitFor(t, 2*time.Second, func() bool { return sink.count() == 3 }) {
		t.Fatalf("expected 3 sink attempts despite errors, got %d", sink.count())
	}

	stats := m.GetStats()
	if stats.SinkErrors != 3 {
		t.Errorf("expected 3 sink errors, got %d", stats.SinkErrors)
	}
	if stats.FramesPlayed != 0 {
		t.Errorf("failed frames must not count as played, got %d", stats.FramesPlayed)
	}
}

func TestPacingDelaysBetweenFrames(t *testing.T) {
	sink := &captureSink{}
	m, err := NewManager(testLogger(), Config{
		Sink:                      sink.write,
		OutputSampleRate:          16000,
		InterChunkDelayMultiplier: 1.0,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(m.Cleanup)

	frameSize := audio.FrameSizeBytes(16000)
	start := time.Now()
	m.AddChunk(make([]byte, frameSize*3), 16000)

	if !waitFor(t, 3*time.Second, func() bool { return sink.count() == 3 }) {
		t.Fatalf("expected 3 frames, got %d", sink.count())
	}

	// Three frames with 100ms pacing after each need at least two full
	// inter-frame delays between the first and last sink call.
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("pacing not applied: 3 frames in %v", elapsed)
	}
}
