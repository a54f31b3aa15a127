package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meetbotics/realtime-playback/internal/loudness"
	"github.com/meetbotics/realtime-playback/internal/metrics"
	"github.com/meetbotics/realtime-playback/internal/playback"
	"github.com/meetbotics/realtime-playback/internal/protocol"
)

// Dispatcher routes parsed packets to the playback pipeline. It owns the
// serialization lock for chunk submission: the accumulator expects callers
// to be serialized, and packets can arrive from both the UDP and WebSocket
// paths.
type Dispatcher struct {
	logger  *slog.Logger
	manager *playback.Manager
	monitor *loudness.Monitor
	metrics *metrics.Metrics

	// Serializes AddChunk and monitor submission across ingest paths.
	mu sync.Mutex

	audioPackets   atomic.Uint64
	controlPackets atomic.Uint64
	monitorPackets atomic.Uint64
	parseErrors    atomic.Uint64
}

// DispatcherStats represents dispatcher statistics
type DispatcherStats struct {
	AudioPackets   uint64 `json:"audio_packets"`
	ControlPackets uint64 `json:"control_packets"`
	MonitorPackets uint64 `json:"monitor_packets"`
	ParseErrors    uint64 `json:"parse_errors"`
}

// NewDispatcher creates a dispatcher. Metrics may be nil.
func NewDispatcher(logger *slog.Logger, manager *playback.Manager,
	monitor *loudness.Monitor, m *metrics.Metrics) *Dispatcher {

	return &Dispatcher{
		logger:  logger,
		manager: manager,
		monitor: monitor,
		metrics: m,
	}
}

// HandleRaw parses one wire packet and dispatches it. Malformed packets are
// logged and counted, never fatal.
func (d *Dispatcher) HandleRaw(data []byte) {
	packet, err := protocol.ParsePacket(data)
	if err != nil {
		d.parseErrors.Add(1)
		if d.metrics != nil {
			d.metrics.RecordParseError()
		}
		d.logger.Warn("Failed to parse packet",
			slog.Int("packet_size", len(data)),
			slog.String("error", err.Error()),
		)
		return
	}

	d.Dispatch(packet)
}

// Dispatch routes a parsed packet by type
func (d *Dispatcher) Dispatch(packet *protocol.Packet) {
	switch packet.Header.PacketType {
	case protocol.PacketTypeAudio:
		d.handleAudio(packet.Audio)
	case protocol.PacketTypeControl:
		d.handleControl(packet.Control)
	case protocol.PacketTypeMonitor:
		d.handleMonitor(packet.Audio)
	}

	if d.metrics != nil {
		d.metrics.RecordPacketProcessed()
	}
}

// handleAudio feeds playback audio into the pipeline
func (d *Dispatcher) handleAudio(payload *protocol.AudioPayload) {
	d.audioPackets.Add(1)

	d.mu.Lock()
	d.manager.AddChunk(payload.PCM, int(payload.SampleRate))
	d.mu.Unlock()

	d.logger.Debug("Audio packet dispatched",
		slog.Int("chunk_size", len(payload.PCM)),
		slog.Uint64("sample_rate", uint64(payload.SampleRate)),
	)
}

// handleControl applies control commands
func (d *Dispatcher) handleControl(payload *protocol.ControlPayload) {
	d.controlPackets.Add(1)

	switch payload.Command {
	case protocol.CommandPause:
		d.PauseForMillis(payload.DurationMs)
	default:
		d.logger.Warn("Unknown control command",
			slog.Int("command", int(payload.Command)),
		)
	}
}

// handleMonitor feeds mixed meeting audio to the loudness monitor
func (d *Dispatcher) handleMonitor(payload *protocol.AudioPayload) {
	d.monitorPackets.Add(1)

	d.mu.Lock()
	d.monitor.Process(payload.PCM)
	d.mu.Unlock()
}

// PauseForMillis suspends playback for the given window. Shared by the
// control packet path and the HTTP/WebSocket pause endpoints.
func (d *Dispatcher) PauseForMillis(durationMs uint32) {
	duration := time.Duration(durationMs) * time.Millisecond
	d.manager.PauseFor(duration)

	if d.metrics != nil {
		d.metrics.RecordPauseCommand(duration.Seconds())
	}

	d.logger.Info("Playback pause requested",
		slog.Duration("duration", duration),
	)
}

// GetStats returns current dispatcher statistics
func (d *Dispatcher) GetStats() DispatcherStats {
	return DispatcherStats{
		AudioPackets:   d.audioPackets.Load(),
		ControlPackets: d.controlPackets.Load(),
		MonitorPackets: d.monitorPackets.Load(),
		ParseErrors:    d.parseErrors.Load(),
	}
}

// AutoPauser routes loudness monitor triggers through the playback manager
// while recording them as auto-pause events
type AutoPauser struct {
	manager *playback.Manager
	metrics *metrics.Metrics
}

// NewAutoPauser creates the pauser handed to the loudness monitor. Metrics
// may be nil.
func NewAutoPauser(manager *playback.Manager, m *metrics.Metrics) *AutoPauser {
	return &AutoPauser{manager: manager, metrics: m}
}

// PauseFor suspends playback and records the trigger
func (p *AutoPauser) PauseFor(d time.Duration) {
	p.manager.PauseFor(d)
	if p.metrics != nil {
		p.metrics.RecordAutoPauseTrigger(d.Seconds())
	}
}
