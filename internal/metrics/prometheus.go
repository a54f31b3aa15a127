package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the realtime playback service
type Metrics struct {
	// Ingest metrics
	PacketsReceived  prometheus.Counter
	PacketsProcessed prometheus.Counter
	ParseErrors      prometheus.Counter
	QueueSize        prometheus.Gauge

	// Playback metrics
	FramesEnqueued   prometheus.Counter
	FramesPlayed     prometheus.Counter
	FramesDropped    prometheus.Counter
	ConversionErrors prometheus.Counter
	SinkErrors       prometheus.Counter
	WorkersStarted   prometheus.Counter
	WorkerIdleExits  prometheus.Counter

	// Control metrics
	PauseCommands     prometheus.Counter
	AutoPauseTriggers prometheus.Counter
	PauseDuration     prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Ingest metrics
		PacketsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_packets_received_total",
			Help: "Total number of packets received",
		}),
		PacketsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_packets_processed_total",
			Help: "Total number of packets successfully processed",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_parse_errors_total",
			Help: "Total number of packet parsing errors",
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playback_packet_queue_size",
			Help: "Current number of packets in the ingest queue",
		}),

		// Playback metrics
		FramesEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_frames_enqueued_total",
			Help: "Total number of audio frames enqueued for playback",
		}),
		FramesPlayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_frames_played_total",
			Help: "Total number of audio frames delivered to the output sink",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_frames_dropped_total",
			Help: "Total number of audio frames dropped before playback",
		}),
		ConversionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_conversion_errors_total",
			Help: "Total number of sample rate conversion failures",
		}),
		SinkErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_sink_errors_total",
			Help: "Total number of output sink failures",
		}),
		WorkersStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_workers_started_total",
			Help: "Total number of playback worker starts",
		}),
		WorkerIdleExits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_worker_idle_exits_total",
			Help: "Total number of playback workers that exited after idling",
		}),

		// Control metrics
		PauseCommands: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_pause_commands_total",
			Help: "Total number of explicit pause commands received",
		}),
		AutoPauseTriggers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playback_auto_pause_triggers_total",
			Help: "Total number of pauses triggered by meeting audio loudness",
		}),
		PauseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "playback_pause_duration_seconds",
			Help:    "Requested pause window durations",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1.5 minutes
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "playback_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "playback_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "playback_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordPacketReceived increments the packets received counter
func (m *Metrics) RecordPacketReceived() {
	m.PacketsReceived.Inc()
}

// RecordPacketProcessed increments the packets processed counter
func (m *Metrics) RecordPacketProcessed() {
	m.PacketsProcessed.Inc()
}

// RecordParseError increments the parse errors counter
func (m *Metrics) RecordParseError() {
	m.ParseErrors.Inc()
}

// SetQueueSize sets the current ingest queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// RecordFrameEnqueued increments the frames enqueued counter
func (m *Metrics) RecordFrameEnqueued() {
	m.FramesEnqueued.Inc()
}

// RecordFramePlayed increments the frames played counter
func (m *Metrics) RecordFramePlayed() {
	m.FramesPlayed.Inc()
}

// RecordFrameDropped increments the frames dropped counter
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordConversionError increments the conversion errors counter
func (m *Metrics) RecordConversionError() {
	m.ConversionErrors.Inc()
}

// RecordSinkError increments the sink errors counter
func (m *Metrics) RecordSinkError() {
	m.SinkErrors.Inc()
}

// RecordWorkerStarted increments the workers started counter
func (m *Metrics) RecordWorkerStarted() {
	m.WorkersStarted.Inc()
}

// RecordWorkerIdleExit increments the worker idle exits counter
func (m *Metrics) RecordWorkerIdleExit() {
	m.WorkerIdleExits.Inc()
}

// RecordPauseCommand records an explicit pause command and its window
func (m *Metrics) RecordPauseCommand(durationSeconds float64) {
	m.PauseCommands.Inc()
	m.PauseDuration.Observe(durationSeconds)
}

// RecordAutoPauseTrigger records a loudness-triggered pause and its window
func (m *Metrics) RecordAutoPauseTrigger(durationSeconds float64) {
	m.AutoPauseTriggers.Inc()
	m.PauseDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
