package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meetbotics/realtime-playback/internal/config"
	"github.com/meetbotics/realtime-playback/internal/loudness"
	"github.com/meetbotics/realtime-playback/internal/metrics"
	"github.com/meetbotics/realtime-playback/internal/playback"
)

// HTTPServer provides HTTP API endpoints for monitoring and control
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	manager    *playback.Manager
	monitor    *loudness.Monitor
	dispatcher *Dispatcher
	udpServer  *UDPServer
	wsHandler  *WSHandler
	metrics    *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config,
	manager *playback.Manager, monitor *loudness.Monitor, dispatcher *Dispatcher,
	udpServer *UDPServer, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		manager:    manager,
		monitor:    monitor,
		dispatcher: dispatcher,
		udpServer:  udpServer,
		wsHandler:  NewWSHandler(logger, dispatcher),
		metrics:    m,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Playback control
	mux.HandleFunc("/pause", h.withMetrics("/pause", h.handlePause))

	// WebSocket control channel (no metrics wrapper, connections are long-lived)
	mux.Handle("/ws", h.wsHandler)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	udpStats := h.udpServer.GetStatistics()
	playbackStats := h.manager.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "realtime-playback",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"udp_server": map[string]interface{}{
				"status":           "running",
				"packets_received": udpStats.PacketsReceived,
				"packets_dropped":  udpStats.PacketsDropped,
				"queue_size":       udpStats.QueueSize,
			},
			"playback": map[string]interface{}{
				"status":         "running",
				"worker_running": playbackStats.WorkerRunning,
				"frames_played":  playbackStats.FramesPlayed,
				"frames_dropped": playbackStats.FramesDropped,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":     uptime.String(),
		"timestamp":  time.Now().UTC(),
		"udp":        h.udpServer.GetStatistics(),
		"dispatcher": h.dispatcher.GetStats(),
		"playback":   h.manager.GetStats(),
		"auto_pause": h.monitor.GetStats(),
		"websocket":  h.wsHandler.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"udp_port":     h.config.Server.UDPPort,
			"bind_address": h.config.Server.BindAddress,
			"buffer_size":  h.config.Server.BufferSize,
		},
		"playback": map[string]interface{}{
			"output_sample_rate":           h.config.Playback.OutputSampleRate,
			"inter_chunk_delay_multiplier": h.config.Playback.InterChunkDelayMultiplier,
		},
		"auto_pause": map[string]interface{}{
			"threshold":      h.monitor.Threshold(),
			"pause_duration": h.monitor.GetStats().PauseDuration,
		},
		"output": map[string]interface{}{
			"target_address": h.config.Output.TargetAddress,
			"record_path":    h.config.Output.RecordPath,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// pauseRequest is the JSON body for POST /pause
type pauseRequest struct {
	DurationMs uint32 `json:"duration_ms"`
}

// handlePause implements the POST /pause endpoint
func (h *HTTPServer) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DurationMs == 0 {
		http.Error(w, "duration_ms must be positive", http.StatusBadRequest)
		return
	}

	h.dispatcher.PauseForMillis(req.DurationMs)

	response := map[string]interface{}{
		"status":      "paused",
		"duration_ms": req.DurationMs,
		"timestamp":   time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Realtime Playback Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /stats":   "Service statistics",
			"GET /config":  "Service configuration",
			"POST /pause":  "Pause playback for {duration_ms} milliseconds",
			"GET /ws":      "WebSocket control channel",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
