package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/meetbotics/realtime-playback/internal/config"
	"github.com/meetbotics/realtime-playback/internal/loudness"
	"github.com/meetbotics/realtime-playback/internal/metrics"
	"github.com/meetbotics/realtime-playback/internal/playback"
	"github.com/meetbotics/realtime-playback/internal/server"
	"github.com/meetbotics/realtime-playback/internal/sink"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "realtime-playback"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load .env if present (threshold overrides live there in development)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("udp_port", cfg.Server.UDPPort),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("output_sample_rate", cfg.Playback.OutputSampleRate),
		slog.Float64("inter_chunk_delay_multiplier", cfg.Playback.InterChunkDelayMultiplier),
		slog.String("target_address", cfg.Output.TargetAddress),
		slog.String("record_path", cfg.Output.RecordPath),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Build the output sink chain
	var sinks []sink.Sink

	if cfg.Output.TargetAddress != "" {
		udpSink, err := sink.NewUDPSink(logger, cfg.Output.TargetAddress)
		if err != nil {
			logger.Error("Failed to create UDP sink", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sinks = append(sinks, udpSink)
	}

	if cfg.Output.RecordPath != "" {
		sinks = append(sinks, sink.NewWAVRecorder(logger, cfg.Output.RecordPath))
	}

	output := sink.NewTee(sinks...)

	// Initialize playback manager
	manager, err := playback.NewManager(logger, playback.Config{
		Sink:                      output.Write,
		InterChunkDelayMultiplier: cfg.Playback.InterChunkDelayMultiplier,
		OutputSampleRate:          cfg.Playback.OutputSampleRate,
		Recorder:                  appMetrics,
	})
	if err != nil {
		logger.Error("Failed to create playback manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Playback manager initialized",
		slog.Int("output_sample_rate", manager.OutputSampleRate()),
	)

	// Initialize loudness monitor
	monitor := loudness.NewMonitor(logger, server.NewAutoPauser(manager, appMetrics), loudness.Config{
		Threshold:     cfg.AutoPause.Threshold,
		PauseDuration: cfg.AutoPause.GetPauseDuration(),
	})
	logger.Info("Loudness monitor initialized",
		slog.Int("threshold", monitor.Threshold()),
	)

	// Initialize packet dispatcher
	dispatcher := server.NewDispatcher(logger, manager, monitor, appMetrics)

	// Initialize UDP server
	udpServer := server.NewUDPServer(&cfg.Server, logger, dispatcher, appMetrics)
	logger.Info("UDP server initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, manager, monitor,
			dispatcher, udpServer, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start UDP server
	if err := udpServer.Start(); err != nil {
		logger.Error("Failed to start UDP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("udp_address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.UDPPort)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop UDP server (stop accepting new packets)
	if err := udpServer.Stop(); err != nil {
		logger.Error("Error stopping UDP server", slog.String("error", err.Error()))
	}

	// Stop playback: pending frames are dropped, not flushed
	manager.Cleanup()

	// Close output destinations (the WAV recorder writes its file here)
	if err := output.Close(); err != nil {
		logger.Error("Error closing output sinks", slog.String("error", err.Error()))
	}

	// Get final statistics
	stats := manager.GetStats()
	logger.Info("Final playback statistics",
		slog.Uint64("frames_enqueued", stats.FramesEnqueued),
		slog.Uint64("frames_played", stats.FramesPlayed),
		slog.Uint64("frames_dropped", stats.FramesDropped),
		slog.Uint64("conversion_errors", stats.ConversionErrors),
		slog.Uint64("sink_errors", stats.SinkErrors),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
