package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Playback  PlaybackConfig  `yaml:"playback"`
	AutoPause AutoPauseConfig `yaml:"auto_pause"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains UDP server configuration
type ServerConfig struct {
	UDPPort     int    `yaml:"udp_port"`
	BindAddress string `yaml:"bind_address"`
	BufferSize  int    `yaml:"buffer_size"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// PlaybackConfig contains playback pipeline parameters
type PlaybackConfig struct {
	OutputSampleRate          int     `yaml:"output_sample_rate"`
	InterChunkDelayMultiplier float64 `yaml:"inter_chunk_delay_multiplier"`
}

// AutoPauseConfig contains loudness monitor configuration
type AutoPauseConfig struct {
	Threshold     int     `yaml:"threshold"`      // peak amplitude, 0 = env or default
	PauseDuration float64 `yaml:"pause_duration"` // seconds, 0 = default
}

// OutputConfig contains audio output destinations
type OutputConfig struct {
	TargetAddress string `yaml:"target_address"` // UDP destination for played frames
	RecordPath    string `yaml:"record_path"`    // WAV file path, empty disables recording
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}

	if err := c.AutoPause.Validate(); err != nil {
		return fmt.Errorf("auto_pause config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.UDPPort < 1 || s.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", s.UDPPort)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.BufferSize < 1024 {
		return fmt.Errorf("buffer_size must be at least 1024 bytes, got %d", s.BufferSize)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates playback configuration
func (p *PlaybackConfig) Validate() error {
	if p.OutputSampleRate < 8000 || p.OutputSampleRate > 192000 {
		return fmt.Errorf("output_sample_rate must be between 8000 and 192000 Hz, got %d", p.OutputSampleRate)
	}

	if p.InterChunkDelayMultiplier < 0 {
		return fmt.Errorf("inter_chunk_delay_multiplier cannot be negative, got %f", p.InterChunkDelayMultiplier)
	}

	return nil
}

// Validate validates auto-pause configuration
func (a *AutoPauseConfig) Validate() error {
	if a.Threshold < 0 || a.Threshold > 32767 {
		return fmt.Errorf("threshold must be between 0 and 32767, got %d", a.Threshold)
	}

	if a.PauseDuration < 0 {
		return fmt.Errorf("pause_duration cannot be negative, got %f", a.PauseDuration)
	}

	return nil
}

// Validate validates output configuration
func (o *OutputConfig) Validate() error {
	if o.TargetAddress == "" && o.RecordPath == "" {
		return fmt.Errorf("at least one of target_address or record_path must be set")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetPauseDuration returns the auto-pause window as a time.Duration
func (a *AutoPauseConfig) GetPauseDuration() time.Duration {
	return time.Duration(a.PauseDuration * float64(time.Second))
}
