package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			UDPPort:     4455,
			BindAddress: "0.0.0.0",
			BufferSize:  65536,
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
			Enabled: true,
		},
		Playback: PlaybackConfig{
			OutputSampleRate:          48000,
			InterChunkDelayMultiplier: 1.0,
		},
		AutoPause: AutoPauseConfig{
			Threshold:     1500,
			PauseDuration: 1.0,
		},
		Output: OutputConfig{
			TargetAddress: "127.0.0.1:4456",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid udp port",
			mutate:      func(c *Config) { c.Server.UDPPort = 70000 },
			expectError: true,
		},
		{
			name:        "empty bind address",
			mutate:      func(c *Config) { c.Server.BindAddress = "" },
			expectError: true,
		},
		{
			name:        "buffer size too small",
			mutate:      func(c *Config) { c.Server.BufferSize = 512 },
			expectError: true,
		},
		{
			name:        "http enabled without address",
			mutate:      func(c *Config) { c.HTTP.Address = "" },
			expectError: true,
		},
		{
			name: "http disabled ignores port",
			mutate: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
				c.HTTP.Address = ""
			},
			expectError: false,
		},
		{
			name:        "output sample rate too low",
			mutate:      func(c *Config) { c.Playback.OutputSampleRate = 4000 },
			expectError: true,
		},
		{
			name:        "negative delay multiplier",
			mutate:      func(c *Config) { c.Playback.InterChunkDelayMultiplier = -0.5 },
			expectError: true,
		},
		{
			name:        "zero delay multiplier disables pacing",
			mutate:      func(c *Config) { c.Playback.InterChunkDelayMultiplier = 0 },
			expectError: false,
		},
		{
			name:        "threshold above int16 range",
			mutate:      func(c *Config) { c.AutoPause.Threshold = 40000 },
			expectError: true,
		},
		{
			name:        "zero threshold defers resolution",
			mutate:      func(c *Config) { c.AutoPause.Threshold = 0 },
			expectError: false,
		},
		{
			name: "no output destination",
			mutate: func(c *Config) {
				c.Output.TargetAddress = ""
				c.Output.RecordPath = ""
			},
			expectError: true,
		},
		{
			name: "record path alone is enough",
			mutate: func(c *Config) {
				c.Output.TargetAddress = ""
				c.Output.RecordPath = "/tmp/playback.wav"
			},
			expectError: false,
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	content := `
server:
  udp_port: 4455
  bind_address: "127.0.0.1"
  buffer_size: 65536
http:
  enabled: false
playback:
  output_sample_rate: 48000
  inter_chunk_delay_multiplier: 1.0
auto_pause:
  threshold: 2000
  pause_duration: 0.5
output:
  target_address: "127.0.0.1:4456"
logging:
  level: "debug"
  format: "text"
  output: "stdout"
`

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.UDPPort != 4455 {
		t.Errorf("expected udp_port 4455, got %d", cfg.Server.UDPPort)
	}
	if cfg.Playback.OutputSampleRate != 48000 {
		t.Errorf("expected output_sample_rate 48000, got %d", cfg.Playback.OutputSampleRate)
	}
	if cfg.AutoPause.Threshold != 2000 {
		t.Errorf("expected threshold 2000, got %d", cfg.AutoPause.Threshold)
	}
	if got := cfg.AutoPause.GetPauseDuration(); got != 500*time.Millisecond {
		t.Errorf("expected pause duration 500ms, got %v", got)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file, got nil")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a mapping"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}
