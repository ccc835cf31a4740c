package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
target:
  address: wss://echo.example.com/ws
client:
  handshake_timeout: 3s
  headers:
    Authorization: Bearer abc
  subprotocols: [chat, superchat]
log:
  level: debug
  format: json
metrics:
  enabled: true
  addr: 127.0.0.1:9100
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Target.Address != "wss://echo.example.com/ws" {
		t.Errorf("Target.Address = %q, want %q", cfg.Target.Address, "wss://echo.example.com/ws")
	}
	if cfg.Client.HandshakeTimeout != 3*time.Second {
		t.Errorf("Client.HandshakeTimeout = %v, want 3s", cfg.Client.HandshakeTimeout)
	}
	if cfg.Client.Headers["Authorization"] != "Bearer abc" {
		t.Errorf("Client.Headers[Authorization] = %q, want %q", cfg.Client.Headers["Authorization"], "Bearer abc")
	}
	if len(cfg.Client.Subprotocols) != 2 || cfg.Client.Subprotocols[1] != "superchat" {
		t.Errorf("Client.Subprotocols = %v, want [chat superchat]", cfg.Client.Subprotocols)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9100" {
		t.Errorf("Metrics = %+v, want enabled on 127.0.0.1:9100", cfg.Metrics)
	}
	// Load alone applies no defaults
	if cfg.Client.WriteTimeout != 0 {
		t.Errorf("Client.WriteTimeout = %v, want 0", cfg.Client.WriteTimeout)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_WS_TOKEN", "secret123")
	t.Setenv("TEST_WS_HOST", "feed.example.com")

	yaml := `
target:
  address: wss://${TEST_WS_HOST}/stream
client:
  headers:
    Authorization: Bearer ${TEST_WS_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Target.Address != "wss://feed.example.com/stream" {
		t.Errorf("Target.Address = %q, want %q", cfg.Target.Address, "wss://feed.example.com/stream")
	}
	if cfg.Client.Headers["Authorization"] != "Bearer secret123" {
		t.Errorf("Authorization = %q, want %q", cfg.Client.Headers["Authorization"], "Bearer secret123")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}

	path := writeTempFile(t, "target: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Error("Load of invalid yaml should fail")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "target:\n  address: ws://localhost:8080\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Client.HandshakeTimeout != DefaultHandshakeTimeout {
		t.Errorf("Client.HandshakeTimeout = %v, want default %v", cfg.Client.HandshakeTimeout, DefaultHandshakeTimeout)
	}
	if cfg.Client.PingInterval != DefaultPingInterval {
		t.Errorf("Client.PingInterval = %v, want default %v", cfg.Client.PingInterval, DefaultPingInterval)
	}
	if cfg.Client.ReadLimit != DefaultReadLimit {
		t.Errorf("Client.ReadLimit = %d, want default %d", cfg.Client.ReadLimit, DefaultReadLimit)
	}
	if cfg.Loop.QueueSize != DefaultQueueSize {
		t.Errorf("Loop.QueueSize = %d, want default %d", cfg.Loop.QueueSize, DefaultQueueSize)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, DefaultMetricsPath)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to false")
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "target:\n  address: http://localhost:8080\n")

	if _, err := LoadAndValidate(path); err == nil {
		t.Error("LoadAndValidate should reject an http address")
	}
}

func TestLoadAndValidate_Example(t *testing.T) {
	t.Setenv("WSBIND_TOKEN", "example")

	cfg, err := LoadAndValidate(filepath.Join("..", "..", "configs", "wsbind.example.yaml"))
	if err != nil {
		t.Fatalf("example config: %v", err)
	}
	if cfg.Client.Headers["Authorization"] != "Bearer example" {
		t.Errorf("Authorization = %q, want %q", cfg.Client.Headers["Authorization"], "Bearer example")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
	if cfg.Target.Address != "" {
		t.Errorf("Target.Address = %q, want empty", cfg.Target.Address)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config { return *Default() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) { c.Target.Address = "wss://example.com/ws" },
			wantErr: "",
		},
		{
			name:    "bad scheme",
			mutate:  func(c *Config) { c.Target.Address = "https://example.com" },
			wantErr: `target.address must use ws or wss, got "https"`,
		},
		{
			name: "pong timeout not above ping interval",
			mutate: func(c *Config) {
				c.Client.PingInterval = 30 * time.Second
				c.Client.PongTimeout = 10 * time.Second
			},
			wantErr: "client.pong_timeout (10s) must exceed ping_interval (30s)",
		},
		{
			name:    "negative write timeout",
			mutate:  func(c *Config) { c.Client.WriteTimeout = -time.Second },
			wantErr: "client.write_timeout must be >= 0",
		},
		{
			name:    "zero queue size",
			mutate:  func(c *Config) { c.Loop.QueueSize = 0 },
			wantErr: "loop.queue_size must be >= 1",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: `log.level "loud" is not a valid level`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
		{
			name: "metrics path without slash",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Path = "metrics"
			},
			wantErr: `metrics.path must start with /, got "metrics"`,
		},
		{
			name: "metrics path ignored when disabled",
			mutate: func(c *Config) {
				c.Metrics.Path = "metrics"
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := LogConfig{Level: tt.level}.SlogLevel()
		if err != nil {
			t.Errorf("SlogLevel(%q) error: %v", tt.level, err)
			continue
		}
		if got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
