package config

import (
	"log/slog"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultPongTimeout      = 60 * time.Second
	DefaultCloseTimeout     = 1 * time.Second
	DefaultReadLimit        = 1 << 20
	DefaultQueueSize        = 64
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultMetricsAddr      = ":9090"
	DefaultMetricsPath      = "/metrics"
)

func (c *Config) applyDefaults() {
	// Client defaults
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultWriteTimeout
	}
	if c.Client.PingInterval == 0 {
		c.Client.PingInterval = DefaultPingInterval
	}
	if c.Client.PongTimeout == 0 {
		c.Client.PongTimeout = DefaultPongTimeout
	}
	if c.Client.CloseTimeout == 0 {
		c.Client.CloseTimeout = DefaultCloseTimeout
	}
	if c.Client.ReadLimit == 0 {
		c.Client.ReadLimit = DefaultReadLimit
	}

	// Loop defaults
	if c.Loop.QueueSize == 0 {
		c.Loop.QueueSize = DefaultQueueSize
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Metrics defaults
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
