package config

import "time"

// Config is the root configuration for a wsbind host.
type Config struct {
	Target  TargetConfig  `yaml:"target"`
	Client  ClientConfig  `yaml:"client"`
	Loop    LoopConfig    `yaml:"loop"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// TargetConfig says where the connection should point.
// Address is used at startup; AddressFile, when set, is watched and its
// contents replace the address on every change.
type TargetConfig struct {
	Address     string `yaml:"address"`
	AddressFile string `yaml:"address_file"`
}

// ClientConfig holds WebSocket transport settings.
type ClientConfig struct {
	HandshakeTimeout time.Duration     `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration     `yaml:"write_timeout"`
	PingInterval     time.Duration     `yaml:"ping_interval"`
	PongTimeout      time.Duration     `yaml:"pong_timeout"`
	CloseTimeout     time.Duration     `yaml:"close_timeout"`
	ReadLimit        int64             `yaml:"read_limit"`
	Headers          map[string]string `yaml:"headers"`
	Subprotocols     []string          `yaml:"subprotocols"`
}

// LoopConfig holds event loop settings.
type LoopConfig struct {
	QueueSize int `yaml:"queue_size"` // initial capacity, grows on demand
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}
