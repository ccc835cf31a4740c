package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
// An empty target address is valid: the host starts with no target.
func (c *Config) Validate() error {
	if c.Target.Address != "" {
		u, err := url.Parse(c.Target.Address)
		if err != nil {
			return fmt.Errorf("target.address is not a valid URL: %v", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("target.address must use ws or wss, got %q", u.Scheme)
		}
	}

	if c.Client.HandshakeTimeout < 0 {
		return errors.New("client.handshake_timeout must be >= 0")
	}
	if c.Client.WriteTimeout < 0 {
		return errors.New("client.write_timeout must be >= 0")
	}
	if c.Client.PingInterval < 0 {
		return errors.New("client.ping_interval must be >= 0")
	}
	if c.Client.PingInterval > 0 && c.Client.PongTimeout > 0 && c.Client.PongTimeout <= c.Client.PingInterval {
		return fmt.Errorf("client.pong_timeout (%s) must exceed ping_interval (%s)", c.Client.PongTimeout, c.Client.PingInterval)
	}
	if c.Client.ReadLimit < 0 {
		return errors.New("client.read_limit must be >= 0")
	}

	if c.Loop.QueueSize < 1 {
		return errors.New("loop.queue_size must be >= 1")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level %q is not a valid level", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			return errors.New("metrics.addr is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
		}
	}

	return nil
}
