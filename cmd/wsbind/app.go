package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/wsbind/internal/config"
	"github.com/rickgao/wsbind/internal/connection"
	"github.com/rickgao/wsbind/internal/eventloop"
	"github.com/rickgao/wsbind/internal/metrics"
	"github.com/rickgao/wsbind/internal/version"
)

const shutdownTimeout = 5 * time.Second

// newApp creates the CLI application.
func newApp() *cli.App {
	return &cli.App{
		Name:    "wsbind",
		Usage:   "Keep a WebSocket connection bound to a changing address",
		Version: version.String(),
		Flags:   globalFlags(),
		Action:  run,
	}
}

// globalFlags returns the CLI flags. Each overrides its config file field.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
			EnvVars: []string{"WSBIND_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "address",
			Aliases: []string{"a"},
			Usage:   "Initial target address (ws:// or wss://)",
			EnvVars: []string{"WSBIND_ADDRESS"},
		},
		&cli.StringFlag{
			Name:    "address-file",
			Usage:   "File holding the target address, watched for changes",
			EnvVars: []string{"WSBIND_ADDRESS_FILE"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: debug, info, warn, error",
			EnvVars: []string{"WSBIND_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "Serve metrics and health on this address",
			EnvVars: []string{"WSBIND_METRICS_ADDR"},
		},
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadWithDefaults(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("address") {
		cfg.Target.Address = c.String("address")
	}
	if c.IsSet("address-file") {
		cfg.Target.AddressFile = c.String("address-file")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = c.String("metrics-addr")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// clientConfig maps the client section onto the transport settings.
func clientConfig(cfg config.ClientConfig) connection.ClientConfig {
	out := connection.ClientConfig{
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		PingInterval:     cfg.PingInterval,
		PongTimeout:      cfg.PongTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		ReadLimit:        cfg.ReadLimit,
		Subprotocols:     cfg.Subprotocols,
	}
	if len(cfg.Headers) > 0 {
		out.Header = make(http.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			out.Header.Set(k, v)
		}
	}
	return out
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Logs go to stderr; stdout carries connection events
	logger, err := newLogger(cfg.Log, c.App.ErrWriter)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting wsbind", version.Attrs()...)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New(cfg.Loop.QueueSize, logger)

	opts := connection.Options{Logger: logger}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if err := m.RegisterQueueDepth(loop.Len); err != nil {
			return fmt.Errorf("register queue depth: %w", err)
		}
		opts.Recorder = m
	}

	transport := connection.NewWebSocketTransport(clientConfig(cfg.Client), loop, logger)
	mgr := connection.NewManager(transport, opts)
	con := newConsole(mgr, c.App.Writer, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(context.Background())
	})

	// Shutdown: close the connection on the loop, then stop the loop
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := loop.Do(shutdownCtx, mgr.Close); err != nil {
			logger.Warn("failed to close connection", "error", err)
		}
		loop.Close()
		return nil
	})

	loop.Post(func() {
		mgr.SetCallback(con.callback)
		if cfg.Target.Address != "" {
			con.setAddress(cfg.Target.Address)
		}
	})

	if path := cfg.Target.AddressFile; path != "" {
		g.Go(func() error {
			return config.WatchAddress(gctx, path, func(address string) {
				loop.Post(func() { con.setAddress(address) })
			}, logger)
		})
	}

	if m != nil {
		status := func(ctx context.Context) (string, error) {
			var state connection.State
			if err := loop.Do(ctx, func() { state = mgr.State() }); err != nil {
				return "", err
			}
			return state.String(), nil
		}
		mux := metrics.NewMux(m, cfg.Metrics.Path, status)

		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr, mux, logger)
		})
	}

	g.Go(func() error {
		return con.readCommands(gctx, loop, c.App.Reader)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("wsbind stopped")
	return nil
}
