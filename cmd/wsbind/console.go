package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rickgao/wsbind/internal/connection"
)

var errUnknownCommand = errors.New("unknown command")

type commandKind int

const (
	cmdNone commandKind = iota
	cmdSend
	cmdConnect
	cmdClear
	cmdDisconnect
	cmdState
)

type command struct {
	kind    commandKind
	address string
	payload connection.Payload
}

// parseCommand turns one console line into a command. Blank lines parse to
// cmdNone.
func parseCommand(line string) (command, error) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return command{}, nil
	}

	// "//" escapes a leading slash
	if strings.HasPrefix(line, "//") {
		return command{kind: cmdSend, payload: connection.Text(line[1:])}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdSend, payload: connection.Text(line)}, nil
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "connect":
		if arg == "" {
			return command{}, errors.New("usage: /connect <address>")
		}
		return command{kind: cmdConnect, address: arg}, nil
	case "clear":
		return command{kind: cmdClear}, nil
	case "disconnect":
		return command{kind: cmdDisconnect}, nil
	case "state":
		return command{kind: cmdState}, nil
	case "binary":
		data, err := hex.DecodeString(strings.ReplaceAll(arg, " ", ""))
		if err != nil {
			return command{}, fmt.Errorf("invalid hex: %w", err)
		}
		return command{kind: cmdSend, payload: connection.Binary(data)}, nil
	default:
		return command{}, fmt.Errorf("%w: /%s", errUnknownCommand, name)
	}
}

// doer runs fn on the manager's thread.
type doer interface {
	Do(ctx context.Context, fn func()) error
}

// console prints connection events and executes commands read from input.
type console struct {
	mgr    *connection.Manager
	logger *slog.Logger

	mu  sync.Mutex
	out io.Writer
}

func newConsole(mgr *connection.Manager, out io.Writer, logger *slog.Logger) *console {
	if logger == nil {
		logger = slog.Default()
	}
	return &console{mgr: mgr, out: out, logger: logger}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// callback is installed as the manager's event callback.
func (c *console) callback(kind connection.EventKind, p *connection.Payload) {
	if kind != connection.Message {
		c.printf("* %s\n", kind)
		return
	}
	if p == nil {
		return
	}

	switch p.Kind {
	case connection.PayloadText:
		c.printf("< %s\n", p.Data)
	default:
		c.printf("< [%d bytes] %x\n", len(p.Data), p.Data)
	}
}

func (c *console) setAddress(address string) {
	if err := c.mgr.SetAddress(address); err != nil {
		c.logger.Error("failed to set address", "address", address, "error", err)
		c.printf("! %v\n", err)
	}
}

// exec runs on the manager's thread.
func (c *console) exec(cmd command) {
	switch cmd.kind {
	case cmdSend:
		if !c.mgr.Accessors().Usable() {
			c.printf("! not connected\n")
			return
		}
		if err := c.mgr.Send(cmd.payload); err != nil {
			c.printf("! send failed: %v\n", err)
		}
	case cmdConnect:
		c.setAddress(cmd.address)
	case cmdClear:
		c.setAddress("")
	case cmdDisconnect:
		if err := c.mgr.Disconnect(); err != nil {
			c.printf("! disconnect failed: %v\n", err)
		}
	case cmdState:
		c.printf("* state %s, address %q, generation %d\n",
			c.mgr.State(), c.mgr.Address(), c.mgr.Generation())
	}
}

// readCommands executes lines from r until ctx is done. EOF ends the
// console but not the process.
func (c *console) readCommands(ctx context.Context, d doer, r io.Reader) error {
	lines := scanLines(ctx, r)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				c.logger.Debug("console input closed")
				return nil
			}

			cmd, err := parseCommand(line)
			if err != nil {
				c.printf("! %v\n", err)
				continue
			}
			if cmd.kind == cmdNone {
				continue
			}

			if err := d.Do(ctx, func() { c.exec(cmd) }); err != nil {
				c.logger.Debug("console stopped", "error", err)
				return nil
			}
		}
	}
}

// scanLines feeds lines from r until EOF. The reader goroutine is left
// blocked in Read if r never returns, as with an idle terminal at shutdown.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
