package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketTransport dials handles backed by gorilla/websocket. Events of
// every handle it creates are delivered through its Dispatcher.
type WebSocketTransport struct {
	cfg        ClientConfig
	dispatcher Dispatcher
	logger     *slog.Logger
	dialer     *websocket.Dialer
}

// NewWebSocketTransport creates a new WebSocket transport.
func NewWebSocketTransport(cfg ClientConfig, dispatcher Dispatcher, logger *slog.Logger) *WebSocketTransport {
	if logger == nil {
		logger = slog.Default()
	}

	return &WebSocketTransport{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			Subprotocols:     cfg.Subprotocols,
		},
	}
}

// Dial validates address and starts the handshake in the background.
func (t *WebSocketTransport) Dial(address string) (Handle, error) {
	if address == "" {
		return nil, ErrEmptyAddress
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidAddress, u.Scheme)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &wsHandle{
		id:         uuid.NewString(),
		address:    address,
		cfg:        t.cfg,
		dialer:     t.dialer,
		dispatcher: t.dispatcher,
		listeners:  newListenerSet(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.logger = t.logger.With("handle_id", h.id, "address", address)

	go h.connect()

	return h, nil
}

// wsHandle implements Handle over a single gorilla connection.
type wsHandle struct {
	id         string
	address    string
	cfg        ClientConfig
	dialer     *websocket.Dialer
	dispatcher Dispatcher
	logger     *slog.Logger
	listeners  *listenerSet

	// Dial cancellation
	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32 // ReadyState

	mu         sync.Mutex
	conn       *websocket.Conn
	lastPongAt time.Time

	// Write serialization
	writeMu sync.Mutex

	done       chan struct{}
	finishOnce sync.Once

	// Only touched on the dispatcher's thread.
	closeDelivered bool
}

func (h *wsHandle) ID() string      { return h.id }
func (h *wsHandle) Address() string { return h.address }

func (h *wsHandle) ReadyState() ReadyState {
	return ReadyState(h.state.Load())
}

func (h *wsHandle) AddListener(t EventType, l Listener) (ListenerID, error) {
	return h.listeners.add(t, l)
}

func (h *wsHandle) RemoveListener(t EventType, id ListenerID) {
	h.listeners.remove(t, id)
}

// connect runs the handshake and starts the read and heartbeat loops.
func (h *wsHandle) connect() {
	conn, _, err := h.dialer.DialContext(h.ctx, h.address, h.cfg.Header.Clone())
	if err != nil {
		if h.ctx.Err() != nil {
			// Close() was called while connecting
			h.finish(websocket.CloseAbnormalClosure, "closed before open")
			return
		}
		h.logger.Debug("websocket dial failed", "error", err)
		h.emit(Event{Type: EventError, Err: err})
		h.finish(websocket.CloseAbnormalClosure, "")
		return
	}

	h.mu.Lock()
	if h.ReadyState() != ReadyConnecting {
		h.mu.Unlock()
		conn.Close()
		h.finish(websocket.CloseAbnormalClosure, "closed before open")
		return
	}
	h.conn = conn
	h.lastPongAt = time.Now()
	h.state.Store(int32(ReadyOpen))
	h.mu.Unlock()

	if h.cfg.ReadLimit > 0 {
		conn.SetReadLimit(h.cfg.ReadLimit)
	}

	// Server pings count as liveness too
	conn.SetPingHandler(func(data string) error {
		h.touch()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), h.controlDeadline())
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	conn.SetPongHandler(func(string) error {
		h.touch()
		return nil
	})

	h.logger.Debug("websocket connected")

	// Open must be posted before any message
	h.emit(Event{Type: EventOpen})

	go h.readLoop(conn)
	go h.heartbeatLoop(conn)
}

// Send writes one frame. It fails unless the handle is open.
func (h *wsHandle) Send(p Payload) error {
	if err := p.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()

	if conn == nil || h.ReadyState() != ReadyOpen {
		return ErrNotConnected
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if h.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	}

	switch p.Kind {
	case PayloadText:
		return conn.WriteMessage(websocket.TextMessage, p.Data)
	case PayloadBinary:
		return conn.WriteMessage(websocket.BinaryMessage, p.Data)
	default:
		return writeBlob(conn, p.Reader)
	}
}

func writeBlob(conn *websocket.Conn, r io.Reader) error {
	w, err := conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("stream blob: %w", err)
	}
	return w.Close()
}

// Close starts the closing handshake, or aborts a pending dial. The close
// event follows asynchronously.
func (h *wsHandle) Close() error {
	h.mu.Lock()
	switch h.ReadyState() {
	case ReadyClosing, ReadyClosed:
		h.mu.Unlock()
		return nil
	}
	h.state.Store(int32(ReadyClosing))
	conn := h.conn
	h.mu.Unlock()

	h.cancel()

	if conn == nil {
		return nil
	}

	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		h.controlDeadline(),
	)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		h.logger.Debug("failed to send close frame", "error", err)
		conn.Close()
		return nil
	}

	// Don't wait forever for the peer's close frame
	timeout := h.cfg.CloseTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	time.AfterFunc(timeout, func() {
		select {
		case <-h.done:
		default:
			conn.Close()
		}
	})

	return nil
}

// readLoop forwards frames until the connection fails or closes.
func (h *wsHandle) readLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			h.handleReadError(err)
			return
		}

		var p Payload
		switch mt {
		case websocket.TextMessage:
			p = Payload{Kind: PayloadText, Data: data}
		case websocket.BinaryMessage:
			p = Payload{Kind: PayloadBinary, Data: data}
		default:
			continue
		}

		h.emit(Event{Type: EventMessage, Payload: &p})
	}
}

func (h *wsHandle) handleReadError(err error) {
	code, reason := websocket.CloseAbnormalClosure, ""

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code, reason = closeErr.Code, closeErr.Text
	} else if h.ReadyState() != ReadyClosing {
		// Ignore errors after Close() is called
		h.emit(Event{Type: EventError, Err: err})
	}

	h.finish(code, reason)
}

// heartbeatLoop pings the peer and drops stale connections.
func (h *wsHandle) heartbeatLoop(conn *websocket.Conn) {
	if h.cfg.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), h.controlDeadline()); err != nil {
				h.logger.Debug("failed to send ping", "error", err)
			}

			h.mu.Lock()
			lastPong := h.lastPongAt
			h.mu.Unlock()

			if h.cfg.PongTimeout > 0 && time.Since(lastPong) > h.cfg.PongTimeout {
				h.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", h.cfg.PongTimeout,
				)
				h.emit(Event{Type: EventError, Err: ErrStaleConnection})

				h.mu.Lock()
				h.state.Store(int32(ReadyClosing))
				h.mu.Unlock()

				conn.Close()
				return
			}
		}
	}
}

// finish moves the handle to Closed and posts the single close event.
func (h *wsHandle) finish(code int, reason string) {
	h.finishOnce.Do(func() {
		h.mu.Lock()
		h.state.Store(int32(ReadyClosed))
		conn := h.conn
		h.mu.Unlock()

		close(h.done)
		h.cancel()

		if conn != nil {
			conn.Close()
		}

		h.logger.Debug("websocket closed", "code", code, "reason", reason)
		h.emit(Event{Type: EventClose, Code: code, Reason: reason})
	})
}

func (h *wsHandle) emit(ev Event) {
	if !h.dispatcher.Post(func() { h.deliver(ev) }) {
		h.logger.Debug("dispatcher closed, dropping event", "event", ev.Type)
	}
}

// deliver runs on the dispatcher's thread. Nothing is delivered after close.
func (h *wsHandle) deliver(ev Event) {
	if h.closeDelivered {
		return
	}
	if ev.Type == EventClose {
		h.closeDelivered = true
	}
	h.listeners.emit(ev)
}

func (h *wsHandle) touch() {
	h.mu.Lock()
	h.lastPongAt = time.Now()
	h.mu.Unlock()
}

func (h *wsHandle) controlDeadline() time.Time {
	if h.cfg.WriteTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(h.cfg.WriteTimeout)
}
