package connection

import (
	"fmt"
	"log/slog"
)

// Options configures a Manager.
type Options struct {
	Logger   *slog.Logger // nil = slog.Default()
	Recorder Recorder     // nil = no metrics
}

// Manager binds one logical connection to a changing address and a
// changing callback.
//
// A Manager is not safe for concurrent use. Every method, and every event
// delivery from its Transport, must run on the same logical thread.
type Manager struct {
	transport Transport
	logger    *slog.Logger
	recorder  Recorder

	// Inputs
	address  string
	callback Callback

	// Current handle slot and the binding attached to it
	handle     Handle
	binding    *binding
	generation uint64

	// Handle id whose closure this manager asked for
	closeRequested string

	accessors Accessors
	state     State
	closed    bool
}

// NewManager creates a Manager with no target.
func NewManager(transport Transport, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	m := &Manager{
		transport: transport,
		logger:    logger,
		recorder:  recorder,
	}
	m.derive()
	m.recorder.StateChanged(m.state)
	return m
}

// SetAddress changes the target. An empty address means no connection is
// wanted. Setting the current address again does nothing, even if its
// handle has since closed.
//
// The callback hears Disconnected for the replaced handle only after the
// new one is installed, so it may call SetAddress itself.
func (m *Manager) SetAddress(address string) error {
	if m.closed {
		return ErrAlreadyClosed
	}
	if address == m.address {
		return nil
	}

	m.logger.Debug("address changed", "from", m.address, "to", address)

	// Close-before-recreate
	m.address = address
	dropped := m.teardown()

	var err error
	if address != "" {
		var h Handle
		h, err = m.transport.Dial(address)
		if err != nil {
			m.address = ""
			err = fmt.Errorf("dial %s: %w", address, err)
		} else {
			m.install(h)
		}
	}
	m.publishState()

	if dropped {
		m.notify(m.callback, Disconnected, nil)
	}
	return err
}

// SetCallback replaces the callback. Each call counts as a new reference:
// the listener binding is swapped but the socket is left alone.
func (m *Manager) SetCallback(cb Callback) {
	if m.closed {
		return
	}
	m.callback = cb
	m.sync()
}

// Close tears the connection down and detaches everything. The manager
// cannot be reused afterwards.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	cb := m.callback
	m.address = ""
	m.closed = true
	dropped := m.teardown()
	m.publishState()
	m.callback = nil
	m.logger.Debug("connection manager closed")

	if dropped {
		m.notify(cb, Disconnected, nil)
	}
}

// Address returns the current target.
func (m *Manager) Address() string {
	return m.address
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.reap()
	return m.computeState()
}

// Generation returns the number of listener bindings attached so far.
func (m *Manager) Generation() uint64 {
	return m.generation
}

// install makes h the current handle.
func (m *Manager) install(h Handle) {
	m.handle = h
	m.closeRequested = ""
	m.recorder.HandleDialed(h.Address())
	m.logger.Debug("created new websocket", "handle_id", h.ID(), "address", h.Address())

	m.derive()
	m.sync()
	m.publishState()
}

// teardown closes and discards the current handle, detaching its listeners
// first. It reports whether a handle was dropped; the caller owes the
// callback one Disconnected for it once its own state is settled.
func (m *Manager) teardown() bool {
	// A handle that already closed unobserved is not ours to close
	m.reap()

	h := m.handle
	if h == nil {
		return false
	}

	m.unbind()
	if err := h.Close(); err != nil {
		m.logger.Warn("failed to close websocket", "handle_id", h.ID(), "error", err)
	}
	m.handle = nil
	m.closeRequested = ""
	m.recorder.HandleClosed(InitiatorLocal)
	m.logger.Debug("closed existing websocket", "handle_id", h.ID(), "initiator", InitiatorLocal)

	m.derive()
	return true
}

// handleLost runs from the close listener of the current handle.
func (m *Manager) handleLost(b *binding, ev Event) {
	if m.handle != b.handle {
		return
	}

	initiator := InitiatorRemote
	if m.closeRequested == b.handle.ID() {
		initiator = InitiatorLocal
	}

	m.unbind()
	m.handle = nil
	m.closeRequested = ""
	m.recorder.HandleClosed(initiator)

	if initiator == InitiatorRemote {
		m.logger.Warn("connection lost, removed websocket",
			"handle_id", b.handle.ID(),
			"code", ev.Code,
			"reason", ev.Reason,
		)
	} else {
		m.logger.Debug("websocket closed on request", "handle_id", b.handle.ID())
	}

	m.derive()
	m.publishState()
}

func (m *Manager) computeState() State {
	if m.handle == nil {
		if m.address == "" {
			return StateNoTarget
		}
		return StateClosed
	}

	switch m.handle.ReadyState() {
	case ReadyConnecting:
		return StateConnecting
	case ReadyOpen:
		return StateOpen
	case ReadyClosing:
		return StateClosing
	default:
		return StateClosed
	}
}

func (m *Manager) publishState() {
	s := m.computeState()
	if s == m.state {
		return
	}
	m.state = s
	m.recorder.StateChanged(s)
}

// notify delivers one event to cb, if present.
func (m *Manager) notify(cb Callback, kind EventKind, payload *Payload) {
	if cb == nil {
		return
	}
	m.recorder.EventDelivered(kind)
	cb(kind, payload)
}
