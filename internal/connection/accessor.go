package connection

// SendFunc writes one frame on the handle it was derived for.
type SendFunc func(p Payload) error

// DisconnectFunc requests closure of the handle it was derived for.
type DisconnectFunc func() error

// Accessors are the send and disconnect operations derived for one handle.
// They are rebuilt every time the handle changes; a stale copy must not be
// used after that.
type Accessors struct {
	HandleID   string // empty when derived for no handle
	Send       SendFunc
	Disconnect DisconnectFunc
}

// Usable reports whether the accessors were derived for a live handle.
func (a Accessors) Usable() bool {
	return a.HandleID != ""
}

// Accessors returns the current derivation.
func (m *Manager) Accessors() Accessors {
	m.reap()
	return m.accessors
}

// Send writes p through the current derivation. Without a handle the
// payload is dropped and nil is returned.
func (m *Manager) Send(p Payload) error {
	return m.Accessors().Send(p)
}

// Disconnect requests closure of the current handle, if any. It does not
// wait for the close to complete.
func (m *Manager) Disconnect() error {
	return m.Accessors().Disconnect()
}

// derive rebuilds the accessors for the current handle.
func (m *Manager) derive() {
	h := m.handle
	if h == nil {
		m.logger.Debug("send and disconnect are unusable")
		m.accessors = Accessors{
			Send:       m.dropSend,
			Disconnect: func() error { return nil },
		}
		return
	}

	m.logger.Debug("send and disconnect are usable", "handle_id", h.ID())
	m.accessors = Accessors{
		HandleID: h.ID(),
		Send: func(p Payload) error {
			if err := h.Send(p); err != nil {
				m.recorder.SendCompleted(SendFailed)
				return err
			}
			m.recorder.SendCompleted(SendSent)
			return nil
		},
		Disconnect: func() error {
			if m.handle == h {
				m.closeRequested = h.ID()
			}
			err := h.Close()
			m.publishState()
			return err
		},
	}
}

func (m *Manager) dropSend(Payload) error {
	m.recorder.SendCompleted(SendDropped)
	return nil
}

// reap discards a handle that closed while no binding was attached to
// observe it.
func (m *Manager) reap() {
	h := m.handle
	if h == nil || m.binding != nil || h.ReadyState() != ReadyClosed {
		return
	}

	initiator := InitiatorRemote
	if m.closeRequested == h.ID() {
		initiator = InitiatorLocal
	}

	m.handle = nil
	m.closeRequested = ""
	m.recorder.HandleClosed(initiator)
	m.logger.Debug("discarded closed websocket with no listeners", "handle_id", h.ID(), "initiator", initiator)

	m.derive()
	m.publishState()
}
