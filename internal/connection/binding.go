package connection

// binding is one generation of the four listeners attached to a handle
// on behalf of one callback.
type binding struct {
	handle     Handle
	generation uint64
	ids        map[EventType]ListenerID
}

// sync re-establishes the binding after the handle or callback changed.
// The previous generation is always detached before the next is attached.
func (m *Manager) sync() {
	// Never bind to a handle that closed while nobody listened
	m.reap()
	m.unbind()

	if m.handle == nil || m.callback == nil {
		return
	}
	m.bind(m.handle, m.callback)
}

func (m *Manager) bind(h Handle, cb Callback) {
	m.generation++
	b := &binding{
		handle:     h,
		generation: m.generation,
		ids:        make(map[EventType]ListenerID, len(eventTypes)),
	}
	m.recorder.GenerationChanged(b.generation)

	for _, t := range eventTypes {
		id, err := h.AddListener(t, m.listener(b, cb, t))
		if err != nil {
			// Not fatal: report it and leave the handle unbound
			m.logger.Warn("failed to attach listener",
				"handle_id", h.ID(),
				"generation", b.generation,
				"event", t,
				"error", err,
			)
			m.detach(b)
			m.notify(cb, Error, nil)
			return
		}
		b.ids[t] = id
	}

	m.binding = b
	m.logger.Debug("assigned callbacks", "handle_id", h.ID(), "generation", b.generation)
}

func (m *Manager) unbind() {
	b := m.binding
	if b == nil {
		return
	}
	m.binding = nil
	m.detach(b)
	m.logger.Debug("removed old callbacks", "handle_id", b.handle.ID(), "generation", b.generation)
}

func (m *Manager) detach(b *binding) {
	for t, id := range b.ids {
		b.handle.RemoveListener(t, id)
	}
	b.ids = nil
}

// listener builds the closure for one event type of binding b.
func (m *Manager) listener(b *binding, cb Callback, t EventType) Listener {
	switch t {
	case EventOpen:
		return func(Event) {
			m.logger.Debug("websocket open", "handle_id", b.handle.ID())
			m.publishState()
			m.notify(cb, Connected, nil)
		}
	case EventClose:
		return func(ev Event) {
			m.handleLost(b, ev)
			m.notify(cb, Disconnected, nil)
		}
	case EventError:
		return func(ev Event) {
			m.logger.Warn("websocket error", "handle_id", b.handle.ID(), "error", ev.Err)
			m.notify(cb, Error, nil)
		}
	default:
		return func(ev Event) {
			m.notify(cb, Message, ev.Payload)
		}
	}
}
