package connection

import (
	"sort"
	"sync"
)

// Transport opens handles. Dial must not wait for the handshake: the
// returned handle starts in ReadyConnecting and reports progress via events.
type Transport interface {
	Dial(address string) (Handle, error)
}

// Handle is one open-or-opening socket.
type Handle interface {
	// ID is unique per handle for the life of the process.
	ID() string

	// Address is the target the handle was dialed with. It never changes.
	Address() string

	// ReadyState returns the current readiness.
	ReadyState() ReadyState

	// Send writes one outbound frame.
	Send(p Payload) error

	// Close requests closure. It does not wait for the peer.
	Close() error

	// AddListener subscribes l to events of type t.
	AddListener(t EventType, l Listener) (ListenerID, error)

	// RemoveListener unsubscribes a listener. Unknown ids are ignored.
	RemoveListener(t EventType, id ListenerID)
}

// Dispatcher runs event deliveries on the host's single logical thread.
// Post returns false if the function will never run.
type Dispatcher interface {
	Post(fn func()) bool
}

// EventType is a transport-level event a listener can subscribe to.
type EventType int

const (
	EventOpen EventType = iota
	EventClose
	EventError
	EventMessage
)

// eventTypes is the fixed attach order for a binding.
var eventTypes = [...]EventType{EventOpen, EventClose, EventError, EventMessage}

// String returns the string representation of an EventType.
func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners.
type Event struct {
	Type    EventType
	Payload *Payload // EventMessage only
	Err     error    // EventError only, diagnostic
	Code    int      // EventClose only
	Reason  string   // EventClose only
}

// Listener handles one transport event.
type Listener func(Event)

// ListenerID identifies an attached listener within its handle.
type ListenerID uint64

// listenerSet is the per-handle listener registry shared by transports.
type listenerSet struct {
	mu     sync.Mutex
	nextID ListenerID
	byType map[EventType]map[ListenerID]Listener
}

func newListenerSet() *listenerSet {
	return &listenerSet{byType: make(map[EventType]map[ListenerID]Listener)}
}

func (s *listenerSet) add(t EventType, l Listener) (ListenerID, error) {
	if t < EventOpen || t > EventMessage {
		return 0, ErrUnknownEvent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	if s.byType[t] == nil {
		s.byType[t] = make(map[ListenerID]Listener)
	}
	s.byType[t][s.nextID] = l
	return s.nextID, nil
}

func (s *listenerSet) remove(t EventType, id ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byType[t], id)
}

func (s *listenerSet) get(t EventType, id ListenerID) (Listener, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byType[t][id]
	return l, ok
}

// ids returns the listeners for t in attach order.
func (s *listenerSet) ids(t EventType) []ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]ListenerID, 0, len(s.byType[t]))
	for id := range s.byType[t] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.byType {
		n += len(m)
	}
	return n
}

// emit delivers ev to the listeners attached at delivery time. A listener
// removed by an earlier one in the same delivery is skipped.
func (s *listenerSet) emit(ev Event) {
	for _, id := range s.ids(ev.Type) {
		if l, ok := s.get(ev.Type, id); ok {
			l(ev)
		}
	}
}

// Recorder receives lifecycle observations. Implementations must not call
// back into the manager.
type Recorder interface {
	HandleDialed(address string)
	HandleClosed(initiator Initiator)
	EventDelivered(kind EventKind)
	SendCompleted(result SendResult)
	GenerationChanged(generation uint64)
	StateChanged(state State)
}

type nopRecorder struct{}

func (nopRecorder) HandleDialed(string)      {}
func (nopRecorder) HandleClosed(Initiator)   {}
func (nopRecorder) EventDelivered(EventKind) {}
func (nopRecorder) SendCompleted(SendResult) {}
func (nopRecorder) GenerationChanged(uint64) {}
func (nopRecorder) StateChanged(State)       {}
