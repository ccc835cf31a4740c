package connection

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrEmptyAddress    = errors.New("empty address")
	ErrInvalidAddress  = errors.New("invalid websocket address")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrUnknownEvent    = errors.New("unknown event type")
)

// EventKind tags what a Callback is being told about.
type EventKind int

const (
	Connected EventKind = iota
	Disconnected
	Error
	Message
)

// String returns the string representation of an EventKind.
func (k EventKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Error:
		return "error"
	case Message:
		return "message"
	default:
		return "unknown"
	}
}

// Callback receives connection events. Payload is non-nil only for Message.
type Callback func(kind EventKind, payload *Payload)

// PayloadKind identifies how a payload travels on the wire.
type PayloadKind int

const (
	// PayloadText is a UTF-8 text frame.
	PayloadText PayloadKind = iota + 1
	// PayloadBinary is a binary frame held in memory.
	PayloadBinary
	// PayloadBlob is an opaque binary object streamed from a reader.
	PayloadBlob
)

// String returns the string representation of a PayloadKind.
func (k PayloadKind) String() string {
	switch k {
	case PayloadText:
		return "text"
	case PayloadBinary:
		return "binary"
	case PayloadBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Payload is the raw contents of one frame. The manager never inspects it.
type Payload struct {
	Kind        PayloadKind
	Data        []byte    // Text and Binary
	Reader      io.Reader // Blob
	ContentType string    // Blob, informational only
}

// Text builds a text payload.
func Text(s string) Payload {
	return Payload{Kind: PayloadText, Data: []byte(s)}
}

// Binary builds a binary payload.
func Binary(b []byte) Payload {
	return Payload{Kind: PayloadBinary, Data: b}
}

// Blob builds a payload that is streamed from r as a single binary frame.
func Blob(r io.Reader, contentType string) Payload {
	return Payload{Kind: PayloadBlob, Reader: r, ContentType: contentType}
}

// Validate reports whether the payload can be written as a frame.
func (p Payload) Validate() error {
	switch p.Kind {
	case PayloadText, PayloadBinary:
		return nil
	case PayloadBlob:
		if p.Reader == nil {
			return fmt.Errorf("%w: blob without reader", ErrInvalidPayload)
		}
		return nil
	default:
		return ErrInvalidPayload
	}
}

// ReadyState mirrors the readiness of a single Handle.
type ReadyState int32

const (
	ReadyConnecting ReadyState = iota
	ReadyOpen
	ReadyClosing
	ReadyClosed
)

// String returns the string representation of a ReadyState.
func (s ReadyState) String() string {
	switch s {
	case ReadyConnecting:
		return "connecting"
	case ReadyOpen:
		return "open"
	case ReadyClosing:
		return "closing"
	case ReadyClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// State is the manager-level lifecycle state.
type State int

const (
	// StateNoTarget means no address is configured.
	StateNoTarget State = iota
	// StateConnecting means a handle exists and its handshake is pending.
	StateConnecting
	// StateOpen means frames may flow.
	StateOpen
	// StateClosing means a close was requested and the handle is not yet gone.
	StateClosing
	// StateClosed means an address is configured but its handle was discarded.
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateNoTarget:
		return "no_target"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Initiator records which side ended a connection.
type Initiator string

const (
	InitiatorLocal  Initiator = "local"
	InitiatorRemote Initiator = "remote"
)

// SendResult classifies the outcome of a send.
type SendResult string

const (
	SendSent    SendResult = "sent"
	SendDropped SendResult = "dropped"
	SendFailed  SendResult = "error"
)

// ClientConfig configures WebSocket handles created by WebSocketTransport.
type ClientConfig struct {
	HandshakeTimeout time.Duration // Max time for the opening handshake
	WriteTimeout     time.Duration // Write deadline for sends and control frames
	PingInterval     time.Duration // How often a keepalive ping is sent (0 = never)
	PongTimeout      time.Duration // Max time without pong before the connection is stale
	CloseTimeout     time.Duration // How long to wait for the peer's close frame
	ReadLimit        int64         // Max inbound frame size in bytes (0 = unlimited)
	Header           http.Header   // Extra handshake headers
	Subprotocols     []string      // Requested subprotocols
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		PongTimeout:      60 * time.Second,
		CloseTimeout:     time.Second,
		ReadLimit:        1 << 20,
	}
}
