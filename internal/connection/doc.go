// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns at most one WebSocket handle, keyed by the target address
//   - Closes the old handle before dialing a new one when the address changes
//   - Keeps exactly one generation of open/close/error/message listeners
//     attached, routed to the current callback
//   - Derives send and disconnect operations that are no-ops without a handle
//   - Never reconnects on its own after the connection drops
//
// The manager runs on a single logical thread. Transports hand their events
// to a Dispatcher (see internal/eventloop) instead of calling back directly.
package connection
