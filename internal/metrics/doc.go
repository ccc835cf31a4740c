// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Handles dialed and closed, by initiator
//   - Events delivered to the callback, by kind
//   - Send outcomes (sent, dropped, error)
//   - Current connection state and listener binding generation
//   - Event loop queue depth
//
// Metrics implements connection.Recorder, so the manager reports into it
// directly.
package metrics
