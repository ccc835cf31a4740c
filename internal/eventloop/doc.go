// Package eventloop provides the single logical thread the connection
// manager runs on.
//
// Transport goroutines and host inputs (stdin, file watchers) Post work to
// the loop. The loop runs it in FIFO order, so the manager itself needs no
// locks.
package eventloop
