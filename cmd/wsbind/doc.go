// Package main provides the entry point for wsbind.
//
// wsbind keeps one WebSocket connection bound to a target address that can
// change at runtime. Received events are printed to stdout and stdin lines
// are sent to the peer.
//
// Usage:
//
//	wsbind --address ws://localhost:8080/ws
//	wsbind --config configs/wsbind.example.yaml
//	wsbind --address-file /run/wsbind/target
//
// Console commands:
//
//	/connect <address>  point the connection at a new address
//	/clear              drop the target address
//	/disconnect         close the current connection
//	/binary <hex>       send a binary frame
//	/state              print the connection state
//	//text              send "/text" as a text frame
//
// Any other line is sent as a text frame.
package main
