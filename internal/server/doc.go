// Package server implements the core HTTP and WebSocket relay for ChatRelay.
//
// The implementation is organized into specialized files for configuration,
// wire events, the connection registry, the room directory, the message
// router, the hub, and HTTP handlers to keep the codebase maintainable and
// testable as the project grows.
package server
