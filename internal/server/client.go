package server

import "time"

// Client abstracts the connection layer for both TCP and WebSocket connections.
// This allows sessions to handle both protocols transparently.
type Client interface {
	// ReadLine blocks until a complete line is received (without newline).
	ReadLine() (string, error)

	// WriteLine sends a line to the client.
	// For TCP, this appends a newline. For WebSocket, it sends one message.
	WriteLine(message string) error

	// SetReadDeadline bounds the next ReadLine. The zero time means no limit.
	SetReadDeadline(t time.Time) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the client's address for logging.
	RemoteAddr() string
}
