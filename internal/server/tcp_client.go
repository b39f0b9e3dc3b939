package server

import (
	"bufio"
	"net"
	"strings"
	"time"
)

// TCPClient wraps a raw TCP connection for newline-delimited communication.
type TCPClient struct {
	conn    net.Conn
	scanner *bufio.Scanner
	writer  *bufio.Writer
}

// NewTCPClient creates a new TCPClient from a TCP connection. Lines longer
// than maxLine bytes end the connection.
func NewTCPClient(conn net.Conn, maxLine int) *TCPClient {
	scanner := bufio.NewScanner(conn)
	if maxLine > 0 {
		scanner.Buffer(make([]byte, 0, min(maxLine, 4096)), maxLine)
	}
	return &TCPClient{
		conn:    conn,
		scanner: scanner,
		writer:  bufio.NewWriter(conn),
	}
}

// ReadLine reads the next non-empty line from the connection (blocking).
// Returns the line without the trailing newline or carriage return.
func (c *TCPClient) ReadLine() (string, error) {
	for c.scanner.Scan() {
		if line := strings.TrimSpace(c.scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	// Scanner finished without error means EOF/connection closed
	return "", net.ErrClosed
}

// WriteLine writes a message followed by a newline to the client.
func (c *TCPClient) WriteLine(message string) error {
	if _, err := c.writer.WriteString(message); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	return c.writer.Flush()
}

// SetReadDeadline sets the read deadline on the underlying connection.
func (c *TCPClient) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close closes the underlying connection.
func (c *TCPClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *TCPClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
