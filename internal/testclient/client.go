// Package testclient talks to a running wfcserve over TCP. It backs the
// smoke scenarios run by wfcsmoke and the server's end-to-end tests.
package testclient

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/lawnchairsociety/wavetiles/internal/server"
)

// TestClient is one session connection.
type TestClient struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration
	mu      sync.Mutex
	history []server.Snapshot

	// Welcome is the snapshot the server sends on connect.
	Welcome server.Snapshot
}

// Dial connects to address and reads the welcome snapshot. timeout bounds
// every read and write.
func Dial(address string, timeout time.Duration) (*TestClient, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		timeout: timeout,
	}

	welcome, err := client.read()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read welcome: %w", err)
	}
	client.Welcome = welcome
	return client, nil
}

// Send sends one command and returns the server's reply.
func (c *TestClient) Send(cmd string) (server.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := c.writer.WriteString(cmd + "\n"); err != nil {
		return server.Snapshot{}, err
	}
	if err := c.writer.Flush(); err != nil {
		return server.Snapshot{}, err
	}
	return c.read()
}

// Sendf formats a command and sends it.
func (c *TestClient) Sendf(format string, args ...any) (server.Snapshot, error) {
	return c.Send(fmt.Sprintf(format, args...))
}

func (c *TestClient) read() (server.Snapshot, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return server.Snapshot{}, err
	}

	var snap server.Snapshot
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &snap); err != nil {
		return server.Snapshot{}, fmt.Errorf("bad reply %q: %w", line, err)
	}
	c.history = append(c.history, snap)
	return snap, nil
}

// History returns every reply received so far, welcome included.
func (c *TestClient) History() []server.Snapshot {
	result := make([]server.Snapshot, len(c.history))
	copy(result, c.history)
	return result
}

// Close closes the connection.
func (c *TestClient) Close() error {
	return c.conn.Close()
}

// Resolved reports whether every cell of snap shows a tile glyph rather than
// a candidate count.
func Resolved(snap server.Snapshot) bool {
	for _, row := range snap.Grid {
		if strings.ContainsAny(row, "23456789+") {
			return false
		}
	}
	return true
}
