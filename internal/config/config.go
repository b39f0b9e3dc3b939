package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds settings for the websocket stepping server.
type ServerConfig struct {
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	Sessions    SessionsConfig    `yaml:"sessions"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections. 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// SessionsConfig bounds what a single client may ask an engine to do.
type SessionsConfig struct {
	// MaxCells caps rows*cols for a session grid. 0 means DefaultMaxCells.
	MaxCells int `yaml:"max_cells"`

	// MaxStepBatch caps n in "step n".
	MaxStepBatch int `yaml:"max_step_batch"`

	// IdleTimeoutSeconds closes a session after this long without a command.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect.
	// Empty list enforces same-origin policy; "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum inbound message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultMaxCells is the session grid cap used when MaxCells is unset.
const DefaultMaxCells = 64 * 64

// CellLimit is the effective cap on rows*cols.
func (c SessionsConfig) CellLimit() int {
	if c.MaxCells > 0 {
		return c.MaxCells
	}
	return DefaultMaxCells
}

// FitsGrid reports whether a rows x cols grid is positive and within
// CellLimit, without computing rows*cols.
func (c SessionsConfig) FitsGrid(rows, cols int) bool {
	return rows > 0 && cols > 0 && rows <= c.CellLimit()/cols
}

// DefaultConfig returns a ServerConfig with conservative defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		WebSocket: WebSocketConfig{
			AllowedOrigins: []string{},
			MaxMessageSize: 4096,
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 3,
			MaxTotal: 100,
		},
		Sessions: SessionsConfig{
			MaxCells:           DefaultMaxCells,
			MaxStepBatch:       1000,
			IdleTimeoutSeconds: 300,
		},
	}
}

// IdleTimeout is IdleTimeoutSeconds as a duration; zero disables it.
func (c SessionsConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// LoadConfig loads server configuration from the "server" section of a YAML
// file, then applies WAVETILES_* environment overrides. A missing file yields
// the defaults.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		wrapper := struct {
			Server *ServerConfig `yaml:"server"`
		}{Server: config}
		if err := yaml.Unmarshal(data, &wrapper); err != nil {
			return DefaultConfig(), fmt.Errorf("parse server config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return config, err
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return config, nil
}

func (c *ServerConfig) applyEnv() {
	if v := os.Getenv("WAVETILES_ALLOWED_ORIGINS"); v != "" {
		c.WebSocket.AllowedOrigins = c.WebSocket.AllowedOrigins[:0]
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.WebSocket.AllowedOrigins = append(c.WebSocket.AllowedOrigins, origin)
			}
		}
	}
	if v, ok := envInt("WAVETILES_MAX_PER_IP"); ok {
		c.Connections.MaxPerIP = v
	}
	if v, ok := envInt("WAVETILES_MAX_CONNECTIONS"); ok {
		c.Connections.MaxTotal = v
	}
}

func envInt(key string) (int, bool) {
	v, err := strconv.Atoi(os.Getenv(key))
	return v, err == nil
}

// Validate rejects negative limits.
func (c *ServerConfig) Validate() error {
	for name, v := range map[string]int64{
		"websocket.max_message_size":    c.WebSocket.MaxMessageSize,
		"connections.max_per_ip":        int64(c.Connections.MaxPerIP),
		"connections.max_total":         int64(c.Connections.MaxTotal),
		"sessions.max_cells":            int64(c.Sessions.MaxCells),
		"sessions.max_step_batch":       int64(c.Sessions.MaxStepBatch),
		"sessions.idle_timeout_seconds": int64(c.Sessions.IdleTimeoutSeconds),
	} {
		if v < 0 {
			return fmt.Errorf("config: %s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// IsOriginAllowed reports whether a websocket handshake from origin may
// proceed. An empty AllowedOrigins list means same-origin only; "*" allows
// everything.
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}
	return slices.ContainsFunc(c.AllowedOrigins, func(allowed string) bool {
		return allowed == "*" || allowed == origin
	})
}

// isSameOrigin compares the host of origin with requestHost. Requests
// without an Origin header come from non-browser clients and pass.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == requestHost
}
