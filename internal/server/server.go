// Package server exposes generation sessions over WebSocket and plain TCP.
// Every connection owns a private engine and drives it one command at a time.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/wavetiles/internal/config"
	"github.com/lawnchairsociety/wavetiles/internal/logger"
	"github.com/lawnchairsociety/wavetiles/internal/render"
	"github.com/lawnchairsociety/wavetiles/internal/telemetry"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

type Server struct {
	cfg          *config.ServerConfig
	template     wfc.Config
	palette      render.Palette
	tracer       trace.Tracer
	connLimiter  *ConnLimiter
	sessions     map[string]*Session
	clients      map[string]Client
	mu           sync.RWMutex
	listener     net.Listener
	httpServer   *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a server whose sessions start from template. The
// template is validated once here so bad configuration fails at startup.
func NewServer(cfg *config.ServerConfig, template wfc.Config, palette render.Palette) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if template.Rows > 0 && template.Cols > 0 && !cfg.Sessions.FitsGrid(template.Rows, template.Cols) {
		return nil, fmt.Errorf("%w: %dx%d exceeds the %d cell session limit",
			wfc.ErrDimension, template.Rows, template.Cols, cfg.Sessions.CellLimit())
	}
	template.Rand = nil
	if _, err := wfc.NewEngine(template); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:         cfg,
		template:    template,
		palette:     palette,
		tracer:      telemetry.NoopTracer(),
		connLimiter: NewConnLimiter(cfg.Connections),
		sessions:    make(map[string]*Session),
		clients:     make(map[string]Client),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// SetTracer replaces the no-op tracer used for session spans.
func (s *Server) SetTracer(t trace.Tracer) {
	s.tracer = t
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Handler returns the HTTP handler serving /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// StartWebSocket serves the WebSocket endpoint on address until Shutdown.
func (s *Server) StartWebSocket(address string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("WebSocket server listening", "address", address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server: %w", err)
	}
	return nil
}

// Start listens for newline-delimited TCP sessions on address until Shutdown.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info("TCP server listening", "address", listener.Addr().String())
	return s.Serve(listener)
}

// Serve accepts TCP sessions on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Error("Error accepting connection", "error", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	remoteAddr := conn.RemoteAddr().String()
	ip := extractIP(remoteAddr)

	release, ok := s.connLimiter.TryAcquire(ip)
	if !ok {
		logger.Warning("Connection rejected - limit exceeded",
			"remote_addr", remoteAddr,
			"ip", ip)
		conn.Write([]byte(`{"error":"too many connections"}` + "\n"))
		conn.Close()
		return
	}
	defer release()
	defer conn.Close()

	s.handleClient(NewTCPClient(conn, int(s.cfg.WebSocket.MaxMessageSize)))
}

// handleClient is the shared session logic for both TCP and WebSocket.
func (s *Server) handleClient(client Client) {
	session, err := NewSession(s.template, time.Now().UnixNano(), s.palette, s.cfg.Sessions, s.tracer)
	if err != nil {
		logger.Error("Failed to create session", "remote_addr", client.RemoteAddr(), "error", err)
		return
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.clients[session.ID] = client
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, session.ID)
		delete(s.clients, session.ID)
		s.mu.Unlock()
	}()

	session.Serve(s.ctx, client)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, ips := s.connLimiter.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"sessions":    s.SessionCount(),
		"connections": total,
		"clients":     ips,
	})
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	release, ok := s.connLimiter.TryAcquire(clientIP)
	if !ok {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket upgrade failed", "error", err)
		release()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		defer wsConn.Close()
		s.handleClient(NewWebSocketClient(wsConn, s.cfg.WebSocket.MaxMessageSize))
	}()
}

// getRealIP extracts the real client IP from an HTTP request.
// It checks X-Forwarded-For header first (for reverse proxy setups),
// then falls back to the direct remote address.
func getRealIP(r *http.Request) string {
	// "client, proxy1, proxy2": the first one is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if clientIP := strings.TrimSpace(strings.Split(xff, ",")[0]); clientIP != "" {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return extractIP(r.RemoteAddr)
}

// Shutdown stops accepting connections, closes every live session and waits
// for their goroutines to finish.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		if s.httpServer != nil {
			s.httpServer.Close()
		}
		for _, c := range s.clients {
			c.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()
		logger.Info("Server shutdown complete")
	})
}
