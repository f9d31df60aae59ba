// Package gateway exposes a small operational HTTP surface: a status
// endpoint and a WebSocket feed of bot lifecycle events.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/modseek/internal/channel"
	"github.com/soyeahso/modseek/internal/config"
	"github.com/soyeahso/modseek/internal/domain"
	"github.com/soyeahso/modseek/internal/hooks"
	"github.com/soyeahso/modseek/internal/logging"
	"github.com/soyeahso/modseek/internal/version"
)

// SessionCounter reports how many conversational sessions are tracked.
type SessionCounter interface {
	Count() int
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Version       string                 `json:"version"`
	UptimeSeconds int64                  `json:"uptimeSeconds"`
	Sessions      int                    `json:"sessions"`
	Channels      []domain.ChannelStatus `json:"channels"`
}

// Server is the gateway HTTP + WebSocket server.
type Server struct {
	cfg      config.GatewayConfig
	channels *channel.Registry
	sessions SessionCounter
	hooks    *hooks.Manager
	log      *logging.Logger

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex
}

// New creates the gateway and subscribes it to every bot event for the
// WebSocket feed.
func New(cfg config.GatewayConfig, channels *channel.Registry, sessions SessionCounter, hm *hooks.Manager, log *logging.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		channels:  channels,
		sessions:  sessions,
		hooks:     hm,
		log:       log.Sub("gateway"),
		startedAt: time.Now(),
		clients:   make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if hm != nil {
		hm.OnAny("gateway-feed", func(_ context.Context, p hooks.Payload) error {
			s.broadcast(p)
			return nil
		})
	}
	return s
}

// Handler returns the routed HTTP handler. Split out from Start so tests
// can serve it without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.requireToken(s.handleStatus))
	mux.HandleFunc("/ws", s.requireToken(s.handleWebSocket))
	return mux
}

// Start listens until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := s.cfg.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	addr := fmt.Sprintf("%s:%d", bind, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("gateway listening")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.closeClients()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requireToken checks the bearer token (or ?token= for WebSocket clients
// that cannot set headers). An unset token rejects everything.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if presented == "" || presented == r.Header.Get("Authorization") {
			presented = r.URL.Query().Get("token")
		}
		if s.cfg.Token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(s.cfg.Token)) != 1 {
			s.log.Warn().Str("remote", r.RemoteAddr).Str("path", r.URL.Path).Msg("unauthorized request")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatusResponse{
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if s.sessions != nil {
		resp.Sessions = s.sessions.Count()
	}
	if s.channels != nil {
		resp.Channels = s.channels.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("status encode failed")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.mu.Lock()
	s.clients[conn] = &sync.Mutex{}
	count := len(s.clients)
	s.mu.Unlock()
	s.log.Info().Str("remote", r.RemoteAddr).Int("clients", count).Msg("event feed client connected")

	// Reads are only needed to observe the close handshake.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast fans one event out to every connected feed client. Writes to
// the same connection are serialized; dead clients are dropped.
func (s *Server) broadcast(p hooks.Payload) {
	data, err := json.Marshal(p)
	if err != nil {
		s.log.Error().Err(err).Str("event", p.Event).Msg("event encode failed")
		return
	}

	s.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(s.clients))
	for conn, wmu := range s.clients {
		conns[conn] = wmu
	}
	s.mu.Unlock()

	for conn, wmu := range conns {
		wmu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		wmu.Unlock()
		if err != nil {
			s.log.Debug().Err(err).Msg("feed client write failed, dropping")
			s.dropClient(conn)
		}
	}
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	s.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clients = make(map[*websocket.Conn]*sync.Mutex)
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
