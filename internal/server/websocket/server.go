package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/frostlabs/pulse/internal/broker"
	"github.com/frostlabs/pulse/internal/domain/ports"
	"github.com/frostlabs/pulse/internal/protocol"
	"github.com/frostlabs/pulse/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Clients connect from apps, not browsers on our origin.
		return true
	},
}

// Server accepts streaming connections and attaches a session to each.
type Server struct {
	addr   string
	server *http.Server
	broker *broker.Broker
	auth   ports.Authenticator

	mu       sync.RWMutex
	clients  map[string]*Client
	sessions map[string]*session.Session
}

// NewServer creates the streaming WebSocket server.
func NewServer(host string, port int, b *broker.Broker, auth ports.Authenticator) *Server {
	addr := fmt.Sprintf("%s:%d", host, port)
	s := &Server{
		addr:     addr,
		broker:   b,
		auth:     auth,
		clients:  make(map[string]*Client),
		sessions: make(map[string]*session.Session),
	}

	r := mux.NewRouter()
	r.HandleFunc("/streaming", s.handleWebSocket)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
		// No ReadTimeout/WriteTimeout: those apply to the underlying HTTP
		// connection and would kill long-lived WebSocket connections. The
		// pumps manage their own deadlines.
	}

	return s
}

// Start starts the server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("streaming server starting")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("streaming server error")
		}
	}()

	return nil
}

// Stop gracefully stops the server, closing all client connections.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("streaming server stopping")

	s.mu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.clients = make(map[string]*Client)
	s.sessions = make(map[string]*session.Session)
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

// handleWebSocket upgrades the connection, authenticates it, and attaches a
// session. Authentication failures are reported on the socket and the
// connection is closed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	principal, err := s.auth.VerifyAccess(r.Context(),
		r.URL.Query().Get("applicationKey"),
		r.URL.Query().Get("accessKey"))
	if err != nil {
		log.Debug().Err(err).Str("remote_addr", conn.RemoteAddr().String()).Msg("connection rejected")
		s.rejectConnection(conn, err.Error())
		return
	}

	client := NewClient(conn, s.dispatchMessage, s.onClientClose)
	sess := session.New(client.ID(), principal.UserID, client, s.broker)

	s.mu.Lock()
	s.clients[client.ID()] = client
	s.sessions[client.ID()] = sess
	s.mu.Unlock()

	log.Info().
		Str("client_id", client.ID()).
		Str("user_id", principal.UserID).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("client connected")

	client.Start()
}

// dispatchMessage routes an incoming frame to the client's session.
func (s *Server) dispatchMessage(clientID string, message []byte) {
	s.mu.RLock()
	sess := s.sessions[clientID]
	s.mu.RUnlock()

	if sess == nil {
		return
	}
	sess.HandleMessage(context.Background(), message)
}

// onClientClose unwinds the session when the connection goes away.
func (s *Server) onClientClose(clientID string) {
	s.mu.Lock()
	sess := s.sessions[clientID]
	delete(s.sessions, clientID)
	delete(s.clients, clientID)
	s.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	log.Info().Str("client_id", clientID).Msg("client disconnected")
}

// rejectConnection sends a structured connection error then closes.
func (s *Server) rejectConnection(conn *websocket.Conn, msg string) {
	frame, err := json.Marshal(protocol.Frame{
		Event:   protocol.EventError,
		Payload: protocol.ErrorResponse{Error: msg},
	})
	if err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}
	_ = conn.Close()
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// handleHealth reports liveness plus basic connection stats.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}
