package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Outbox delivers messages to connected participants
type Outbox interface {
	Send(playerID string, msg *Message)
	SendAll(msg *Message)
}

// Server represents the WebSocket server
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	gameService *GameService
	mux         *http.ServeMux
	httpServer  *http.Server
	runOnce     sync.Once
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			// Browser clients are served from anywhere
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s
}

// Handler returns the HTTP handler serving /ws and /health. The connection
// loop is started on first use.
func (s *Server) Handler() http.Handler {
	s.runOnce.Do(func() { go s.run() })
	return s.mux
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Handler()}

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every connection and shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for _, conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn.PlayerID()] = conn
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "player", conn.PlayerID(), "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn.PlayerID()]
			delete(s.connections, conn.PlayerID())
			total := len(s.connections)
			s.mu.Unlock()

			if ok {
				_ = conn.Close() // Ignore close errors during unregistration
				if s.gameService != nil {
					s.gameService.Disconnect(conn.PlayerID())
				}
			}
			s.logger.Info("Client disconnected", "player", conn.PlayerID(), "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, uuid.NewString(), s.logger, s.gameService)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = client.Close()
		return
	}

	if msg, err := NewMessage(MessageTypeConnected, ConnectedData{PlayerID: client.PlayerID()}); err == nil {
		_ = client.SendMessage(msg)
	}
	if s.gameService != nil {
		if msg, err := s.gameService.LobbyMessage(); err == nil {
			_ = client.SendMessage(msg)
		}
	}
	client.Start()

	go func() {
		<-client.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// Send delivers msg to one player if they are connected
func (s *Server) Send(playerID string, msg *Message) {
	s.mu.RLock()
	conn, ok := s.connections[playerID]
	s.mu.RUnlock()

	if !ok {
		s.logger.Debug("Dropping message for unknown player", "player", playerID, "type", msg.Type)
		return
	}
	if err := conn.SendMessage(msg); err != nil {
		s.logger.Debug("Failed to send message to client", "error", err, "player", playerID)
	}
}

// SendAll delivers msg to every connection
func (s *Server) SendAll(msg *Message) {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for _, conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.SendMessage(msg) // Ignore send errors, the connection cleans itself up
	}
	s.logger.Debug("Broadcasted message", "type", msg.Type, "recipients", len(conns))
}

// ConnectedPlayers returns the ids of every connected player
func (s *Server) ConnectedPlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]string, 0, len(s.connections))
	for id := range s.connections {
		players = append(players, id)
	}
	return players
}

// SetGameService sets the game service for the server
func (s *Server) SetGameService(gameService *GameService) {
	s.gameService = gameService
}
