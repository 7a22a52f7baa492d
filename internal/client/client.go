package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/passtheace/internal/room"
	"github.com/lox/passtheace/internal/server" // Reuse message types
)

// AllMessages registers a handler for every message type
const AllMessages server.MessageType = "*"

var (
	ErrNotConnected = errors.New("not connected")
	ErrNotInRoom    = errors.New("not in a room")
)

// Client represents a WebSocket client for a Pass the Ace server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	playerID  string
	roomCode  string
	closeOnce sync.Once

	// Handlers run in the order messages arrive, on one goroutine
	eventHandlers map[server.MessageType][]EventHandler
	waiters       map[server.MessageType][]chan *server.Message
}

// EventHandler is a function that handles incoming events
type EventHandler func(*server.Message)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, 256),
		receive:       make(chan *server.Message, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[server.MessageType][]EventHandler),
		waiters:       make(map[server.MessageType][]chan *server.Message),
	}
}

// WebSocketURL turns a server address into its /ws endpoint. http and https
// become ws and wss; a missing path defaults to /ws.
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	wsURL, err := WebSocketURL(c.serverURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close() // Ignore close errors during shutdown
			c.connected = false
		}

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// Done is closed once the client is disconnected
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// PlayerID returns the id the server assigned on connect
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// RoomCode returns the code of the room the client last joined
func (c *Client) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (c *Client) sendData(mt server.MessageType, data any) error {
	msg, err := server.NewMessage(mt, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		c.cancel()
	}()

	for {
		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// eventProcessor processes incoming messages and dispatches to handlers
func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.handleMessage(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage tracks the client's identity and room, then dispatches to
// handlers and waiters
func (c *Client) handleMessage(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeConnected:
		var data server.ConnectedData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			c.mu.Lock()
			c.playerID = data.PlayerID
			c.mu.Unlock()
		}
	case server.MessageTypeRoomJoined:
		var data server.RoomJoinedData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			c.mu.Lock()
			c.roomCode = data.RoomCode
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	handlers := append(append([]EventHandler(nil), c.eventHandlers[msg.Type]...), c.eventHandlers[AllMessages]...)
	waiters := c.waiters[msg.Type]
	delete(c.waiters, msg.Type)
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- msg
	}
	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
	}
	for _, handler := range handlers {
		handler(msg)
	}
}

// AddEventHandler adds an event handler for a specific message type, or for
// every type with AllMessages
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// WaitForMessage waits for the next message of a specific type
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	ch := make(chan *server.Message, 1)
	c.mu.Lock()
	c.waiters[messageType] = append(c.waiters[messageType], ch)
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-ch:
		return msg, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for %s", messageType)
	case <-c.ctx.Done():
		return nil, ErrNotConnected
	}
}

// CreateRoom opens a room with opts
func (c *Client) CreateRoom(username string, opts room.Options) error {
	return c.sendData(server.MessageTypeCreateRoom, server.CreateRoomData{Username: username, Options: opts})
}

// Join takes a seat in the room with code
func (c *Client) Join(code, username string) error {
	return c.sendData(server.MessageTypeJoin, server.JoinData{Username: username, Room: code})
}

// StartGame asks the server to start the game in the current room
func (c *Client) StartGame() error {
	return c.roomAction(server.MessageTypeStartGame)
}

// Keep keeps the current card
func (c *Client) Keep() error {
	return c.roomAction(server.MessageTypeKeepCard)
}

// Pass passes the current card to the next seat
func (c *Client) Pass() error {
	return c.roomAction(server.MessageTypePassCard)
}

// RequestLobby asks for the room list
func (c *Client) RequestLobby() error {
	return c.sendData(server.MessageTypeRequestLobby, struct{}{})
}

func (c *Client) roomAction(mt server.MessageType) error {
	code := c.RoomCode()
	if code == "" {
		return ErrNotInRoom
	}
	return c.sendData(mt, server.RoomData{Room: code})
}
