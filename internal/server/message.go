package server

import (
	"encoding/json"
	"time"

	"github.com/lox/passtheace/internal/game"
	"github.com/lox/passtheace/internal/room"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// MessageFromEvent wraps a game event in a message of the event's type
func MessageFromEvent(e game.Event) (*Message, error) {
	return NewMessage(MessageType(e.EventType()), e)
}

// Client → Server Messages

type CreateRoomData struct {
	Username string       `json:"username"`
	Options  room.Options `json:"options"`
}

type JoinData struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// RoomData is the payload of start_game, keep_card and pass_card
type RoomData struct {
	Room string `json:"room"`
}

// Server → Client Messages

type ConnectedData struct {
	PlayerID string `json:"playerId"`
}

type RoomCreatedData struct {
	RoomCode string `json:"roomCode"`
}

type RoomJoinedData struct {
	RoomCode string             `json:"roomCode"`
	Player   game.Participant   `json:"player"`
	Players  []game.Participant `json:"players"`
	Options  room.Options       `json:"options"`
}

type PlayerListData struct {
	RoomCode string             `json:"roomCode"`
	Players  []game.Participant `json:"players"`
}

type LobbyData struct {
	Rooms []room.Summary `json:"rooms"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
