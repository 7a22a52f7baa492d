package server

import "github.com/lox/passtheace/internal/game"

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants. Game events travel under their own
// event type, see internal/game/events.go.
const (
	// Client to server messages
	MessageTypeCreateRoom   MessageType = "create_room"
	MessageTypeJoin         MessageType = "join"
	MessageTypeStartGame    MessageType = "start_game"
	MessageTypeKeepCard     MessageType = "keep_card"
	MessageTypePassCard     MessageType = "pass_card"
	MessageTypeRequestLobby MessageType = "request_lobby"

	// Server to client messages
	MessageTypeConnected   MessageType = "connected"
	MessageTypeRoomCreated MessageType = "room_created"
	MessageTypeRoomJoined  MessageType = "room_joined"
	MessageTypePlayerList  MessageType = "player_list"
	MessageTypeLobbyUpdate MessageType = "lobby_update"
	MessageTypeError       MessageType = MessageType(game.EventTypeError)
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
