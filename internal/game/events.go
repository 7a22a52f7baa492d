package game

// EventType identifies an outbound event
type EventType string

const (
	EventTypeGameStarted EventType = "game_started"
	EventTypeTurnUpdate  EventType = "turn_update"
	EventTypeCardPassed  EventType = "card_passed"
	EventTypeTimeout     EventType = "timeout"
	EventTypeRoundEnded  EventType = "round_ended"
	EventTypeGameOver    EventType = "game_over"
	EventTypeGameAborted EventType = "game_aborted"
	EventTypePlayerLeft  EventType = "player_left"
	EventTypeError       EventType = "error"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is anything the state machine tells the room about
type Event interface {
	EventType() EventType
}

// Sink delivers events. Broadcast goes to every participant of the room,
// Unicast to one participant only.
type Sink interface {
	Broadcast(e Event)
	Unicast(participantID string, e Event)
}

// SinkFunc adapts a function receiving (recipient, event) to a Sink. The
// recipient is empty for broadcasts.
type SinkFunc func(participantID string, e Event)

func (f SinkFunc) Broadcast(e Event)                     { f("", e) }
func (f SinkFunc) Unicast(participantID string, e Event) { f(participantID, e) }

type discardSink struct{}

func (discardSink) Broadcast(Event)       {}
func (discardSink) Unicast(string, Event) {}

// Snapshot is a deep copy of the game state
type Snapshot struct {
	Phase         Phase         `json:"phase"`
	Round         int           `json:"round"`
	DealerSeat    int           `json:"dealerSeat"`
	CurrentSeat   int           `json:"currentSeat"`
	CurrentID     string        `json:"currentPlayerId"`
	RoundStart    int           `json:"roundStartSeat"`
	TurnsTaken    int           `json:"turnsTaken"`
	DeckRemaining int           `json:"deckRemaining"`
	PassDirection int           `json:"passDirection"`
	Participants  []Participant `json:"players"`
}

// GameStartedEvent carries the initial state
type GameStartedEvent struct {
	Snapshot
}

func (GameStartedEvent) EventType() EventType { return EventTypeGameStarted }

// TurnUpdateEvent announces the participant expected to act
type TurnUpdateEvent struct {
	CurrentPlayerID string        `json:"currentPlayerId"`
	CurrentSeat     int           `json:"currentSeat"`
	DealerSeat      int           `json:"dealerSeat"`
	Round           int           `json:"round"`
	TurnsTaken      int           `json:"turnsTaken"`
	TimeoutMs       int64         `json:"timeoutMs,omitempty"`
	Participants    []Participant `json:"players"`
}

func (TurnUpdateEvent) EventType() EventType { return EventTypeTurnUpdate }

// CardPassedEvent carries the two seats of a swap, for animation
type CardPassedEvent struct {
	FromSeat int     `json:"fromIndex"`
	ToSeat   int     `json:"toIndex"`
	Trigger  Trigger `json:"trigger"`
}

func (CardPassedEvent) EventType() EventType { return EventTypeCardPassed }

// TimeoutEvent is broadcast when the turn deadline acts for a participant
type TimeoutEvent struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seatIndex"`
	Action   Action `json:"action"`
}

func (TimeoutEvent) EventType() EventType { return EventTypeTimeout }

// Loser is one participant that lost lives in a round
type Loser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Seat      int    `json:"seatIndex"`
	Card      string `json:"card"`
	LivesLost int    `json:"livesLost"`
	Out       bool   `json:"eliminated"`
}

// RoundEndedEvent reveals the cards and the losers of a round
type RoundEndedEvent struct {
	Round        int           `json:"round"`
	Participants []Participant `json:"updatedPlayers"`
	Losers       []Loser       `json:"losers"`
	Voided       bool          `json:"voided,omitempty"`
}

func (RoundEndedEvent) EventType() EventType { return EventTypeRoundEnded }

// GameOverEvent names the winner
type GameOverEvent struct {
	Winner Participant `json:"winner"`
	Rounds int         `json:"rounds"`
}

func (GameOverEvent) EventType() EventType { return EventTypeGameOver }

// GameAbortedEvent is broadcast when the game stops on an internal error
type GameAbortedEvent struct {
	Reason string `json:"reason"`
}

func (GameAbortedEvent) EventType() EventType { return EventTypeGameAborted }

// PlayerLeftEvent is broadcast when a participant forfeits mid-game
type PlayerLeftEvent struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seatIndex"`
}

func (PlayerLeftEvent) EventType() EventType { return EventTypePlayerLeft }

// ErrorEvent is unicast to the participant whose request broke a rule
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorEvent) EventType() EventType { return EventTypeError }

// ErrorEventFrom converts a rule violation into its event
func ErrorEventFrom(err *RuleError) ErrorEvent {
	return ErrorEvent{Code: err.Code, Message: err.Message}
}
