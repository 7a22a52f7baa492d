package room

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lox/passtheace/internal/game"
	"github.com/lox/passtheace/internal/randutil"
	"github.com/lox/passtheace/internal/scheduler"
)

var (
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game in progress")
	ErrAlreadySeated  = errors.New("already seated in this room")
	ErrNotSeated      = errors.New("not seated in this room")
)

// Lobby status values
const (
	StatusWaiting    = "Waiting"
	StatusFull       = "Full"
	StatusInProgress = "In Progress"
)

// BotIDPrefix starts the id of every synthetic participant
const BotIDPrefix = "bot_"

// Room is one table: its roster, options and the optional running game.
//
// Every method other than Lock and Unlock expects the caller to hold the
// room lock.
type Room struct {
	Code      string
	Options   Options
	CreatedAt time.Time

	mu           sync.Mutex
	participants []*game.Participant
	game         *game.Game
	timers       *scheduler.Timers
	rng          *rand.Rand
}

// New creates an empty room
func New(code string, opts Options, timers *scheduler.Timers) *Room {
	return &Room{
		Code:      code,
		Options:   opts.Normalize(),
		CreatedAt: time.Now(),
		timers:    timers,
	}
}

func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// Timers returns the room's scheduled callbacks
func (r *Room) Timers() *scheduler.Timers { return r.timers }

// Rand returns the room's random stream, used for dealing and bots
func (r *Room) Rand() *rand.Rand {
	if r.rng == nil {
		r.rng = randutil.New(randutil.Seed())
	}
	return r.rng
}

// Game returns the running or finished game, nil between games
func (r *Room) Game() *game.Game { return r.game }

// InGame reports whether a game is being played
func (r *Room) InGame() bool {
	return r.game != nil && !r.game.Phase().Finished()
}

// StartGame creates and starts a game over the current roster
func (r *Room) StartGame(rng *rand.Rand, sink game.Sink, cfg game.Config) (*game.Game, error) {
	if r.InGame() {
		return nil, ErrGameInProgress
	}
	cfg.Participants = r.participants
	cfg.Rules = r.Options.Rules()
	cfg.Rand = rng
	cfg.Sink = sink

	g, err := game.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := g.Start(); err != nil {
		return nil, err
	}
	r.game = g
	return g, nil
}

// EndGame drops the finished game and prepares the roster for the next one:
// bots and disconnected humans leave, everyone else is reset.
func (r *Room) EndGame() {
	r.game = nil

	kept := r.participants[:0]
	for _, p := range r.participants {
		if !p.Human || p.Disconnected {
			continue
		}
		kept = append(kept, p)
	}
	clear(r.participants[len(kept):])
	r.participants = kept

	for _, p := range r.participants {
		p.Lives = r.Options.Lives
		p.Eliminated = false
		p.Card = nil
	}
	r.reindex()
}

// Join seats a human at the next free seat
func (r *Room) Join(id, name string) (*game.Participant, error) {
	if r.InGame() {
		return nil, ErrGameInProgress
	}
	if r.find(id) != nil {
		return nil, ErrAlreadySeated
	}
	if len(r.participants) >= r.Options.Seats {
		return nil, ErrRoomFull
	}

	p := &game.Participant{
		ID:    id,
		Name:  name,
		Human: true,
		Lives: r.Options.Lives,
		Seat:  len(r.participants),
	}
	r.participants = append(r.participants, p)
	return p, nil
}

// Leave removes a participant between games. During a game the seat must be
// forfeited through the game instead.
func (r *Room) Leave(id string) error {
	if r.InGame() {
		return ErrGameInProgress
	}
	for i, p := range r.participants {
		if p.ID == id {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			r.reindex()
			return nil
		}
	}
	return ErrNotSeated
}

// FillWithBots seats bots until the room is full and returns them
func (r *Room) FillWithBots(rng *rand.Rand) []*game.Participant {
	var added []*game.Participant
	for len(r.participants) < r.Options.Seats {
		p := &game.Participant{
			ID:    BotIDPrefix + uuid.NewString(),
			Name:  fmt.Sprintf("Bot_%04d", rng.IntN(10000)),
			Lives: r.Options.Lives,
			Seat:  len(r.participants),
		}
		r.participants = append(r.participants, p)
		added = append(added, p)
	}
	return added
}

// Has reports whether id holds a seat
func (r *Room) Has(id string) bool {
	return r.find(id) != nil
}

// Participant returns a copy of the participant with id
func (r *Room) Participant(id string) (game.Participant, bool) {
	p := r.find(id)
	if p == nil {
		return game.Participant{}, false
	}
	return p.Clone(), true
}

// Participants returns copies of the roster in seat order
func (r *Room) Participants() []game.Participant {
	out := make([]game.Participant, len(r.participants))
	for i, p := range r.participants {
		out[i] = p.Clone()
	}
	return out
}

// HumanIDs returns the ids of the connected humans in seat order
func (r *Room) HumanIDs() []string {
	var ids []string
	for _, p := range r.participants {
		if p.Human && !p.Disconnected {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// HumanCount returns the number of connected humans
func (r *Room) HumanCount() int {
	return len(r.HumanIDs())
}

// Status returns the lobby status of the room
func (r *Room) Status() string {
	switch {
	case r.InGame():
		return StatusInProgress
	case len(r.participants) >= r.Options.Seats:
		return StatusFull
	default:
		return StatusWaiting
	}
}

// Summary is one row of the lobby
type Summary struct {
	Code        string `json:"roomCode"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Status      string `json:"status"`
	Mode        Mode   `json:"mode"`
	Seats       int    `json:"seats"`
	Pace        Pace   `json:"pace"`
	BuyIn       string `json:"buyIn"`
}

// Summary returns the lobby row of the room
func (r *Room) Summary() Summary {
	return Summary{
		Code:        r.Code,
		PlayerCount: len(r.participants),
		MaxPlayers:  r.Options.Seats,
		Status:      r.Status(),
		Mode:        r.Options.Mode,
		Seats:       r.Options.Seats,
		Pace:        r.Options.Pace,
		BuyIn:       r.Options.BuyIn(),
	}
}

func (r *Room) find(id string) *game.Participant {
	for _, p := range r.participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) reindex() {
	for i, p := range r.participants {
		p.Seat = i
	}
}
