package room

import (
	"fmt"
	"time"

	"github.com/lox/passtheace/internal/game"
)

// Mode names a fixed rule variant
type Mode string

const (
	// ModeClassic: lowest value loses, Ace low, clockwise, a King costs one life
	ModeClassic Mode = "Classic"
	// ModeSuddenDeath is Classic with a single life
	ModeSuddenDeath Mode = "Sudden Death"
	// ModeReverse is Classic passing counter-clockwise
	ModeReverse Mode = "Reverse"
	// ModeAceHigh is Classic with the Ace worth 14
	ModeAceHigh Mode = "Ace High"
	// ModeRoyalTax is Classic where a losing King costs two lives
	ModeRoyalTax Mode = "Royal Tax"
)

// Modes lists every mode in lobby order
func Modes() []Mode {
	return []Mode{ModeClassic, ModeSuddenDeath, ModeReverse, ModeAceHigh, ModeRoyalTax}
}

func (m Mode) valid() bool {
	for _, mode := range Modes() {
		if m == mode {
			return true
		}
	}
	return false
}

// Pace sets the turn deadline for humans
type Pace string

const (
	PaceFast    Pace = "Fast"
	PaceRegular Pace = "Regular"
	PaceRelaxed Pace = "Relaxed"
	PaceUntimed Pace = "Untimed"
)

// Paces lists every pace in lobby order
func Paces() []Pace {
	return []Pace{PaceFast, PaceRegular, PaceRelaxed, PaceUntimed}
}

// TurnTimeout returns the turn deadline, zero when untimed
func (p Pace) TurnTimeout() time.Duration {
	switch p {
	case PaceFast:
		return 10 * time.Second
	case PaceRelaxed:
		return 40 * time.Second
	case PaceUntimed:
		return 0
	default:
		return 20 * time.Second
	}
}

func (p Pace) valid() bool {
	for _, pace := range Paces() {
		if p == pace {
			return true
		}
	}
	return false
}

// Seat and life limits
const (
	MinSeats     = 2
	MaxSeats     = 10
	DefaultSeats = 8
	DefaultLives = 5
	MaxLives     = 9
)

// Options are chosen by the creator of a room
type Options struct {
	Mode          Mode        `json:"mode"`
	Seats         int         `json:"seats"`
	Pace          Pace        `json:"pace"`
	Lives         int         `json:"lives,omitempty"`
	TimeoutAction game.Action `json:"timeoutAction,omitempty"`
	SinglePlayer  bool        `json:"singlePlayer,omitempty"`
}

// DefaultOptions returns the options of a room joined by code before anyone
// configured it
func DefaultOptions() Options {
	return Options{}.Normalize()
}

// Normalize clamps and defaults client supplied options
func (o Options) Normalize() Options {
	switch {
	case o.Seats == 0:
		o.Seats = DefaultSeats
	case o.Seats < MinSeats:
		o.Seats = MinSeats
	case o.Seats > MaxSeats:
		o.Seats = MaxSeats
	}
	if !o.Mode.valid() {
		o.Mode = ModeClassic
	}
	if !o.Pace.valid() {
		o.Pace = PaceRegular
	}

	switch {
	case o.Mode == ModeSuddenDeath:
		o.Lives = 1
	case o.Lives <= 0:
		o.Lives = DefaultLives
	case o.Lives > MaxLives:
		o.Lives = MaxLives
	}

	if o.TimeoutAction != game.Pass {
		o.TimeoutAction = game.Keep
	}
	return o
}

// BuyIn describes the starting lives for the lobby
func (o Options) BuyIn() string {
	if o.Lives == 1 {
		return "1 Chip"
	}
	return fmt.Sprintf("%d Chips", o.Lives)
}

// Rules derives the game rules from normalized options
func (o Options) Rules() game.Rules {
	rules := game.DefaultRules()
	rules.Lives = o.Lives
	rules.TurnTimeout = o.Pace.TurnTimeout()
	rules.TimeoutAction = o.TimeoutAction
	if o.SinglePlayer {
		rules.MinHumans = 1
	}

	switch o.Mode {
	case ModeReverse:
		rules.PassDirection = -1
	case ModeAceHigh:
		rules.Values = game.Values{AceHigh: true}
	case ModeRoyalTax:
		rules.KingPenalty = 2
	}
	return rules
}
