package game

import (
	"fmt"
	"time"

	"github.com/lox/passtheace/internal/deck"
)

// DealerPolicy selects the first dealer of a game
type DealerPolicy int

const (
	// DealerHighCard picks the highest dealt card, lowest seat on ties. It is
	// deterministic for a given deal.
	DealerHighCard DealerPolicy = iota
	// DealerRandom picks a random active seat.
	DealerRandom
)

func (d DealerPolicy) String() string {
	if d == DealerRandom {
		return "random"
	}
	return "high_card"
}

// Values maps a card to its round value: 2..10 literal, J=11, Q=12, K=13 and
// the Ace either low (1) or, with AceHigh, 14.
type Values struct {
	AceHigh bool
}

// Of returns the value of a card
func (v Values) Of(c deck.Card) int {
	if c.Rank == deck.Ace {
		if v.AceHigh {
			return 14
		}
		return 1
	}
	return int(c.Rank)
}

// Rules are the per-game rule options
type Rules struct {
	Lives         int
	PassDirection int
	KingPenalty   int
	MinHumans     int
	TurnTimeout   time.Duration
	TimeoutAction Action
	Dealer        DealerPolicy
	Values        Values
}

// DefaultRules returns the Classic rule set
func DefaultRules() Rules {
	return Rules{
		Lives:         5,
		PassDirection: 1,
		KingPenalty:   1,
		MinHumans:     2,
		TurnTimeout:   20 * time.Second,
		TimeoutAction: Keep,
		Dealer:        DealerHighCard,
	}
}

// Validate checks the rule values the state machine depends on
func (r Rules) Validate() error {
	if r.Lives < 1 {
		return fmt.Errorf("lives must be at least 1, got %d", r.Lives)
	}
	if r.PassDirection != 1 && r.PassDirection != -1 {
		return fmt.Errorf("pass direction must be +1 or -1, got %d", r.PassDirection)
	}
	if r.KingPenalty < 1 {
		return fmt.Errorf("king penalty must be at least 1, got %d", r.KingPenalty)
	}
	if r.MinHumans < 0 {
		return fmt.Errorf("minimum humans cannot be negative, got %d", r.MinHumans)
	}
	if r.TurnTimeout < 0 {
		return fmt.Errorf("turn timeout cannot be negative, got %s", r.TurnTimeout)
	}
	return nil
}

// penalty returns the lives lost by a participant losing with card c
func (r Rules) penalty(c deck.Card) int {
	if c.IsKing() && r.KingPenalty > 1 {
		return r.KingPenalty
	}
	return 1
}
