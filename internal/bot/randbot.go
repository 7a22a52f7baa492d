package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/passtheace/internal/game"
)

// RandBot picks uniformly between the legal actions
type RandBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewRandBot creates a new RandBot instance
func NewRandBot(rng *rand.Rand, logger *log.Logger) *RandBot {
	return &RandBot{rng: rng, logger: logger}
}

func (r *RandBot) Name() string { return "rand" }

func (r *RandBot) Decide(view game.View) game.Action {
	if !CanPass(view) {
		return game.Keep
	}
	if r.rng.IntN(2) == 0 {
		return game.Keep
	}
	return game.Pass
}

// KeepBot never passes
type KeepBot struct {
	logger *log.Logger
}

// NewKeepBot creates a new KeepBot instance
func NewKeepBot(logger *log.Logger) *KeepBot {
	return &KeepBot{logger: logger}
}

func (k *KeepBot) Name() string { return "keep" }

func (k *KeepBot) Decide(game.View) game.Action { return game.Keep }
