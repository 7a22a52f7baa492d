package bot

import (
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/lox/passtheace/internal/game"
)

// Strategy decides a bot's move from what its seat can see. Every strategy
// keeps when passing is illegal.
type Strategy interface {
	Name() string
	Decide(view game.View) game.Action
}

// ErrUnknownStrategy is returned by New for a name with no strategy
var ErrUnknownStrategy = errors.New("unknown bot strategy")

// Default is the strategy used when none is configured
const Default = "threshold"

type factory func(rng *rand.Rand, logger *log.Logger) Strategy

var strategies = map[string]factory{
	"threshold": func(rng *rand.Rand, logger *log.Logger) Strategy { return NewThresholdBot(rng, logger) },
	"rand":      func(rng *rand.Rand, logger *log.Logger) Strategy { return NewRandBot(rng, logger) },
	"keep":      func(_ *rand.Rand, logger *log.Logger) Strategy { return NewKeepBot(logger) },
}

// New returns the strategy registered under name
func New(name string, rng *rand.Rand, logger *log.Logger) (Strategy, error) {
	f, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownStrategy, name, Names())
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return f(rng, logger.WithPrefix("bot")), nil
}

// Names lists the registered strategies in sorted order
func Names() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CanPass reports whether the rules allow the actor to pass: neither the
// actor nor the receiver may hold a King.
func CanPass(view game.View) bool {
	return !view.Own.IsKing() && !view.Next.IsKing()
}
