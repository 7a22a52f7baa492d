package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/passtheace/internal/game"
)

// Default thresholds of ThresholdBot
const (
	DefaultLow  = 8
	DefaultHigh = 10
	DefaultMid  = 0.5
)

// ThresholdBot passes low cards and keeps high ones. Values strictly between
// Low and High are passed with probability Mid.
type ThresholdBot struct {
	Low  int
	High int
	Mid  float64

	rng    *rand.Rand
	logger *log.Logger
}

// NewThresholdBot creates a ThresholdBot with the default thresholds
func NewThresholdBot(rng *rand.Rand, logger *log.Logger) *ThresholdBot {
	return &ThresholdBot{
		Low:    DefaultLow,
		High:   DefaultHigh,
		Mid:    DefaultMid,
		rng:    rng,
		logger: logger,
	}
}

func (b *ThresholdBot) Name() string { return "threshold" }

func (b *ThresholdBot) Decide(view game.View) game.Action {
	if !CanPass(view) {
		return game.Keep
	}

	value := view.Values.Of(view.Own)
	var action game.Action
	switch {
	case value <= b.Low:
		action = game.Pass
	case value >= b.High:
		action = game.Keep
	case b.rng.Float64() < b.Mid:
		action = game.Pass
	default:
		action = game.Keep
	}

	b.logger.Debug("Decision", "card", view.Own, "value", value, "next", view.NextSeat, "action", action)
	return action
}
