package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/passtheace/internal/bot"
	"github.com/lox/passtheace/internal/game"
	"github.com/lox/passtheace/internal/randutil"
	"github.com/lox/passtheace/internal/room"
	"github.com/lox/passtheace/internal/statistics"
)

// DefaultMaxRounds caps a single game. Every round takes a life from someone
// unless it is voided, so real games finish far below this.
const DefaultMaxRounds = 10000

// ErrRoundLimit is returned when a game does not finish within MaxRounds
var ErrRoundLimit = errors.New("round limit reached")

// Config holds configuration for running simulations
type Config struct {
	Games int
	Seats int
	Lives int
	Mode  room.Mode
	// Strategies are assigned to seats in order, repeating when there are
	// more seats than names. Empty means the default strategy everywhere.
	Strategies []string
	Seed       int64
	Parallel   int
	MaxRounds  int
	Logger     *log.Logger
}

// Simulator plays all-bot games through the state machine without timers
type Simulator struct {
	config Config
	rules  game.Rules
}

// New creates a new simulator with the given configuration
func New(config Config) (*Simulator, error) {
	if config.Games <= 0 {
		return nil, fmt.Errorf("games must be positive, got %d", config.Games)
	}
	if len(config.Strategies) == 0 {
		config.Strategies = []string{bot.Default}
	}
	for _, name := range config.Strategies {
		if _, err := bot.New(name, nil, nil); err != nil {
			return nil, err
		}
	}
	if config.Parallel <= 0 {
		config.Parallel = runtime.GOMAXPROCS(0)
	}
	if config.MaxRounds <= 0 {
		config.MaxRounds = DefaultMaxRounds
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}

	opts := room.Options{Mode: config.Mode, Seats: config.Seats, Lives: config.Lives}.Normalize()
	config.Mode, config.Seats, config.Lives = opts.Mode, opts.Seats, opts.Lives

	return &Simulator{config: config, rules: opts.Rules()}, nil
}

// Config returns the normalized configuration
func (s *Simulator) Config() Config {
	return s.config
}

// Run plays every game, in parallel, and aggregates the results in game
// order so a seed always produces the same statistics
func (s *Simulator) Run(ctx context.Context) (*statistics.Statistics, error) {
	results := make([]statistics.GameResult, s.config.Games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Parallel)
	for i := range results {
		seed := int64(randutil.Derive(s.config.Seed, uint64(i)).Uint64())
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := s.PlayGame(seed)
			if err != nil {
				return fmt.Errorf("game %d (seed %d): %w", i+1, seed, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for _, result := range results {
		stats.Add(result)
	}
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	return stats, nil
}

// PlayGame plays one game from seed to its end
func (s *Simulator) PlayGame(seed int64) (statistics.GameResult, error) {
	rng := randutil.New(seed)
	logger := s.config.Logger.With("seed", seed)

	participants := make([]*game.Participant, s.config.Seats)
	strategies := make([]bot.Strategy, s.config.Seats)
	names := make([]string, s.config.Seats)
	for seat := range participants {
		name := s.config.Strategies[seat%len(s.config.Strategies)]
		strategy, err := bot.New(name, rng, logger)
		if err != nil {
			return statistics.GameResult{}, err
		}
		strategies[seat] = strategy
		names[seat] = name
		participants[seat] = &game.Participant{
			ID:   fmt.Sprintf("%sseat%d", room.BotIDPrefix, seat),
			Name: fmt.Sprintf("%s_%d", name, seat),
		}
	}

	voided := 0
	sink := game.SinkFunc(func(_ string, e game.Event) {
		if ended, ok := e.(game.RoundEndedEvent); ok && ended.Voided {
			voided++
		}
	})

	g, err := game.New(game.Config{
		Participants: participants,
		Rules:        s.rules,
		Rand:         rng,
		Sink:         sink,
		Logger:       logger,
	})
	if err != nil {
		return statistics.GameResult{}, err
	}
	if err := g.Start(); err != nil {
		return statistics.GameResult{}, err
	}

	for {
		if g.Round() > s.config.MaxRounds {
			return statistics.GameResult{}, fmt.Errorf("%w: %d", ErrRoundLimit, s.config.MaxRounds)
		}

		switch g.Phase() {
		case game.PhaseRoundInProgress:
			cur := g.Current()
			view, err := g.ViewFor(cur.ID)
			if err != nil {
				return statistics.GameResult{}, err
			}
			err = g.Act(cur.ID, strategies[cur.Seat].Decide(view), game.ByBot)
			if game.IsRuleViolation(err) {
				err = g.Act(cur.ID, game.Keep, game.ByBot)
			}
			if err != nil {
				return statistics.GameResult{}, err
			}

		case game.PhaseRoundResolving:
			if err := g.StartNextRound(); err != nil {
				return statistics.GameResult{}, err
			}

		case game.PhaseGameOver:
			winner, _ := g.Winner()
			return statistics.GameResult{
				Seed:           seed,
				Rounds:         g.Round(),
				WinnerSeat:     winner.Seat,
				WinnerStrategy: names[winner.Seat],
				Voided:         voided,
				Strategies:     names,
			}, nil

		default:
			return statistics.GameResult{}, fmt.Errorf("game stopped in phase %s", g.Phase())
		}
	}
}

// PrintSummary writes a report of the simulation to w
func PrintSummary(w io.Writer, stats *statistics.Statistics, config Config) {
	low, high := stats.ConfidenceInterval95()

	fmt.Fprintf(w, "\n=== %s, %d seats, %d lives, strategies %s ===\n",
		config.Mode, config.Seats, config.Lives, strings.Join(config.Strategies, ","))
	fmt.Fprintf(w, "Games played: %d\n", stats.Games)

	fmt.Fprintf(w, "\n=== ROUNDS PER GAME ===\n")
	fmt.Fprintf(w, "Mean: %.2f\n", stats.Mean())
	fmt.Fprintf(w, "Median: %.1f\n", stats.Median())
	fmt.Fprintf(w, "Std Dev: %.2f\n", stats.StdDev())
	fmt.Fprintf(w, "95%% CI: [%.2f, %.2f]\n", low, high)
	fmt.Fprintf(w, "Percentiles: P5=%.1f, P25=%.1f, P75=%.1f, P95=%.1f\n",
		stats.Percentile(0.05), stats.Percentile(0.25), stats.Percentile(0.75), stats.Percentile(0.95))
	fmt.Fprintf(w, "Longest game: %d rounds\n", stats.MaxSeen)
	fmt.Fprintf(w, "Voided rounds: %d\n", stats.Voided)

	fmt.Fprintf(w, "\n=== WINS PER SEAT ===\n")
	for seat, st := range stats.Seats {
		fmt.Fprintf(w, "Seat %d: %d wins (%.1f%%)\n", seat, st.Wins, st.WinRate()*100)
	}

	if len(stats.Strategies) > 1 {
		fmt.Fprintf(w, "\n=== WINS PER STRATEGY ===\n")
		for _, name := range stats.StrategyNames() {
			st := stats.Strategies[name]
			fmt.Fprintf(w, "%s: %d wins in %d seat-games (%.1f%%)\n", name, st.Wins, st.Games, st.WinRate()*100)
		}
	}
}
