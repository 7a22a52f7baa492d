package simulator

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/passtheace/internal/room"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Games: 0})
	assert.Error(t, err)

	_, err = New(Config{Games: 1, Strategies: []string{"psychic"}})
	assert.Error(t, err)

	sim, err := New(Config{Games: 1, Seats: 50, Lives: -1, Mode: "Chess"})
	require.NoError(t, err)
	cfg := sim.Config()
	assert.Equal(t, room.MaxSeats, cfg.Seats)
	assert.Equal(t, room.DefaultLives, cfg.Lives)
	assert.Equal(t, room.ModeClassic, cfg.Mode)
	assert.Equal(t, []string{"threshold"}, cfg.Strategies)
	assert.Positive(t, cfg.Parallel)
	assert.Equal(t, DefaultMaxRounds, cfg.MaxRounds)
}

func TestPlayGameTerminates(t *testing.T) {
	for _, mode := range room.Modes() {
		t.Run(string(mode), func(t *testing.T) {
			sim, err := New(Config{Games: 1, Seats: 6, Lives: 3, Mode: mode, Strategies: []string{"threshold", "rand", "keep"}})
			require.NoError(t, err)

			for seed := int64(1); seed <= 50; seed++ {
				result, err := sim.PlayGame(seed)
				require.NoError(t, err, "seed %d", seed)
				assert.Positive(t, result.Rounds)
				assert.GreaterOrEqual(t, result.WinnerSeat, 0)
				assert.Less(t, result.WinnerSeat, 6)
				assert.Equal(t, result.Strategies[result.WinnerSeat], result.WinnerStrategy)
			}
		})
	}
}

func TestPlayGameIsDeterministic(t *testing.T) {
	sim, err := New(Config{Games: 1, Seats: 8, Strategies: []string{"rand", "threshold"}})
	require.NoError(t, err)

	first, err := sim.PlayGame(99)
	require.NoError(t, err)
	second, err := sim.PlayGame(99)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunIsIndependentOfParallelism(t *testing.T) {
	run := func(parallel int) []float64 {
		sim, err := New(Config{Games: 40, Seats: 5, Lives: 2, Seed: 7, Parallel: parallel})
		require.NoError(t, err)
		stats, err := sim.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 40, stats.Games)
		return stats.Rounds
	}

	assert.Equal(t, run(1), run(4))
}

func TestRunAggregatesWins(t *testing.T) {
	sim, err := New(Config{Games: 30, Seats: 4, Lives: 2, Seed: 3, Strategies: []string{"threshold", "keep"}})
	require.NoError(t, err)

	stats, err := sim.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, stats.Seats, 4)
	wins := 0
	for _, seat := range stats.Seats {
		assert.Equal(t, 30, seat.Games)
		wins += seat.Wins
	}
	assert.Equal(t, 30, wins)
	assert.Equal(t, []string{"keep", "threshold"}, stats.StrategyNames())
	assert.Equal(t, 60, stats.Strategies["keep"].Games)
}

func TestRoundLimit(t *testing.T) {
	sim, err := New(Config{Games: 1, Seats: 10, Lives: room.MaxLives, MaxRounds: 1})
	require.NoError(t, err)

	_, err = sim.PlayGame(1)
	assert.ErrorIs(t, err, ErrRoundLimit)

	_, err = sim.Run(context.Background())
	assert.ErrorIs(t, err, ErrRoundLimit)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	sim, err := New(Config{Games: 10, Parallel: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrintSummary(t *testing.T) {
	sim, err := New(Config{Games: 5, Seats: 3, Seed: 11, Strategies: []string{"threshold", "rand"}})
	require.NoError(t, err)
	stats, err := sim.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSummary(&buf, stats, sim.Config())
	out := buf.String()
	assert.Contains(t, out, "Games played: 5")
	assert.Contains(t, out, "Seat 2:")
	assert.Contains(t, out, "WINS PER STRATEGY")
}

func TestNewReport(t *testing.T) {
	sim, err := New(Config{Games: 20, Seats: 4, Seed: 5, Strategies: []string{"threshold", "keep"}})
	require.NoError(t, err)
	stats, err := sim.Run(context.Background())
	require.NoError(t, err)

	report := NewReport(stats, sim.Config())
	assert.Equal(t, 20, report.Games)
	assert.Equal(t, int64(5), report.Seed)
	require.Len(t, report.SeatWins, 4)

	total := 0
	for _, w := range report.SeatWins {
		total += w
	}
	assert.Equal(t, 20, total)
	assert.Equal(t, 20, report.StrategyWins["threshold"]+report.StrategyWins["keep"])
	assert.LessOrEqual(t, report.CI95[0], report.MeanRounds)
	assert.GreaterOrEqual(t, report.CI95[1], report.MeanRounds)
}
