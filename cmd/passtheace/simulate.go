package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lox/passtheace/cmd/passtheace/shared"
	"github.com/lox/passtheace/internal/fileutil"
	"github.com/lox/passtheace/internal/randutil"
	"github.com/lox/passtheace/internal/room"
	"github.com/lox/passtheace/internal/simulator"
)

// SimulateCmd plays all-bot games through the state machine
type SimulateCmd struct {
	Games      int      `short:"g" default:"1000" help:"Number of games to play"`
	Seats      int      `default:"6" help:"Seats per game"`
	Lives      int      `default:"3" help:"Lives per participant"`
	Mode       string   `default:"Classic" enum:"Classic,Sudden Death,Reverse,Ace High,Royal Tax" help:"Game mode"`
	Strategies []string `short:"s" help:"Bot strategies assigned to seats in order (repeats)"`
	Seed       *int64   `help:"Deterministic RNG seed (optional)"`
	Parallel   int      `short:"j" help:"Games played in parallel (defaults to GOMAXPROCS)"`
	MaxRounds  int      `help:"Abort a game after this many rounds"`
	Output     string   `short:"o" help:"Also write a JSON report to this file"`
	Debug      bool     `help:"Enable debug logging"`
}

func (c *SimulateCmd) Run() error {
	level := "info"
	if c.Debug {
		level = "debug"
	}
	logger, err := shared.SetupLogger(os.Stderr, level)
	if err != nil {
		return err
	}

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}

	sim, err := simulator.New(simulator.Config{
		Games:      c.Games,
		Seats:      c.Seats,
		Lives:      c.Lives,
		Mode:       room.Mode(c.Mode),
		Strategies: c.Strategies,
		Seed:       seed,
		Parallel:   c.Parallel,
		MaxRounds:  c.MaxRounds,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	cfg := sim.Config()
	logger.Info("Starting simulation",
		"games", cfg.Games,
		"seats", cfg.Seats,
		"mode", cfg.Mode,
		"seed", seed,
		"parallel", cfg.Parallel)

	ctx := shared.SetupSignalHandler(logger)
	start := time.Now()

	stats, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	simulator.PrintSummary(os.Stdout, stats, cfg)
	elapsed := time.Since(start)
	fmt.Printf("\nCompleted %d games in %s (%.0f games/sec)\n",
		stats.Games, elapsed.Round(time.Millisecond), float64(stats.Games)/elapsed.Seconds())

	if c.Output != "" {
		if err := fileutil.WriteJSON(c.Output, simulator.NewReport(stats, cfg)); err != nil {
			return err
		}
		logger.Info("Wrote report", "file", c.Output)
	}
	return nil
}
