// Package game implements the room game-state machine for Pass the Ace.
//
// A Game owns the live state of one room: the seat ring, the current actor,
// the dealer, the remaining deck and the round counter. Every participant
// holds one card per round and, on their turn, either keeps it or passes it
// to the next active seat. When every active participant has acted the round
// is resolved: the lowest card loses a life and participants without lives
// are eliminated. The last active participant wins.
//
// # Basic Usage
//
//	g, err := game.New(game.Config{
//	    Participants: participants,
//	    Rules:        game.DefaultRules(),
//	    Rand:         randutil.New(42),
//	    Sink:         sink,
//	})
//	if err := g.Start(); err != nil { ... }
//	_ = g.Keep(g.Current().ID)
//
// # Concurrency
//
// A Game is not safe for concurrent use. The owner serialises every call,
// normally with the room lock, and every event reaches the Sink before the
// call returns, so the order of broadcasts equals the order of transitions.
//
// # Phases
//
//	Waiting → RoundInProgress → RoundResolving → RoundInProgress | GameOver
//
// RoundResolving is left by StartNextRound, which the caller invokes after
// whatever reveal pause it wants. Invariant violations move the game to
// Aborted instead of panicking.
package game
