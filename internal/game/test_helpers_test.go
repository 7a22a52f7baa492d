package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/passtheace/internal/deck"
	"github.com/lox/passtheace/internal/randutil"
)

type recorded struct {
	to    string // empty for broadcasts
	event Event
}

// recorder is a Sink that keeps every event in order
type recorder struct {
	events []recorded
}

func (r *recorder) Broadcast(e Event) {
	r.events = append(r.events, recorded{event: e})
}

func (r *recorder) Unicast(participantID string, e Event) {
	r.events = append(r.events, recorded{to: participantID, event: e})
}

func (r *recorder) reset() {
	r.events = nil
}

func (r *recorder) types() []EventType {
	types := make([]EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.event.EventType()
	}
	return types
}

func (r *recorder) unicasts() []recorded {
	var out []recorded
	for _, e := range r.events {
		if e.to != "" {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) last(t EventType) (Event, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].event.EventType() == t {
			return r.events[i].event, true
		}
	}
	return nil, false
}

func participants(n int) []*Participant {
	ps := make([]*Participant, n)
	for i := range ps {
		ps[i] = &Participant{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i), Human: true}
	}
	return ps
}

// newStackedGame creates a started game whose deck deals cards in the given
// order, top first. The remaining cards stay in the deck.
func newStackedGame(t *testing.T, n int, cards string, rules Rules) (*Game, *recorder) {
	t.Helper()

	rec := &recorder{}
	g, err := New(Config{
		Participants: participants(n),
		Rules:        rules,
		Rand:         randutil.New(1),
		Sink:         rec,
		Deck:         deck.FromCards(deck.MustParseCards(cards), randutil.New(1)),
	})
	require.NoError(t, err)
	require.NoError(t, g.Start())
	return g, rec
}

func newRandomGame(t *testing.T, n int, seed int64, rules Rules) (*Game, *recorder) {
	t.Helper()

	rec := &recorder{}
	g, err := New(Config{
		Participants: participants(n),
		Rules:        rules,
		Rand:         randutil.New(seed),
		Sink:         rec,
	})
	require.NoError(t, err)
	require.NoError(t, g.Start())
	return g, rec
}

func cardsOf(g *Game) []*deck.Card {
	out := make([]*deck.Card, len(g.seats))
	for i, p := range g.seats {
		if p.Card != nil {
			c := *p.Card
			out[i] = &c
		}
	}
	return out
}
