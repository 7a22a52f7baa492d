package deck

import (
	"errors"
	rand "math/rand/v2"
)

// Size is the number of cards in a full deck
const Size = 52

// ErrInsufficientCards is returned when a deal needs more cards than remain.
// The caller is expected to Reset the deck and retry.
var ErrInsufficientCards = errors.New("deck: insufficient cards")

// Build returns every rank and suit combination in a fixed order
func Build() []Card {
	cards := make([]Card, 0, Size)
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// Shuffle permutes cards in place with Fisher-Yates so every ordering is
// equally likely for the given source.
func Shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Deck represents the ordered cards still available for dealing
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a full, shuffled deck
func New(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.Reset()
	return d
}

// FromCards creates a deck holding exactly the given cards, top first.
// Mostly useful for setting up scenarios in tests.
func FromCards(cards []Card, rng *rand.Rand) *Deck {
	c := make([]Card, len(cards))
	copy(c, cards)
	return &Deck{cards: c, rng: rng}
}

// Reset restores the deck to a full 52-card deck and shuffles it
func (d *Deck) Reset() {
	d.cards = append(d.cards[:0], Build()...)
	Shuffle(d.cards, d.rng)
}

// DealOne removes one card per recipient from the top of the deck. When fewer
// than n cards remain nothing is removed and ErrInsufficientCards is returned.
func (d *Deck) DealOne(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrInsufficientCards
	}

	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards, top first
func (d *Deck) Cards() []Card {
	c := make([]Card, len(d.cards))
	copy(c, d.cards)
	return c
}
