package game

import "github.com/lox/passtheace/internal/deck"

// Participant occupies one seat of the ring
type Participant struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Human        bool       `json:"isHuman"`
	Lives        int        `json:"lives"`
	Eliminated   bool       `json:"eliminated"`
	Seat         int        `json:"seatIndex"`
	Card         *deck.Card `json:"card,omitempty"`
	Disconnected bool       `json:"disconnected,omitempty"`
}

// Active reports whether the participant still plays
func (p *Participant) Active() bool {
	return !p.Eliminated && p.Lives > 0
}

// Clone returns a copy that shares nothing with p
func (p *Participant) Clone() Participant {
	c := *p
	if p.Card != nil {
		card := *p.Card
		c.Card = &card
	}
	return c
}

func cloneAll(ps []*Participant) []Participant {
	out := make([]Participant, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}
