package game

import "fmt"

// Action is a turn decision
type Action int

const (
	Keep Action = iota
	Pass
)

func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Pass:
		return "pass"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// MarshalText encodes the action as "keep" or "pass"
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes "keep" or "pass"
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction parses "keep" or "pass"
func ParseAction(s string) (Action, error) {
	switch s {
	case "keep":
		return Keep, nil
	case "pass":
		return Pass, nil
	default:
		return Keep, fmt.Errorf("invalid action: %q", s)
	}
}

// Trigger records who produced an action. Every trigger goes through the
// same transition; it only shows up in logs and events.
type Trigger int

const (
	ByPlayer Trigger = iota
	ByBot
	ByTimeout
)

func (t Trigger) String() string {
	switch t {
	case ByPlayer:
		return "player"
	case ByBot:
		return "bot"
	case ByTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// MarshalText encodes the trigger name
func (t Trigger) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a trigger name
func (t *Trigger) UnmarshalText(text []byte) error {
	for _, candidate := range []Trigger{ByPlayer, ByBot, ByTimeout} {
		if candidate.String() == string(text) {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("invalid trigger: %q", text)
}

// Phase is the state of the round machine
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseRoundInProgress
	PhaseRoundResolving
	PhaseGameOver
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseRoundInProgress:
		return "round_in_progress"
	case PhaseRoundResolving:
		return "round_resolving"
	case PhaseGameOver:
		return "game_over"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name
func (p *Phase) UnmarshalText(text []byte) error {
	for candidate := PhaseWaiting; candidate <= PhaseAborted; candidate++ {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("invalid phase: %q", text)
}

// Finished reports whether no further transitions are possible
func (p Phase) Finished() bool {
	return p == PhaseGameOver || p == PhaseAborted
}
