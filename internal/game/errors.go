package game

import (
	"errors"
	"fmt"
)

// Protocol violations. These usually mean a stale client message raced a
// transition; callers drop them without telling anyone.
var (
	ErrNoGame             = errors.New("game: no round in progress")
	ErrNotYourTurn        = errors.New("game: not the current actor")
	ErrAlreadyStarted     = errors.New("game: already started")
	ErrNotResolving       = errors.New("game: round is not resolving")
	ErrUnknownParticipant = errors.New("game: unknown participant")
)

// ErrNoNextSeat is returned by NextActiveSeat when no active seat other than
// the starting one exists.
var ErrNoNextSeat = errors.New("game: no valid next seat")

// ErrInvariant wraps any internal inconsistency. The game is aborted when one
// is detected.
var ErrInvariant = errors.New("game: invariant violated")

// ErrNotEnoughPlayers is returned by New and Start when fewer than two
// participants can play.
var ErrNotEnoughPlayers = errors.New("game: at least two participants are required")

// Rule violation codes
const (
	CodeHoldingKing   = "holding_king"
	CodeTargetKing    = "target_king"
	CodeRoomFull      = "room_full"
	CodeTooFewHumans  = "too_few_humans"
	CodeGameRunning   = "game_in_progress"
	CodeInvalidAction = "invalid_message"
)

// RuleError is a rule violation that is reported to the offending
// participant only. State is never changed when one is returned.
type RuleError struct {
	Code    string
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewRuleError creates a rule violation
func NewRuleError(code, format string, args ...any) *RuleError {
	return &RuleError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsRuleViolation reports whether err should be surfaced to the player
func IsRuleViolation(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}
