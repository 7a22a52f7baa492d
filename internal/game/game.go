package game

import (
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/passtheace/internal/deck"
	"github.com/lox/passtheace/internal/randutil"
)

// Config holds everything needed to create a Game
type Config struct {
	// Participants in seat order. Seat indices are rewritten to match.
	Participants []*Participant
	Rules        Rules
	Rand         *rand.Rand
	Sink         Sink
	Logger       *log.Logger
	// Deck overrides the deck built from Rand. Tests use it to stack cards.
	Deck *deck.Deck
}

// Game is the live state of one room's game
type Game struct {
	rules  Rules
	seats  []*Participant
	deck   *deck.Deck
	rng    *rand.Rand
	sink   Sink
	logger *log.Logger

	phase      Phase
	dealer     int
	current    int
	roundStart int
	turns      int
	acted      []bool
	round      int
	version    uint64
	winner     *Participant
}

// New creates a game in the Waiting phase
func New(cfg Config) (*Game, error) {
	if len(cfg.Participants) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	g := &Game{
		rules:  cfg.Rules,
		seats:  cfg.Participants,
		deck:   cfg.Deck,
		rng:    cfg.Rand,
		sink:   cfg.Sink,
		logger: cfg.Logger,
		phase:  PhaseWaiting,
	}
	if g.rng == nil {
		g.rng = randutil.New(randutil.Seed())
	}
	if g.deck == nil {
		g.deck = deck.New(g.rng)
	}
	if g.sink == nil {
		g.sink = discardSink{}
	}
	if g.logger == nil {
		g.logger = log.New(io.Discard)
	}

	seen := make(map[string]bool, len(g.seats))
	for i, p := range g.seats {
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate participant %q", p.ID)
		}
		seen[p.ID] = true
		p.Seat = i
	}

	return g, nil
}

// Start deals the first round and announces it
func (g *Game) Start() error {
	if g.phase != PhaseWaiting {
		return ErrAlreadyStarted
	}

	for _, p := range g.seats {
		p.Lives = g.rules.Lives
		p.Eliminated = false
		p.Card = nil
	}
	// Seats vacated before the start never play
	for _, p := range g.seats {
		if p.Disconnected {
			p.Lives = 0
			p.Eliminated = true
		}
	}
	if g.activeCount() < 2 {
		return ErrNotEnoughPlayers
	}

	if err := g.deal(); err != nil {
		return g.abort(err)
	}

	g.dealer = g.chooseDealer()
	first, err := g.NextActiveSeat(g.dealer)
	if err != nil {
		return g.abort(err)
	}

	g.current = first
	g.roundStart = first
	g.turns = 0
	g.acted = make([]bool, len(g.seats))
	g.round = 1
	g.phase = PhaseRoundInProgress
	g.version++

	g.logger.Info("Game started",
		"participants", len(g.seats),
		"dealer", g.dealer,
		"first", g.current,
		"lives", g.rules.Lives)

	g.sink.Broadcast(GameStartedEvent{Snapshot: g.Snapshot()})
	g.broadcastTurn()
	return nil
}

// Keep ends the turn of participant id without moving their card
func (g *Game) Keep(id string) error {
	return g.act(id, Keep, ByPlayer)
}

// Pass swaps the card of participant id with the next active seat
func (g *Game) Pass(id string) error {
	return g.act(id, Pass, ByPlayer)
}

// Act applies a decision for participant id, recording who produced it
func (g *Game) Act(id string, action Action, trigger Trigger) error {
	return g.act(id, action, trigger)
}

// Timeout applies the room's default action for the current actor, exactly
// as if they had chosen it. A default pass that the rules forbid becomes a
// keep.
func (g *Game) Timeout() error {
	if g.phase != PhaseRoundInProgress {
		return ErrNoGame
	}

	actor := g.seats[g.current]
	action := g.rules.TimeoutAction
	if action == Pass && !g.canPass() {
		action = Keep
	}

	g.logger.Info("Turn timed out", "player", actor.ID, "seat", actor.Seat, "action", action)
	g.sink.Broadcast(TimeoutEvent{PlayerID: actor.ID, Seat: actor.Seat, Action: action})

	return g.act(actor.ID, action, ByTimeout)
}

func (g *Game) act(id string, action Action, trigger Trigger) error {
	if g.phase != PhaseRoundInProgress {
		return ErrNoGame
	}

	actor := g.seats[g.current]
	if actor.ID != id {
		return ErrNotYourTurn
	}
	if actor.Card == nil {
		return g.abort(fmt.Errorf("%w: current actor %s holds no card", ErrInvariant, actor.ID))
	}

	next, err := g.NextActiveSeat(g.current)
	if err != nil {
		return g.abort(fmt.Errorf("%w: %w", ErrInvariant, err))
	}

	switch action {
	case Keep:
		g.logger.Debug("Card kept", "player", actor.ID, "seat", actor.Seat, "trigger", trigger)

	case Pass:
		target := g.seats[next]
		if target.Card == nil {
			return g.abort(fmt.Errorf("%w: seat %d holds no card", ErrInvariant, next))
		}
		if actor.Card.IsKing() {
			return g.reject(actor, NewRuleError(CodeHoldingKing, "You have a King! You cannot pass."))
		}
		if target.Card.IsKing() {
			return g.reject(actor, NewRuleError(CodeTargetKing, "%s has a King and cannot be passed to!", target.Name))
		}

		actor.Card, target.Card = target.Card, actor.Card
		g.logger.Debug("Card passed", "from", actor.Seat, "to", target.Seat, "trigger", trigger)
		g.sink.Broadcast(CardPassedEvent{FromSeat: actor.Seat, ToSeat: target.Seat, Trigger: trigger})

	default:
		return fmt.Errorf("invalid action: %v", action)
	}

	g.advanceTurn(next)
	return nil
}

// advanceTurn is the single transition shared by every keep and pass, whoever
// produced it. It either hands the turn to the next seat or resolves the round.
func (g *Game) advanceTurn(next int) {
	g.acted[g.current] = true
	g.turns++
	g.current = next
	g.version++

	if g.turns >= g.activeCount() {
		g.resolveRound()
		return
	}
	g.broadcastTurn()
}

func (g *Game) reject(actor *Participant, err *RuleError) error {
	g.logger.Debug("Action rejected", "player", actor.ID, "code", err.Code)
	g.sink.Unicast(actor.ID, ErrorEventFrom(err))
	return err
}

// resolveRound reveals the cards, takes lives and either ends the game or
// leaves it in RoundResolving until StartNextRound.
func (g *Game) resolveRound() {
	g.phase = PhaseRoundResolving

	active := g.active()
	lowest := 0
	for i, p := range active {
		if v := g.rules.Values.Of(*p.Card); i == 0 || v < lowest {
			lowest = v
		}
	}

	var losing []*Participant
	survivors := 0
	for _, p := range active {
		if g.rules.Values.Of(*p.Card) == lowest {
			losing = append(losing, p)
			if p.Lives > g.rules.penalty(*p.Card) {
				survivors++
			}
		} else {
			survivors++
		}
	}

	// A round that would leave nobody standing is played again
	voided := survivors == 0

	var losers []Loser
	if !voided {
		for _, p := range losing {
			lost := min(g.rules.penalty(*p.Card), p.Lives)
			p.Lives -= lost
			if p.Lives == 0 {
				p.Eliminated = true
			}
			losers = append(losers, Loser{
				ID:        p.ID,
				Name:      p.Name,
				Seat:      p.Seat,
				Card:      p.Card.String(),
				LivesLost: lost,
				Out:       p.Eliminated,
			})
			g.logger.Info("Life lost", "player", p.ID, "card", p.Card, "lives", p.Lives, "eliminated", p.Eliminated)
		}
	} else {
		g.logger.Info("Round voided, every remaining participant would be eliminated", "round", g.round)
	}

	g.sink.Broadcast(RoundEndedEvent{
		Round:        g.round,
		Participants: cloneAll(g.seats),
		Losers:       losers,
		Voided:       voided,
	})

	for _, p := range g.seats {
		p.Card = nil
	}
	g.version++

	if remaining := g.active(); len(remaining) == 1 {
		g.finish(remaining[0])
	}
}

// StartNextRound rotates the dealer, deals a new card to each active
// participant and hands the turn to the seat after the dealer.
func (g *Game) StartNextRound() error {
	if g.phase != PhaseRoundResolving {
		return ErrNotResolving
	}

	dealer, err := g.NextActiveSeat(g.dealer)
	if err != nil {
		return g.abort(fmt.Errorf("%w: %w", ErrInvariant, err))
	}
	first, err := g.NextActiveSeat(dealer)
	if err != nil {
		return g.abort(fmt.Errorf("%w: %w", ErrInvariant, err))
	}
	if err := g.deal(); err != nil {
		return g.abort(err)
	}

	g.dealer = dealer
	g.current = first
	g.roundStart = first
	g.turns = 0
	clear(g.acted)
	g.round++
	g.phase = PhaseRoundInProgress
	g.version++

	g.logger.Debug("Round started", "round", g.round, "dealer", g.dealer, "first", g.current)
	g.broadcastTurn()
	return nil
}

// Forfeit removes participant id from play after a disconnect. The seat stays
// in the ring, marked eliminated, so traversal is unaffected.
func (g *Game) Forfeit(id string) error {
	p := g.find(id)
	if p == nil {
		return ErrUnknownParticipant
	}
	p.Disconnected = true

	if g.phase.Finished() || !p.Active() {
		return nil
	}
	if g.phase == PhaseWaiting {
		p.Lives = 0
		p.Eliminated = true
		return nil
	}

	wasCurrent := g.phase == PhaseRoundInProgress && g.seats[g.current] == p
	if g.phase == PhaseRoundInProgress && g.acted[p.Seat] {
		// Its decision no longer counts towards closing the round
		g.turns--
	}
	p.Lives = 0
	p.Eliminated = true
	p.Card = nil
	g.version++

	g.logger.Info("Participant forfeited", "player", p.ID, "seat", p.Seat)
	g.sink.Broadcast(PlayerLeftEvent{PlayerID: p.ID, Seat: p.Seat})

	if remaining := g.active(); len(remaining) == 1 {
		g.phase = PhaseRoundResolving
		for _, s := range g.seats {
			s.Card = nil
		}
		g.finish(remaining[0])
		return nil
	}

	if g.phase != PhaseRoundInProgress {
		return nil
	}

	if wasCurrent {
		next, err := g.NextActiveSeat(g.current)
		if err != nil {
			return g.abort(fmt.Errorf("%w: %w", ErrInvariant, err))
		}
		g.current = next
	}
	if g.turns >= g.activeCount() {
		g.resolveRound()
		return nil
	}
	g.broadcastTurn()
	return nil
}

// NextActiveSeat walks the ring from seat in the pass direction, skipping
// eliminated seats. It returns ErrNoNextSeat when no other seat is active.
func (g *Game) NextActiveSeat(from int) (int, error) {
	return nextActiveSeat(g.seats, from, g.rules.PassDirection)
}

func nextActiveSeat(seats []*Participant, from, direction int) (int, error) {
	n := len(seats)
	for hop := 1; hop < n; hop++ {
		idx := ((from+direction*hop)%n + n) % n
		if seats[idx].Active() {
			return idx, nil
		}
	}
	return -1, ErrNoNextSeat
}

func (g *Game) finish(winner *Participant) {
	g.phase = PhaseGameOver
	g.winner = winner
	g.version++

	g.logger.Info("Game over", "winner", winner.ID, "rounds", g.round)
	g.sink.Broadcast(GameOverEvent{Winner: winner.Clone(), Rounds: g.round})
}

// abort stops the game after an invariant violation. Only this room is
// affected; the error is returned so the caller can log it.
func (g *Game) abort(err error) error {
	g.phase = PhaseAborted
	g.version++
	g.logger.Error("Game aborted", "error", err, "round", g.round)
	g.sink.Broadcast(GameAbortedEvent{Reason: "internal error, the game was stopped"})
	return err
}

// deal gives one card to every active participant, rebuilding the deck when
// it runs short.
func (g *Game) deal() error {
	active := g.active()
	cards, err := g.deck.DealOne(len(active))
	if errors.Is(err, deck.ErrInsufficientCards) {
		g.logger.Debug("Deck exhausted, rebuilding", "remaining", g.deck.Remaining(), "needed", len(active))
		g.deck.Reset()
		cards, err = g.deck.DealOne(len(active))
	}
	if err != nil {
		return fmt.Errorf("%w: deal failed: %w", ErrInvariant, err)
	}

	for i, p := range active {
		card := cards[i]
		p.Card = &card
	}
	return nil
}

func (g *Game) chooseDealer() int {
	active := g.active()
	if g.rules.Dealer == DealerRandom {
		return active[g.rng.IntN(len(active))].Seat
	}

	best := active[0]
	for _, p := range active[1:] {
		if g.rules.Values.Of(*p.Card) > g.rules.Values.Of(*best.Card) {
			best = p
		}
	}
	return best.Seat
}

func (g *Game) canPass() bool {
	actor := g.seats[g.current]
	if actor.Card == nil || actor.Card.IsKing() {
		return false
	}
	next, err := g.NextActiveSeat(g.current)
	if err != nil {
		return false
	}
	target := g.seats[next]
	return target.Card != nil && !target.Card.IsKing()
}

func (g *Game) broadcastTurn() {
	actor := g.seats[g.current]
	event := TurnUpdateEvent{
		CurrentPlayerID: actor.ID,
		CurrentSeat:     g.current,
		DealerSeat:      g.dealer,
		Round:           g.round,
		TurnsTaken:      g.turns,
		Participants:    cloneAll(g.seats),
	}
	if actor.Human && g.rules.TurnTimeout > 0 {
		event.TimeoutMs = g.rules.TurnTimeout.Milliseconds()
	}
	g.sink.Broadcast(event)
}

func (g *Game) active() []*Participant {
	active := make([]*Participant, 0, len(g.seats))
	for _, p := range g.seats {
		if p.Active() {
			active = append(active, p)
		}
	}
	return active
}

func (g *Game) activeCount() int {
	n := 0
	for _, p := range g.seats {
		if p.Active() {
			n++
		}
	}
	return n
}

func (g *Game) find(id string) *Participant {
	for _, p := range g.seats {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Phase returns the current phase
func (g *Game) Phase() Phase { return g.phase }

// Version increases with every transition. Delayed callbacks compare it to
// detect that the state they were scheduled for has moved on.
func (g *Game) Version() uint64 { return g.version }

// Round returns the 1-based round number
func (g *Game) Round() int { return g.round }

// TurnsTaken returns the number of decisions made this round
func (g *Game) TurnsTaken() int { return g.turns }

// DealerSeat returns the dealer's seat
func (g *Game) DealerSeat() int { return g.dealer }

// CurrentSeat returns the seat expected to act
func (g *Game) CurrentSeat() int { return g.current }

// Rules returns the rules the game was created with
func (g *Game) Rules() Rules { return g.rules }

// DeckRemaining returns the cards left before the deck is rebuilt
func (g *Game) DeckRemaining() int { return g.deck.Remaining() }

// ActiveCount returns the number of participants still playing
func (g *Game) ActiveCount() int { return g.activeCount() }

// Current returns a copy of the participant expected to act
func (g *Game) Current() Participant {
	return g.seats[g.current].Clone()
}

// Winner returns the winner once the game is over
func (g *Game) Winner() (Participant, bool) {
	if g.winner == nil {
		return Participant{}, false
	}
	return g.winner.Clone(), true
}

// Participants returns copies of every seat in ring order
func (g *Game) Participants() []Participant {
	return cloneAll(g.seats)
}

// Snapshot returns a deep copy of the state
func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		Phase:         g.phase,
		Round:         g.round,
		DealerSeat:    g.dealer,
		CurrentSeat:   g.current,
		CurrentID:     g.seats[g.current].ID,
		RoundStart:    g.roundStart,
		TurnsTaken:    g.turns,
		DeckRemaining: g.deck.Remaining(),
		PassDirection: g.rules.PassDirection,
		Participants:  cloneAll(g.seats),
	}
}

// View is what a bot may look at when deciding
type View struct {
	Own      deck.Card
	Next     deck.Card
	NextSeat int
	Values   Values
}

// ViewFor returns the decision view of the current actor, who must be id
func (g *Game) ViewFor(id string) (View, error) {
	if g.phase != PhaseRoundInProgress {
		return View{}, ErrNoGame
	}
	actor := g.seats[g.current]
	if actor.ID != id {
		return View{}, ErrNotYourTurn
	}
	next, err := g.NextActiveSeat(g.current)
	if err != nil {
		return View{}, err
	}
	target := g.seats[next]
	if actor.Card == nil || target.Card == nil {
		return View{}, fmt.Errorf("%w: missing card", ErrInvariant)
	}
	return View{Own: *actor.Card, Next: *target.Card, NextSeat: next, Values: g.rules.Values}, nil
}
