package server

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/passtheace/internal/bot"
	"github.com/lox/passtheace/internal/game"
	"github.com/lox/passtheace/internal/randutil"
	"github.com/lox/passtheace/internal/room"
	"github.com/lox/passtheace/internal/roomcode"
)

// Error codes sent to clients alongside the game's rule violation codes
const (
	CodeMissingUsername = "missing_username"
	CodeRoomNotFound    = "room_not_found"
	CodeNotInRoom       = "not_in_room"
	CodeServerError     = "server_error"
)

// EventPublisher mirrors room events somewhere outside the server
type EventPublisher interface {
	Publish(code string, e game.Event)
}

// ServiceConfig configures a GameService
type ServiceConfig struct {
	Clock       quartz.Clock
	Codes       *roomcode.Generator
	Seed        int64
	BotStrategy string
	BotThink    time.Duration
	Reveal      time.Duration
	Feed        EventPublisher
}

// GameService owns the rooms and drives their games. Every operation takes
// the room lock for its whole duration, so a room's events are delivered in
// the order its transitions happened.
type GameService struct {
	rooms       *room.Registry
	outbox      Outbox
	feed        EventPublisher
	botStrategy string
	botThink    time.Duration
	reveal      time.Duration
	logger      *log.Logger
}

// NewGameService creates a game service delivering messages through outbox
func NewGameService(outbox Outbox, cfg ServiceConfig, logger *log.Logger) (*GameService, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.BotStrategy == "" {
		cfg.BotStrategy = bot.Default
	}
	if _, err := bot.New(cfg.BotStrategy, nil, nil); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = randutil.Seed()
	}

	return &GameService{
		rooms:       room.NewRegistry(cfg.Clock, cfg.Codes, cfg.Seed),
		outbox:      outbox,
		feed:        cfg.Feed,
		botStrategy: cfg.BotStrategy,
		botThink:    cfg.BotThink,
		reveal:      cfg.Reveal,
		logger:      logger.WithPrefix("game"),
	}, nil
}

// Rooms returns the registry
func (s *GameService) Rooms() *room.Registry {
	return s.rooms
}

// CreateRoom opens a room with opts and seats its creator
func (s *GameService) CreateRoom(pid, username string, opts room.Options) {
	username = strings.TrimSpace(username)
	if username == "" {
		s.sendError(pid, CodeMissingUsername, "Missing username.")
		return
	}
	s.leaveCurrentRoom(pid)

	r, err := s.rooms.Create(opts)
	if err != nil {
		s.logger.Error("Failed to create room", "error", err)
		s.sendError(pid, CodeServerError, "Could not create a room, try again.")
		return
	}

	r.Lock()
	p, err := r.Join(pid, username)
	if err != nil {
		r.Unlock()
		s.rooms.Delete(r.Code)
		s.sendError(pid, CodeServerError, err.Error())
		return
	}
	s.logger.Info("Room created", "room", r.Code, "player", pid, "name", username, "mode", r.Options.Mode, "seats", r.Options.Seats)
	s.send(pid, MessageTypeRoomCreated, RoomCreatedData{RoomCode: r.Code})
	s.sendJoined(r, *p)
	s.broadcastPlayerList(r)
	r.Unlock()

	s.publishLobby()
}

// Join seats pid in the room with code, creating the room when it does not
// exist yet
func (s *GameService) Join(pid, code, username string) {
	username = strings.TrimSpace(username)
	code = room.Canonical(code)
	if username == "" || code == "" {
		s.sendError(pid, CodeMissingUsername, "Missing username or room.")
		return
	}
	if current, ok := s.rooms.FindByParticipant(pid); ok && current.Code != code {
		s.leaveCurrentRoom(pid)
	}

	r, created := s.lockRoom(code)
	p, err := r.Join(pid, username)
	switch {
	case errors.Is(err, room.ErrAlreadySeated):
		existing, _ := r.Participant(pid)
		s.sendJoined(r, existing)
		r.Unlock()
		return
	case errors.Is(err, room.ErrRoomFull):
		r.Unlock()
		s.sendError(pid, game.CodeRoomFull, "Room is full!")
		return
	case errors.Is(err, room.ErrGameInProgress):
		r.Unlock()
		s.sendError(pid, game.CodeGameRunning, "A game is already in progress in this room.")
		return
	case err != nil:
		r.Unlock()
		s.sendError(pid, CodeServerError, err.Error())
		return
	}
	s.logger.Info("Player joined", "room", r.Code, "player", pid, "name", username, "created", created)
	s.sendJoined(r, *p)
	s.broadcastPlayerList(r)
	r.Unlock()

	s.publishLobby()
}

// StartGame fills the empty seats with bots and deals the first round
func (s *GameService) StartGame(pid, code string) {
	r, ok := s.rooms.Get(code)
	if !ok {
		s.sendError(pid, CodeRoomNotFound, "Room not found.")
		return
	}

	r.Lock()
	if !r.Has(pid) {
		r.Unlock()
		s.sendError(pid, CodeNotInRoom, "You are not in this room.")
		return
	}
	if r.InGame() {
		r.Unlock()
		s.sendError(pid, game.CodeGameRunning, "A game is already in progress in this room.")
		return
	}
	rules := r.Options.Rules()
	if r.HumanCount() < rules.MinHumans {
		r.Unlock()
		s.sendError(pid, game.CodeTooFewHumans, fmt.Sprintf("You need at least %d human players to start.", rules.MinHumans))
		return
	}

	bots := r.FillWithBots(r.Rand())
	s.broadcastPlayerList(r)

	_, err := r.StartGame(r.Rand(), &roomSink{service: s, room: r}, game.Config{
		Logger: s.logger.With("room", r.Code),
	})
	if err != nil {
		s.logger.Error("Failed to start game", "room", r.Code, "error", err)
		r.EndGame()
		s.broadcastPlayerList(r)
		r.Unlock()
		s.sendError(pid, CodeServerError, "The game could not be started.")
		return
	}
	s.logger.Info("Game started", "room", r.Code, "humans", r.HumanCount(), "bots", len(bots), "mode", r.Options.Mode)
	s.afterTransition(r)
	r.Unlock()

	s.publishLobby()
}

// KeepCard applies a keep for pid
func (s *GameService) KeepCard(pid, code string) {
	s.act(pid, code, game.Keep)
}

// PassCard applies a pass for pid
func (s *GameService) PassCard(pid, code string) {
	s.act(pid, code, game.Pass)
}

func (s *GameService) act(pid, code string, action game.Action) {
	r, ok := s.rooms.Get(code)
	if !ok {
		return
	}

	r.Lock()
	g := r.Game()
	if g == nil {
		r.Unlock()
		return
	}
	if err := g.Act(pid, action, game.ByPlayer); err != nil {
		r.Unlock()
		// Rule violations were already reported to the player; anything else
		// is an out of turn or stale request and is dropped.
		s.logger.Debug("Action refused", "room", code, "player", pid, "action", action, "error", err)
		return
	}
	ended := s.afterTransition(r)
	r.Unlock()

	if ended {
		s.publishLobby()
	}
}

// Disconnect removes pid from its room. During a game the seat is forfeited.
// A room left without humans is deleted.
func (s *GameService) Disconnect(pid string) {
	r, ok := s.rooms.FindByParticipant(pid)
	if !ok {
		return
	}

	r.Lock()
	if r.InGame() {
		if err := r.Game().Forfeit(pid); err != nil {
			s.logger.Warn("Forfeit failed", "room", r.Code, "player", pid, "error", err)
		}
		// Forfeiting moves the game version on, so pending callbacks are
		// stale and the timers are armed again here.
		s.afterTransition(r)
	} else if err := r.Leave(pid); err == nil {
		s.broadcastPlayerList(r)
	}
	s.logger.Info("Player left", "room", r.Code, "player", pid, "humans", r.HumanCount())

	if r.HumanCount() == 0 {
		s.logger.Info("Deleting empty room", "room", r.Code)
		s.rooms.Delete(r.Code)
	}
	r.Unlock()

	s.publishLobby()
}

// RequestLobby sends the lobby, and the player list of pid's room if seated
func (s *GameService) RequestLobby(pid string) {
	if msg, err := s.LobbyMessage(); err == nil {
		s.outbox.Send(pid, msg)
	}

	r, ok := s.rooms.FindByParticipant(pid)
	if !ok {
		return
	}
	r.Lock()
	s.send(pid, MessageTypePlayerList, PlayerListData{RoomCode: r.Code, Players: r.Participants()})
	r.Unlock()
}

// Lobby returns the summaries of every room
func (s *GameService) Lobby() []room.Summary {
	return s.rooms.Summaries()
}

// LobbyMessage returns the lobby_update message for the current lobby
func (s *GameService) LobbyMessage() (*Message, error) {
	return NewMessage(MessageTypeLobbyUpdate, LobbyData{Rooms: s.Lobby()})
}

// afterTransition arms the next automatic step of r's game: a bot decision,
// the human turn deadline or the reveal pause. It ends the game once it is
// over and reports whether it did. The room lock must be held.
func (s *GameService) afterTransition(r *room.Room) bool {
	g := r.Game()
	if g == nil {
		return false
	}
	timers := r.Timers()
	version := g.Version()

	switch g.Phase() {
	case game.PhaseRoundInProgress:
		if cur := g.Current(); cur.Human {
			timers.Turn(g.Rules().TurnTimeout, func() { s.onTurnTimeout(r, g, version) })
		} else {
			timers.CancelTurn()
			timers.After(s.botThink, func() { s.onBotTurn(r, g, version) })
		}
		return false

	case game.PhaseRoundResolving:
		timers.CancelTurn()
		timers.After(s.reveal, func() { s.onReveal(r, g, version) })
		return false

	case game.PhaseGameOver, game.PhaseAborted:
		timers.CancelAll()
		if winner, ok := g.Winner(); ok {
			s.logger.Info("Game over", "room", r.Code, "winner", winner.ID, "name", winner.Name, "rounds", g.Round())
		}
		r.EndGame()
		s.broadcastPlayerList(r)
		return true
	}
	return false
}

// withCurrentGame runs fn on r's game if it is still scheduled and at version,
// and then arms the next step. Callbacks from timers go through here. Versions
// restart with every game, so the game itself is compared too.
func (s *GameService) withCurrentGame(r *room.Room, scheduled *game.Game, version uint64, what string, fn func(g *game.Game) error) {
	r.Lock()
	g := r.Game()
	if g == nil || g != scheduled || g.Version() != version {
		r.Unlock()
		s.logger.Debug("Dropping stale callback", "room", r.Code, "callback", what)
		return
	}
	if err := fn(g); err != nil {
		s.logger.Warn("Scheduled transition failed", "room", r.Code, "callback", what, "error", err)
	}
	ended := s.afterTransition(r)
	r.Unlock()

	if ended {
		s.publishLobby()
	}
}

func (s *GameService) onTurnTimeout(r *room.Room, scheduled *game.Game, version uint64) {
	s.withCurrentGame(r, scheduled, version, "turn_timeout", func(g *game.Game) error {
		return g.Timeout()
	})
}

func (s *GameService) onBotTurn(r *room.Room, scheduled *game.Game, version uint64) {
	s.withCurrentGame(r, scheduled, version, "bot_turn", func(g *game.Game) error {
		cur := g.Current()
		view, err := g.ViewFor(cur.ID)
		if err != nil {
			return err
		}
		strategy, err := bot.New(s.botStrategy, r.Rand(), s.logger)
		if err != nil {
			return err
		}
		err = g.Act(cur.ID, strategy.Decide(view), game.ByBot)
		if game.IsRuleViolation(err) {
			return g.Act(cur.ID, game.Keep, game.ByBot)
		}
		return err
	})
}

func (s *GameService) onReveal(r *room.Room, scheduled *game.Game, version uint64) {
	s.withCurrentGame(r, scheduled, version, "reveal", func(g *game.Game) error {
		return g.StartNextRound()
	})
}

// lockRoom returns the locked room with code, creating it if needed. A room
// deleted between lookup and lock is looked up again.
func (s *GameService) lockRoom(code string) (*room.Room, bool) {
	for {
		r, created := s.rooms.GetOrCreate(code, room.DefaultOptions())
		r.Lock()
		if current, ok := s.rooms.Get(code); ok && current == r {
			return r, created
		}
		r.Unlock()
	}
}

func (s *GameService) leaveCurrentRoom(pid string) {
	if _, ok := s.rooms.FindByParticipant(pid); ok {
		s.Disconnect(pid)
	}
}

func (s *GameService) sendJoined(r *room.Room, p game.Participant) {
	s.send(p.ID, MessageTypeRoomJoined, RoomJoinedData{
		RoomCode: r.Code,
		Player:   p,
		Players:  r.Participants(),
		Options:  r.Options,
	})
}

func (s *GameService) broadcastPlayerList(r *room.Room) {
	msg, err := NewMessage(MessageTypePlayerList, PlayerListData{RoomCode: r.Code, Players: r.Participants()})
	if err != nil {
		s.logger.Error("Failed to create player list message", "error", err)
		return
	}
	for _, id := range r.HumanIDs() {
		s.outbox.Send(id, msg)
	}
}

func (s *GameService) publishLobby() {
	msg, err := s.LobbyMessage()
	if err != nil {
		s.logger.Error("Failed to create lobby message", "error", err)
		return
	}
	s.outbox.SendAll(msg)
}

func (s *GameService) send(pid string, mt MessageType, data any) {
	msg, err := NewMessage(mt, data)
	if err != nil {
		s.logger.Error("Failed to create message", "type", mt, "error", err)
		return
	}
	s.outbox.Send(pid, msg)
}

func (s *GameService) sendError(pid, code, message string) {
	s.send(pid, MessageTypeError, ErrorData{Code: code, Message: message})
}

// roomSink delivers a room's game events to its connected humans and the
// event feed. It is only called with the room lock held.
type roomSink struct {
	service *GameService
	room    *room.Room
}

func (rs *roomSink) Broadcast(e game.Event) {
	msg, err := MessageFromEvent(e)
	if err != nil {
		rs.service.logger.Error("Failed to create event message", "type", e.EventType(), "error", err)
		return
	}
	for _, id := range rs.room.HumanIDs() {
		rs.service.outbox.Send(id, msg)
	}
	if rs.service.feed != nil {
		rs.service.feed.Publish(rs.room.Code, e)
	}
}

func (rs *roomSink) Unicast(participantID string, e game.Event) {
	if strings.HasPrefix(participantID, room.BotIDPrefix) {
		return
	}
	msg, err := MessageFromEvent(e)
	if err != nil {
		rs.service.logger.Error("Failed to create event message", "type", e.EventType(), "error", err)
		return
	}
	rs.service.outbox.Send(participantID, msg)
}
