package server

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/passtheace/internal/game"
	"github.com/lox/passtheace/internal/room"
)

// recordingOutbox keeps every message per recipient
type recordingOutbox struct {
	mu        sync.Mutex
	sent      map[string][]*Message
	broadcast []*Message
}

func newRecordingOutbox() *recordingOutbox {
	return &recordingOutbox{sent: make(map[string][]*Message)}
}

func (o *recordingOutbox) Send(playerID string, msg *Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[playerID] = append(o.sent[playerID], msg)
}

func (o *recordingOutbox) SendAll(msg *Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.broadcast = append(o.broadcast, msg)
}

func (o *recordingOutbox) types(pid string) []MessageType {
	o.mu.Lock()
	defer o.mu.Unlock()
	types := make([]MessageType, 0, len(o.sent[pid]))
	for _, msg := range o.sent[pid] {
		types = append(types, msg.Type)
	}
	return types
}

func (o *recordingOutbox) all(pid string, mt MessageType) []*Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*Message
	for _, msg := range o.sent[pid] {
		if msg.Type == mt {
			out = append(out, msg)
		}
	}
	return out
}

func (o *recordingOutbox) last(pid string, mt MessageType) (*Message, bool) {
	msgs := o.all(pid, mt)
	if len(msgs) == 0 {
		return nil, false
	}
	return msgs[len(msgs)-1], true
}

func (o *recordingOutbox) lastLobby() (LobbyData, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.broadcast) == 0 {
		return LobbyData{}, false
	}
	var data LobbyData
	if err := json.Unmarshal(o.broadcast[len(o.broadcast)-1].Data, &data); err != nil {
		return LobbyData{}, false
	}
	return data, true
}

func (o *recordingOutbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = make(map[string][]*Message)
	o.broadcast = nil
}

// recordingFeed keeps every published event
type recordingFeed struct {
	mu     sync.Mutex
	events []game.EventType
}

func (f *recordingFeed) Publish(code string, e game.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e.EventType())
}

func (f *recordingFeed) types() []game.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]game.EventType(nil), f.events...)
}

func decode[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	return v
}

type serviceFixture struct {
	service *GameService
	outbox  *recordingOutbox
	clock   *quartz.Mock
	feed    *recordingFeed
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	clock := quartz.NewMock(t)
	outbox := newRecordingOutbox()
	feed := &recordingFeed{}
	logger := log.NewWithOptions(io.Discard, log.Options{})

	service, err := NewGameService(outbox, ServiceConfig{
		Clock:    clock,
		Seed:     42,
		BotThink: DefaultBotThink,
		Reveal:   DefaultReveal,
		Feed:     feed,
	}, logger)
	require.NoError(t, err)

	return &serviceFixture{service: service, outbox: outbox, clock: clock, feed: feed}
}

// createRoom opens a room for pid and returns its code
func (f *serviceFixture) createRoom(t *testing.T, pid string, opts room.Options) string {
	t.Helper()
	f.service.CreateRoom(pid, pid+"-name", opts)
	msg, ok := f.outbox.last(pid, MessageTypeRoomCreated)
	require.True(t, ok, "no room_created for %s", pid)
	return decode[RoomCreatedData](t, msg).RoomCode
}

func (f *serviceFixture) room(t *testing.T, code string) *room.Room {
	t.Helper()
	r, ok := f.service.Rooms().Get(code)
	require.True(t, ok, "room %s not found", code)
	return r
}

// current returns the id of the participant expected to act
func (f *serviceFixture) current(t *testing.T, code string) string {
	t.Helper()
	r := f.room(t, code)
	r.Lock()
	defer r.Unlock()
	require.NotNil(t, r.Game())
	return r.Game().Current().ID
}

func (f *serviceFixture) inGame(code string) bool {
	r, ok := f.service.Rooms().Get(code)
	if !ok {
		return false
	}
	r.Lock()
	defer r.Unlock()
	return r.InGame()
}

func (f *serviceFixture) advanceNext(t *testing.T) time.Duration {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d, w := f.clock.AdvanceNext()
	w.MustWait(ctx)
	return d
}

// play advances the clock until the game in code is over
func (f *serviceFixture) play(t *testing.T, code string) {
	t.Helper()
	for i := 0; f.inGame(code); i++ {
		require.Less(t, i, 20000, "game did not finish")
		f.advanceNext(t)
	}
}

func TestNewGameServiceRejectsUnknownStrategy(t *testing.T) {
	_, err := NewGameService(newRecordingOutbox(), ServiceConfig{BotStrategy: "psychic"}, nil)
	assert.Error(t, err)
}

func TestCreateRoom(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 4, Mode: room.ModeReverse})

	assert.Equal(t, []MessageType{MessageTypeRoomCreated, MessageTypeRoomJoined, MessageTypePlayerList}, f.outbox.types("p1"))

	msg, _ := f.outbox.last("p1", MessageTypeRoomJoined)
	joined := decode[RoomJoinedData](t, msg)
	assert.Equal(t, code, joined.RoomCode)
	assert.Equal(t, "p1", joined.Player.ID)
	assert.Equal(t, 0, joined.Player.Seat)
	assert.Equal(t, 4, joined.Options.Seats)
	assert.Equal(t, room.ModeReverse, joined.Options.Mode)

	lobby, ok := f.outbox.lastLobby()
	require.True(t, ok)
	require.Len(t, lobby.Rooms, 1)
	assert.Equal(t, code, lobby.Rooms[0].Code)
	assert.Equal(t, 1, lobby.Rooms[0].PlayerCount)
	assert.Equal(t, room.StatusWaiting, lobby.Rooms[0].Status)
}

func TestCreateRoomRequiresUsername(t *testing.T) {
	f := newServiceFixture(t)
	f.service.CreateRoom("p1", "   ", room.Options{})

	msg, ok := f.outbox.last("p1", MessageTypeError)
	require.True(t, ok)
	assert.Equal(t, CodeMissingUsername, decode[ErrorData](t, msg).Code)
	assert.Zero(t, f.service.Rooms().Len())
}

func TestJoin(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 3})

	f.service.Join("p2", code, "bob")

	msg, ok := f.outbox.last("p2", MessageTypeRoomJoined)
	require.True(t, ok)
	joined := decode[RoomJoinedData](t, msg)
	assert.Equal(t, 1, joined.Player.Seat)
	assert.Len(t, joined.Players, 2)

	msg, ok = f.outbox.last("p1", MessageTypePlayerList)
	require.True(t, ok)
	assert.Len(t, decode[PlayerListData](t, msg).Players, 2)
}

func TestJoinIsCaseInsensitive(t *testing.T) {
	f := newServiceFixture(t)
	f.service.Join("p1", "abc123", "alice")
	f.service.Join("p2", "ABC123", "bob")

	assert.Equal(t, 1, f.service.Rooms().Len())
	r := f.room(t, "ABC123")
	r.Lock()
	defer r.Unlock()
	assert.Equal(t, 2, r.HumanCount())
}

func TestJoinUnknownCodeCreatesRoom(t *testing.T) {
	f := newServiceFixture(t)
	f.service.Join("p1", "ZZZ999", "alice")

	r := f.room(t, "ZZZ999")
	assert.Equal(t, room.DefaultOptions(), r.Options)
	_, ok := f.outbox.last("p1", MessageTypeRoomJoined)
	assert.True(t, ok)
}

func TestJoinTwiceResendsSeat(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{})
	f.service.Join("p1", code, "alice")

	assert.Len(t, f.outbox.all("p1", MessageTypeRoomJoined), 2)
	r := f.room(t, code)
	r.Lock()
	defer r.Unlock()
	assert.Equal(t, 1, r.HumanCount())
}

func TestJoinFullRoom(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 2})
	f.service.Join("p2", code, "bob")
	f.service.Join("p3", code, "carol")

	msg, ok := f.outbox.last("p3", MessageTypeError)
	require.True(t, ok)
	data := decode[ErrorData](t, msg)
	assert.Equal(t, game.CodeRoomFull, data.Code)
	assert.Equal(t, "Room is full!", data.Message)
}

func TestJoinMovesPlayerBetweenRooms(t *testing.T) {
	f := newServiceFixture(t)
	first := f.createRoom(t, "p1", room.Options{})
	f.createRoom(t, "p2", room.Options{})
	f.service.Join("p3", first, "carol")

	second := f.createRoom(t, "p3", room.Options{})
	found, ok := f.service.Rooms().FindByParticipant("p3")
	require.True(t, ok)
	assert.Equal(t, second, found.Code)

	r := f.room(t, first)
	r.Lock()
	defer r.Unlock()
	assert.False(t, r.Has("p3"))
}

func TestStartGameRequiresTwoHumans(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{})
	f.service.StartGame("p1", code)

	msg, ok := f.outbox.last("p1", MessageTypeError)
	require.True(t, ok)
	data := decode[ErrorData](t, msg)
	assert.Equal(t, game.CodeTooFewHumans, data.Code)
	assert.Equal(t, "You need at least 2 human players to start.", data.Message)
	assert.False(t, f.inGame(code))
}

func TestStartGameErrors(t *testing.T) {
	f := newServiceFixture(t)

	f.service.StartGame("p1", "NOPE00")
	msg, ok := f.outbox.last("p1", MessageTypeError)
	require.True(t, ok)
	assert.Equal(t, CodeRoomNotFound, decode[ErrorData](t, msg).Code)

	code := f.createRoom(t, "p2", room.Options{})
	f.service.StartGame("p1", code)
	msg, ok = f.outbox.last("p1", MessageTypeError)
	require.True(t, ok)
	assert.Equal(t, CodeNotInRoom, decode[ErrorData](t, msg).Code)
}

func TestStartGameFillsSeatsWithBots(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 5, Pace: room.PaceUntimed})
	f.service.Join("p2", code, "bob")
	f.outbox.reset()

	f.service.StartGame("p1", code)
	require.True(t, f.inGame(code))

	r := f.room(t, code)
	r.Lock()
	participants := r.Participants()
	r.Unlock()
	require.Len(t, participants, 5)
	bots := 0
	for _, p := range participants {
		if !p.Human {
			bots++
			assert.Regexp(t, `^Bot_\d{4}$`, p.Name)
		}
	}
	assert.Equal(t, 3, bots)

	for _, pid := range []string{"p1", "p2"} {
		types := f.outbox.types(pid)
		require.GreaterOrEqual(t, len(types), 3)
		assert.Equal(t, MessageTypePlayerList, types[0])
		assert.Equal(t, MessageType(game.EventTypeGameStarted), types[1])
		assert.Equal(t, MessageType(game.EventTypeTurnUpdate), types[2])
	}

	lobby, ok := f.outbox.lastLobby()
	require.True(t, ok)
	require.Len(t, lobby.Rooms, 1)
	assert.Equal(t, room.StatusInProgress, lobby.Rooms[0].Status)

	assert.Contains(t, f.feed.types(), game.EventTypeGameStarted)
}

func TestJoinRunningGame(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 4})
	f.service.Join("p2", code, "bob")
	f.service.StartGame("p1", code)
	f.service.Join("p3", code, "carol")

	msg, ok := f.outbox.last("p3", MessageTypeError)
	require.True(t, ok)
	assert.Equal(t, game.CodeGameRunning, decode[ErrorData](t, msg).Code)
}

func TestSinglePlayerGameRunsToCompletion(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 4, Lives: 2, Pace: room.PaceFast, SinglePlayer: true})
	f.service.StartGame("p1", code)
	require.True(t, f.inGame(code))

	// The human times out every turn and the bots act on their own
	f.play(t, code)

	msg, ok := f.outbox.last("p1", MessageType(game.EventTypeGameOver))
	require.True(t, ok)
	over := decode[game.GameOverEvent](t, msg)
	assert.NotEmpty(t, over.Winner.ID)
	assert.Positive(t, over.Rounds)
	assert.NotEmpty(t, f.outbox.all("p1", MessageType(game.EventTypeRoundEnded)))

	r := f.room(t, code)
	r.Lock()
	participants := r.Participants()
	r.Unlock()
	require.Len(t, participants, 1, "bots leave once the game is over")
	assert.Equal(t, "p1", participants[0].ID)
	assert.Equal(t, 2, participants[0].Lives)

	lobby, ok := f.outbox.lastLobby()
	require.True(t, ok)
	require.Len(t, lobby.Rooms, 1)
	assert.Equal(t, room.StatusWaiting, lobby.Rooms[0].Status)
	assert.Zero(t, f.room(t, code).Timers().Pending())
}

func TestBotTurnWaitsForThinkTime(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 6, Pace: room.PaceUntimed, SinglePlayer: true})
	f.service.StartGame("p1", code)

	// Untimed humans have no deadline, so only bot turns are scheduled
	for f.current(t, code) != "p1" {
		d := f.advanceNext(t)
		assert.Equal(t, DefaultBotThink, d)
	}
	assert.Zero(t, f.room(t, code).Timers().Pending())
}

func TestTurnTimeoutUsesCurrentDeadline(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 2, Pace: room.PaceFast})
	f.service.Join("p2", code, "bob")
	f.service.StartGame("p1", code)

	first := f.current(t, code)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.clock.Advance(5 * time.Second).MustWait(ctx)
	f.service.KeepCard(first, code)

	second := f.current(t, code)
	require.NotEqual(t, first, second)

	// The first deadline was replaced by the keep, the second player gets a
	// full turn of their own
	d := f.advanceNext(t)
	assert.Equal(t, room.PaceFast.TurnTimeout(), d)

	timeouts := f.outbox.all("p1", MessageType(game.EventTypeTimeout))
	require.Len(t, timeouts, 1)
	assert.Equal(t, "timeout", timeouts[0].Type.String())
	assert.Equal(t, second, decode[game.TimeoutEvent](t, timeouts[0]).PlayerID)
	assert.Equal(t, game.Keep, decode[game.TimeoutEvent](t, timeouts[0]).Action)
}

func TestActionsOutOfTurnAreDropped(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 2, Pace: room.PaceUntimed})
	f.service.Join("p2", code, "bob")
	f.service.StartGame("p1", code)
	f.outbox.reset()

	waiting := "p1"
	if f.current(t, code) == "p1" {
		waiting = "p2"
	}
	f.service.KeepCard(waiting, code)
	f.service.PassCard(waiting, code)
	f.service.KeepCard("p1", "NOPE00")

	assert.Empty(t, f.outbox.types("p1"))
	assert.Empty(t, f.outbox.types("p2"))
}

func TestKeepCardMovesTurn(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 3, Pace: room.PaceUntimed})
	f.service.Join("p2", code, "bob")
	f.service.Join("p3", code, "carol")
	f.service.StartGame("p1", code)

	first := f.current(t, code)
	f.service.KeepCard(first, code)
	assert.NotEqual(t, first, f.current(t, code))
}

func TestDisconnectInLobby(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{})
	f.service.Join("p2", code, "bob")

	f.service.Disconnect("p2")
	msg, ok := f.outbox.last("p1", MessageTypePlayerList)
	require.True(t, ok)
	assert.Len(t, decode[PlayerListData](t, msg).Players, 1)

	f.service.Disconnect("p1")
	_, ok = f.service.Rooms().Get(code)
	assert.False(t, ok, "empty room is deleted")

	lobby, ok := f.outbox.lastLobby()
	require.True(t, ok)
	assert.Empty(t, lobby.Rooms)
}

func TestDisconnectMidGameForfeits(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 2, Pace: room.PaceUntimed})
	f.service.Join("p2", code, "bob")
	f.service.StartGame("p1", code)
	f.outbox.reset()

	f.service.Disconnect("p2")

	types := f.outbox.types("p1")
	assert.Contains(t, types, MessageType(game.EventTypePlayerLeft))
	msg, ok := f.outbox.last("p1", MessageType(game.EventTypeGameOver))
	require.True(t, ok)
	assert.Equal(t, "p1", decode[game.GameOverEvent](t, msg).Winner.ID)

	assert.False(t, f.inGame(code))
	r := f.room(t, code)
	r.Lock()
	defer r.Unlock()
	assert.False(t, r.Has("p2"))
	assert.True(t, r.Has("p1"))
}

func TestDisconnectLastHumanDeletesRunningRoom(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 4, SinglePlayer: true})
	f.service.StartGame("p1", code)
	r := f.room(t, code)

	f.service.Disconnect("p1")

	_, ok := f.service.Rooms().Get(code)
	assert.False(t, ok)
	assert.True(t, r.Timers().Stopped())
}

func TestStaleCallbacksAreDropped(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 3, Pace: room.PaceFast})
	f.service.Join("p2", code, "bob")
	f.service.Join("p3", code, "carol")
	f.service.StartGame("p1", code)

	r := f.room(t, code)
	r.Lock()
	g := r.Game()
	before := g.Version()
	current := g.Current().ID
	r.Unlock()

	// A callback captured at an older version must not act
	f.service.onTurnTimeout(r, g, before-1)
	assert.Equal(t, current, f.current(t, code))
	assert.Empty(t, f.outbox.all("p1", MessageType(game.EventTypeTimeout)))

	f.service.onTurnTimeout(r, g, before)
	assert.NotEqual(t, current, f.current(t, code))
	assert.Len(t, f.outbox.all("p1", MessageType(game.EventTypeTimeout)), 1)
}

func TestGameOverCancelsRevealPause(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 2, Pace: room.PaceUntimed})
	f.service.Join("p2", code, "bob")
	f.service.StartGame("p1", code)
	f.service.KeepCard(f.current(t, code), code)
	f.service.KeepCard(f.current(t, code), code)

	r := f.room(t, code)
	r.Lock()
	old := r.Game()
	require.Equal(t, game.PhaseRoundResolving, old.Phase())
	oldVersion := old.Version()
	r.Unlock()
	require.Equal(t, 1, r.Timers().Pending())

	// Leaving during the reveal pause ends the game and drops the pause
	f.service.Disconnect("p2")
	require.False(t, f.inGame(code))
	assert.Zero(t, r.Timers().Pending())

	f.service.Join("p3", code, "carol")
	f.service.StartGame("p1", code)
	require.True(t, f.inGame(code))

	r.Lock()
	next := r.Game()
	version := next.Version()
	current := next.Current().ID
	r.Unlock()
	require.NotSame(t, old, next)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.clock.Advance(DefaultReveal).MustWait(ctx)

	// A callback from the previous game is dropped even when the new game
	// has reached the same version
	f.service.onReveal(r, old, version)
	f.service.onReveal(r, old, oldVersion)

	r.Lock()
	defer r.Unlock()
	assert.Same(t, next, r.Game())
	assert.Equal(t, 1, next.Round())
	assert.Equal(t, game.PhaseRoundInProgress, next.Phase())
	assert.Equal(t, version, next.Version())
	assert.Equal(t, current, next.Current().ID)
}

func TestRequestLobby(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{})
	f.outbox.reset()

	f.service.RequestLobby("p1")
	assert.Equal(t, []MessageType{MessageTypeLobbyUpdate, MessageTypePlayerList}, f.outbox.types("p1"))

	msg, _ := f.outbox.last("p1", MessageTypeLobbyUpdate)
	lobby := decode[LobbyData](t, msg)
	require.Len(t, lobby.Rooms, 1)
	assert.Equal(t, code, lobby.Rooms[0].Code)

	f.service.RequestLobby("p9")
	assert.Equal(t, []MessageType{MessageTypeLobbyUpdate}, f.outbox.types("p9"))
}

func TestBotsAreNeverMessaged(t *testing.T) {
	f := newServiceFixture(t)
	code := f.createRoom(t, "p1", room.Options{Seats: 3, Lives: 1, Pace: room.PaceFast, SinglePlayer: true})
	f.service.StartGame("p1", code)
	f.play(t, code)

	f.outbox.mu.Lock()
	defer f.outbox.mu.Unlock()
	for id := range f.outbox.sent {
		assert.Equal(t, "p1", id)
	}
}
