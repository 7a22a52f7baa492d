package room

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/coder/quartz"

	"github.com/lox/passtheace/internal/randutil"
	"github.com/lox/passtheace/internal/roomcode"
	"github.com/lox/passtheace/internal/scheduler"
)

// ErrNoFreeCode is returned by Create when no unused code could be drawn
var ErrNoFreeCode = errors.New("could not allocate a free room code")

const maxCodeAttempts = 100

// Registry maps room codes to rooms. Its lock only guards the map: it is
// never held while a room lock is taken.
type Registry struct {
	clock quartz.Clock
	codes *roomcode.Generator
	seed  int64

	mu      sync.RWMutex
	rooms   map[string]*Room
	created uint64
}

// NewRegistry creates an empty registry. Rooms get their timers from clock
// and a random stream derived from seed.
func NewRegistry(clock quartz.Clock, codes *roomcode.Generator, seed int64) *Registry {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if codes == nil {
		codes = roomcode.NewGenerator(nil)
	}
	return &Registry{
		clock: clock,
		codes: codes,
		seed:  seed,
		rooms: make(map[string]*Room),
	}
}

// Create inserts a new room under a fresh code
func (reg *Registry) Create(opts Options) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for range maxCodeAttempts {
		code := reg.codes.Generate()
		if _, taken := reg.rooms[code]; taken {
			continue
		}
		return reg.newRoomLocked(code, opts), nil
	}
	return nil, ErrNoFreeCode
}

// GetOrCreate returns the room with code, creating it with opts when it does
// not exist. Codes are case-insensitive.
func (reg *Registry) GetOrCreate(code string, opts Options) (*Room, bool) {
	code = Canonical(code)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[code]; ok {
		return r, false
	}
	return reg.newRoomLocked(code, opts), true
}

func (reg *Registry) newRoomLocked(code string, opts Options) *Room {
	r := New(code, opts, scheduler.New(reg.clock))
	r.rng = randutil.Derive(reg.seed, reg.created)
	reg.created++
	reg.rooms[code] = r
	return r
}

// Get returns the room with code
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[Canonical(code)]
	return r, ok
}

// Delete removes the room with code and stops its timers
func (reg *Registry) Delete(code string) {
	reg.mu.Lock()
	r, ok := reg.rooms[Canonical(code)]
	delete(reg.rooms, Canonical(code))
	reg.mu.Unlock()

	if ok {
		r.Timers().Stop()
	}
}

// Len returns the number of rooms
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Rooms returns the rooms ordered by code
func (reg *Registry) Rooms() []*Room {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	slices.SortFunc(rooms, func(a, b *Room) int { return strings.Compare(a.Code, b.Code) })
	return rooms
}

// FindByParticipant returns the room seating id
func (reg *Registry) FindByParticipant(id string) (*Room, bool) {
	for _, r := range reg.Rooms() {
		r.Lock()
		found := r.Has(id)
		r.Unlock()
		if found {
			return r, true
		}
	}
	return nil, false
}

// Summaries returns the lobby rows of every room ordered by code
func (reg *Registry) Summaries() []Summary {
	rooms := reg.Rooms()
	summaries := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		r.Lock()
		summaries = append(summaries, r.Summary())
		r.Unlock()
	}
	return summaries
}

// Canonical upper-cases and trims a room code typed by a player
func Canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
