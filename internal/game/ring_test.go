package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/passtheace/internal/randutil"
)

func ringOf(active []bool) []*Participant {
	seats := make([]*Participant, len(active))
	for i, a := range active {
		seats[i] = &Participant{Seat: i}
		if a {
			seats[i].Lives = 1
		} else {
			seats[i].Eliminated = true
		}
	}
	return seats
}

// Taking the next active seat activeCount times from any active seat visits
// every active seat once and returns to the start.
func TestNextActiveSeatVisitsRing(t *testing.T) {
	rng := randutil.New(21)

	for trial := 0; trial < 2000; trial++ {
		n := 2 + rng.IntN(9)
		active := make([]bool, n)
		var activeSeats []int
		for i := range active {
			active[i] = rng.IntN(3) > 0
			if active[i] {
				activeSeats = append(activeSeats, i)
			}
		}
		if len(activeSeats) < 2 {
			continue
		}

		seats := ringOf(active)
		for _, direction := range []int{1, -1} {
			start := activeSeats[rng.IntN(len(activeSeats))]
			visited := make(map[int]int)
			seat := start
			for range activeSeats {
				next, err := nextActiveSeat(seats, seat, direction)
				require.NoError(t, err)
				require.True(t, active[next], "landed on eliminated seat %d", next)
				visited[next]++
				seat = next
			}

			assert.Equal(t, start, seat)
			assert.Len(t, visited, len(activeSeats))
			for s, count := range visited {
				assert.Equal(t, 1, count, "seat %d visited %d times", s, count)
			}
		}
	}
}

func TestNextActiveSeatSkipsEliminated(t *testing.T) {
	seats := ringOf([]bool{true, false, false, true, false})

	next, err := nextActiveSeat(seats, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	next, err = nextActiveSeat(seats, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	next, err = nextActiveSeat(seats, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	// Walking from an eliminated seat still finds the next active one
	next, err = nextActiveSeat(seats, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestNextActiveSeatWithoutOtherActiveSeat(t *testing.T) {
	seats := ringOf([]bool{false, true, false})
	_, err := nextActiveSeat(seats, 1, 1)
	assert.ErrorIs(t, err, ErrNoNextSeat)

	_, err = nextActiveSeat(ringOf([]bool{false, false}), 0, 1)
	assert.ErrorIs(t, err, ErrNoNextSeat)
}
