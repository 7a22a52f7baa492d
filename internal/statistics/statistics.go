package statistics

import (
	"fmt"
	"math"
	"sort"
)

// GameResult is the outcome of one simulated game
type GameResult struct {
	Seed           int64    // Seed the game was dealt from (for replay)
	Rounds         int      // Rounds played, voided rounds included
	WinnerSeat     int      // Seat of the last participant standing
	WinnerStrategy string   // Strategy the winner played
	Voided         int      // Rounds where nobody lost a life
	Strategies     []string // Strategy per seat
}

// SeatStats tracks how one seat fared
type SeatStats struct {
	Games int
	Wins  int
}

// WinRate returns the share of games the seat won
func (s SeatStats) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}

// Statistics aggregates simulated games. Round counts feed the mean, spread
// and percentiles; wins are tracked per seat and per strategy.
type Statistics struct {
	Games   int
	SumR    float64
	SumR2   float64   // Sum of squares for variance calculation
	Rounds  []float64 // Every game's round count, for median and percentiles
	Voided  int
	MaxSeen int

	Seats      []SeatStats
	Strategies map[string]*SeatStats
}

// Add incorporates one game
func (s *Statistics) Add(result GameResult) {
	rounds := float64(result.Rounds)
	s.Games++
	s.SumR += rounds
	s.SumR2 += rounds * rounds
	s.Rounds = append(s.Rounds, rounds)
	s.Voided += result.Voided
	if result.Rounds > s.MaxSeen {
		s.MaxSeen = result.Rounds
	}

	for len(s.Seats) < len(result.Strategies) {
		s.Seats = append(s.Seats, SeatStats{})
	}
	if s.Strategies == nil {
		s.Strategies = make(map[string]*SeatStats)
	}
	for seat, name := range result.Strategies {
		s.Seats[seat].Games++
		st, ok := s.Strategies[name]
		if !ok {
			st = &SeatStats{}
			s.Strategies[name] = st
		}
		st.Games++
	}
	if result.WinnerSeat >= 0 && result.WinnerSeat < len(s.Seats) {
		s.Seats[result.WinnerSeat].Wins++
	}
	if st, ok := s.Strategies[result.WinnerStrategy]; ok {
		st.Wins++
	}
}

// Mean returns the mean number of rounds per game
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.SumR / float64(s.Games)
}

// Variance returns the sample variance of rounds per game
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumR2 - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

// StdDev returns the sample standard deviation of rounds per game
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median rounds per game
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the round count at percentile p (0.0 to 1.0),
// interpolating between neighbours
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Rounds) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Rounds))
	copy(sorted, s.Rounds)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// StrategyNames returns the strategies seen, sorted
func (s *Statistics) StrategyNames() []string {
	names := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that the counters agree with each other
func (s *Statistics) Validate() error {
	if s.Games <= 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}
	if len(s.Rounds) != s.Games {
		return fmt.Errorf("rounds recorded (%d) does not match games (%d)", len(s.Rounds), s.Games)
	}

	seatWins := 0
	for seat, st := range s.Seats {
		if st.Wins > st.Games {
			return fmt.Errorf("seat %d won %d of %d games", seat, st.Wins, st.Games)
		}
		seatWins += st.Wins
	}
	if seatWins != s.Games {
		return fmt.Errorf("seat wins (%d) does not match games (%d)", seatWins, s.Games)
	}

	strategyWins := 0
	for _, st := range s.Strategies {
		strategyWins += st.Wins
	}
	if strategyWins != s.Games {
		return fmt.Errorf("strategy wins (%d) does not match games (%d)", strategyWins, s.Games)
	}
	return nil
}
