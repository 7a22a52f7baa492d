package simulator

import (
	"github.com/lox/passtheace/internal/room"
	"github.com/lox/passtheace/internal/statistics"
)

// Report is the machine readable summary of a run
type Report struct {
	Mode       room.Mode `json:"mode"`
	Seats      int       `json:"seats"`
	Lives      int       `json:"lives"`
	Strategies []string  `json:"strategies"`
	Seed       int64     `json:"seed"`

	Games        int        `json:"games"`
	MeanRounds   float64    `json:"meanRounds"`
	MedianRounds float64    `json:"medianRounds"`
	StdDev       float64    `json:"stdDev"`
	CI95         [2]float64 `json:"ci95"`
	MaxRounds    int        `json:"maxRounds"`
	Voided       int        `json:"voidedRounds"`

	SeatWins     []int          `json:"seatWins"`
	StrategyWins map[string]int `json:"strategyWins"`
}

// NewReport summarizes stats for a run with config
func NewReport(stats *statistics.Statistics, config Config) Report {
	low, high := stats.ConfidenceInterval95()
	r := Report{
		Mode:         config.Mode,
		Seats:        config.Seats,
		Lives:        config.Lives,
		Strategies:   config.Strategies,
		Seed:         config.Seed,
		Games:        stats.Games,
		MeanRounds:   stats.Mean(),
		MedianRounds: stats.Median(),
		StdDev:       stats.StdDev(),
		CI95:         [2]float64{low, high},
		MaxRounds:    stats.MaxSeen,
		Voided:       stats.Voided,
		StrategyWins: make(map[string]int, len(stats.Strategies)),
	}
	for _, seat := range stats.Seats {
		r.SeatWins = append(r.SeatWins, seat.Wins)
	}
	for name, st := range stats.Strategies {
		r.StrategyWins[name] = st.Wins
	}
	return r
}
