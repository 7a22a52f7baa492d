package randutil

import (
	rand "math/rand/v2"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The two 64-bit PCG seeds are derived from the one value so all call sites
// get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns a seed from the wall clock, for runs without an explicit one
func Seed() int64 {
	return time.Now().UnixNano()
}

// Derive returns an independent stream for the n-th consumer of a master
// seed. Rooms each get their own stream so they never share a *rand.Rand.
func Derive(seed int64, n uint64) *rand.Rand {
	return New(int64(mix(uint64(seed) + n*goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
