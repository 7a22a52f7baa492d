// Package roomcode generates the short codes players type to join a room.
package roomcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the number of characters in a room code
const Length = 6

// Upper-case Crockford base32 without I, L, O and U so codes survive being
// read aloud.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator handles room code generation with configurable randomness
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource. A nil source
// uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new room code using crypto/rand
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new room code using the generator's RandSource
func (g *Generator) Generate() string {
	code := make([]byte, Length)
	for i := range code {
		code[i] = alphabet[g.intN(len(alphabet))]
	}
	return string(code)
}

func (g *Generator) intN(n int) int {
	if g.randSource != nil {
		return g.randSource.IntN(n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("failed to generate random room code: " + err.Error())
	}
	return int(v.Int64())
}

// Validate checks that a code has the right length and alphabet
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}

	for i, char := range code {
		valid := false
		for _, validChar := range alphabet {
			if char == validChar {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}

	return nil
}
