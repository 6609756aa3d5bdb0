package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Generator produces check-in codes for a club
type Generator interface {
	// Generate returns a fresh "{club}:{digits}" code. Callers store the result.
	Generate(clubCode string) string
}

// Code length bounds accepted by NewNumericGenerator
const (
	MinCodeLength     = 3
	MaxCodeLength     = 8
	DefaultCodeLength = 3
)

// NumericGenerator draws fixed-length numeric codes from crypto/rand
// FUNCTIONAL DISCOVERY: Leading zeros are kept ("ABC:007") so every code has
// the same width on the leader's screen and in the member's input field
type NumericGenerator struct {
	length int
	limit  *big.Int
}

// NewNumericGenerator returns a generator for codes of the given digit count,
// clamped to [MinCodeLength, MaxCodeLength]
func NewNumericGenerator(length int) *NumericGenerator {
	if length < MinCodeLength {
		length = MinCodeLength
	}
	if length > MaxCodeLength {
		length = MaxCodeLength
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	return &NumericGenerator{length: length, limit: limit}
}

// Generate implements Generator
func (g *NumericGenerator) Generate(clubCode string) string {
	n, err := rand.Int(rand.Reader, g.limit)
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("session: reading random source: %v", err))
	}
	return fmt.Sprintf("%s:%0*d", clubCode, g.length, n.Int64())
}

// Length returns the digit count of generated codes
func (g *NumericGenerator) Length() int {
	return g.length
}
