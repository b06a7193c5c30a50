package security

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/VickyKR37/autobook/internal/core/port"
)

const (
	// AccessCodeLength is the number of characters in a mechanic access code.
	AccessCodeLength   = 6
	accessCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// AccessCodeGenerator produces uppercase base-36 access codes.
type AccessCodeGenerator struct {
	random io.Reader
}

var _ port.AccessCodeGenerator = (*AccessCodeGenerator)(nil)

// NewAccessCodeGenerator returns a generator backed by crypto/rand.
func NewAccessCodeGenerator() *AccessCodeGenerator {
	return &AccessCodeGenerator{random: rand.Reader}
}

// WithRandom overrides the randomness source.
func (g *AccessCodeGenerator) WithRandom(r io.Reader) *AccessCodeGenerator {
	if r != nil {
		g.random = r
	}
	return g
}

// Generate returns a new code. Each character is drawn uniformly from the alphabet.
func (g *AccessCodeGenerator) Generate() (string, error) {
	limit := big.NewInt(int64(len(accessCodeAlphabet)))
	code := make([]byte, AccessCodeLength)
	for i := range code {
		n, err := rand.Int(g.random, limit)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		code[i] = accessCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
