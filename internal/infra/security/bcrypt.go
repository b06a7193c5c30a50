package security

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// LegacyBcryptCost matches the salt rounds used by profiles provisioned before the Argon2id migration.
const LegacyBcryptCost = 10

// BcryptHasher hashes and verifies bcrypt encoded access codes.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to LegacyBcryptCost when cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = LegacyBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash generates a bcrypt hash for code.
func (h *BcryptHasher) Hash(code string) (string, error) {
	sum, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: bcrypt: %v", ErrHashing, err)
	}
	return string(sum), nil
}

// Verify compares code with a bcrypt hash.
func (h *BcryptHasher) Verify(code, encoded string) (bool, error) {
	if code == "" || encoded == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(code))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: bcrypt: %v", errInvalidHashFormat, err)
	}
}

func isBcryptHash(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}
