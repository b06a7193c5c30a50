package security

import (
	"fmt"
	"strings"

	"github.com/VickyKR37/autobook/internal/core/port"
)

const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// HasherConfig selects the algorithm used for new access code hashes.
type HasherConfig struct {
	Algorithm  string
	Argon2     Argon2Config
	Pepper     string
	BcryptCost int
}

// CodeHasher hashes new codes with the configured algorithm and verifies
// any supported encoding, detected from the stored prefix.
type CodeHasher struct {
	algorithm string
	argon     *Argon2Hasher
	bcrypt    *BcryptHasher
}

var _ port.AccessCodeHasher = (*CodeHasher)(nil)

// NewCodeHasher builds a CodeHasher from cfg.
func NewCodeHasher(cfg HasherConfig) (*CodeHasher, error) {
	algorithm := strings.ToLower(strings.TrimSpace(cfg.Algorithm))
	if algorithm == "" {
		algorithm = AlgorithmArgon2id
	}
	if algorithm != AlgorithmArgon2id && algorithm != AlgorithmBcrypt {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", errInvalidConfig, cfg.Algorithm)
	}

	argon, err := NewArgon2Hasher(cfg.Argon2, cfg.Pepper)
	if err != nil {
		return nil, err
	}

	return &CodeHasher{
		algorithm: algorithm,
		argon:     argon,
		bcrypt:    NewBcryptHasher(cfg.BcryptCost),
	}, nil
}

// Algorithm reports the algorithm used for new hashes.
func (h *CodeHasher) Algorithm() string {
	return h.algorithm
}

// Hash hashes code with the configured algorithm.
func (h *CodeHasher) Hash(code string) (string, error) {
	if h.algorithm == AlgorithmBcrypt {
		return h.bcrypt.Hash(code)
	}
	return h.argon.Hash(code)
}

// Verify checks code against encoded using the algorithm the hash was produced with.
func (h *CodeHasher) Verify(code, encoded string) (bool, error) {
	if code == "" || encoded == "" {
		return false, nil
	}

	switch {
	case strings.HasPrefix(encoded, argon2Variant+"$"):
		return h.argon.Verify(code, encoded)
	case isBcryptHash(encoded):
		return h.bcrypt.Verify(code, encoded)
	default:
		return false, errInvalidHashFormat
	}
}
