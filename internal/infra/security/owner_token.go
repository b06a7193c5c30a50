package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidOwnerToken indicates the bearer token failed signature or claim validation.
	ErrInvalidOwnerToken = errors.New("owner token: invalid")
	// ErrExpiredOwnerToken indicates the bearer token is past its expiry.
	ErrExpiredOwnerToken = errors.New("owner token: expired")
)

// OwnerTokenConfig describes how owner bearer tokens issued by the identity provider are verified.
type OwnerTokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// OwnerClaims are the claims carried by an owner bearer token. Subject holds the account id.
type OwnerClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// OwnerTokenVerifier verifies HS256 owner tokens and extracts the account id.
type OwnerTokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewOwnerTokenVerifier constructs a verifier. An empty secret is rejected.
func NewOwnerTokenVerifier(cfg OwnerTokenConfig) (*OwnerTokenVerifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, fmt.Errorf("owner token: secret is required")
	}
	return &OwnerTokenVerifier{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		leeway:   cfg.Leeway,
		now:      time.Now,
	}, nil
}

// WithClock overrides the verifier clock.
func (v *OwnerTokenVerifier) WithClock(now func() time.Time) *OwnerTokenVerifier {
	if now != nil {
		v.now = now
	}
	return v
}

// ParseOwnerToken validates token and returns the account id from its subject.
func (v *OwnerTokenVerifier) ParseOwnerToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidOwnerToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.leeway > 0 {
		options = append(options, jwt.WithLeeway(v.leeway))
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}

	claims := &OwnerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredOwnerToken
		}
		return "", ErrInvalidOwnerToken
	}
	if parsed == nil || !parsed.Valid {
		return "", ErrInvalidOwnerToken
	}

	accountID := strings.TrimSpace(claims.Subject)
	if accountID == "" {
		return "", ErrInvalidOwnerToken
	}
	return accountID, nil
}

// IssueOwnerToken signs a token for accountID. Used by local tooling and tests;
// production tokens come from the identity provider.
func (v *OwnerTokenVerifier) IssueOwnerToken(accountID, email string, ttl time.Duration) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", fmt.Errorf("owner token: account id is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	now := v.now()
	claims := OwnerClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("owner token: sign: %w", err)
	}
	return signed, nil
}
