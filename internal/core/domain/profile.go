package domain

import "time"

// UserProfile mirrors the persisted representation in the user_profiles table.
type UserProfile struct {
	AccountID          string
	Email              string
	HashedAccessCode   string
	CreatedAt          time.Time
	AccessCodeIssuedAt *time.Time
}

// HasAccessCode reports whether the first access code issuance completed.
func (p UserProfile) HasAccessCode() bool {
	return p.HashedAccessCode != ""
}

// IssuedAccessCode carries a freshly generated plaintext access code.
// It is handed to the caller exactly once and never persisted.
type IssuedAccessCode struct {
	AccountID string
	Email     string
	Code      string
	IssuedAt  time.Time
}

// AccessCodeStatus summarises the current access code without exposing it.
type AccessCodeStatus struct {
	AccountID   string
	Provisioned bool
	IssuedAt    *time.Time
}

// AccessGrant is returned to a mechanic after a successful validation.
type AccessGrant struct {
	OwnerAccountID string
	OwnerEmail     string
}
