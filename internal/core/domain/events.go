package domain

import "time"

// AccountCreatedEvent represents the payload of identity.account.created messages.
type AccountCreatedEvent struct {
	EventID   string
	AccountID string
	Email     *string
	CreatedAt time.Time
	Metadata  map[string]any
}

// AccessCodeRegeneratedEvent represents the payload for autobook.access_code.regenerated messages.
type AccessCodeRegeneratedEvent struct {
	EventID       string
	AccountID     string
	RegeneratedAt time.Time
	Metadata      map[string]any
}

// MechanicAccessOutcome enumerates validation results reported in audit events.
type MechanicAccessOutcome string

const (
	MechanicAccessGranted MechanicAccessOutcome = "granted"
	MechanicAccessDenied  MechanicAccessOutcome = "denied"
)

// MechanicAccessAttemptEvent represents the payload for autobook.mechanic_access.attempted messages.
// The plaintext code and the unmasked email are never part of it.
type MechanicAccessAttemptEvent struct {
	EventID        string
	OwnerAccountID string
	MaskedEmail    string
	Outcome        MechanicAccessOutcome
	AttemptedAt    time.Time
	Metadata       map[string]any
}
