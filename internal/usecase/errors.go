package usecase

import (
	"errors"
	"fmt"
	"time"
)

// AccessDeniedMessage is the only text surfaced for a failed validation, whatever the cause.
const AccessDeniedMessage = "Invalid owner email or access code."

var (
	// ErrInvalidArgument indicates a required input is missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthenticated indicates the operation requires an authenticated owner.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAccessDenied indicates the email and access code pair did not validate.
	ErrAccessDenied = errors.New("access denied")
	// ErrProfileNotFound indicates the authenticated account has no profile yet.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInternal marks store or hasher failures. Callers surface a generic message and may retry.
	ErrInternal = errors.New("internal error")
)

// InvalidArgumentError carries a caller-facing message for ErrInvalidArgument.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// Is reports ErrInvalidArgument as the sentinel for this error.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidArgument(message string) error {
	return &InvalidArgumentError{Message: message}
}

// RateLimitExceededError reports that a sliding window limit has been reached.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
