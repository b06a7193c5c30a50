package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrAlreadyExists indicates a record with the same key is already stored.
	ErrAlreadyExists = errors.New("repository: already exists")
	// ErrEmailTaken indicates another profile already owns the email address.
	ErrEmailTaken = errors.New("repository: email already in use")
)
