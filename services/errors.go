package services

import (
	"errors"
)

var (
	// ErrUnauthorized means the bearer token was missing or could not be
	// resolved to a user.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the caller's role does not permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")
)
