package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailRequired is returned when an operation is given an empty email.
	ErrEmailRequired = errors.New("email is required")
)
