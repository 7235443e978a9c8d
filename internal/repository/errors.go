package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateUsername is returned when trying to create a user with an existing username
	ErrDuplicateUsername = errors.New("user with this username already exists")

	// ErrDuplicateToken is returned when a generated token string collides
	ErrDuplicateToken = errors.New("token with this value already exists")

	// ErrDuplicateSocialAccount is returned when a provider identity is already linked
	ErrDuplicateSocialAccount = errors.New("social account already exists")
)
