// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// Business-rule errors returned by the user service. The messages are
	// shown to clients as-is.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// Used for both "no such user" and "wrong password".
	ErrInvalidCredentials = errors.New("invalid email or password")
	// Used for bad signature, expiry and mismatch against the stored value.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUserNotFound          = errors.New("user not found")

	// Validation errors, usually wrapped in a ValidationError.
	ErrMissingField = errors.New("field is required")
	ErrMissingToken = errors.New("token is required")
	ErrInvalidField = errors.New("field is invalid")
)

// ValidationError reports malformed or missing input for a single field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MissingField is a shortcut for a ValidationError wrapping ErrMissingField.
func MissingField(field string) error {
	return &ValidationError{Field: field, Err: ErrMissingField}
}
