// Package common defines shared constants, sentinel errors and small helpers
// used across trainctl packages. Callers should use errors.Is to match the
// error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Credential errors (malformed token, missing subject).
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject")

	// Input errors.
	ErrorValidation = errors.New("validation error")
)
