// Package common defines shared constants and sentinel errors used across
// the Clockwork backend. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrStorageUnavailable marks a failure of the database or the object
	// store. It is never collapsed into an authentication failure.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Credential errors.
	ErrMalformedCredential = errors.New("malformed credential record")

	// Auth errors. Every token failure is reported outward as ErrInvalidToken;
	// the specific kinds below are kept for logs and metrics.
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenTypeMismatch     = errors.New("token type mismatch")
	ErrTokenRevoked          = errors.New("token revoked")

	// ErrDuplicateToken is returned when a refresh token value is already stored.
	ErrDuplicateToken = errors.New("duplicate token")
)
