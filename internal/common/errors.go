// Package common defines shared constants and sentinel errors used across
// client and server layers of passkeeper. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation reports bad user input or a failed precondition.
	ErrValidation = errors.New("validation failed")

	// ErrWrongPassphrase is the validation failure produced when content
	// cannot be decrypted or decoded with the supplied passphrase.
	ErrWrongPassphrase = fmt.Errorf("%w: wrong passphrase", ErrValidation)

	// ErrStorage wraps local store read/write failures.
	ErrStorage = errors.New("storage failure")

	// ErrNetwork wraps remote store failures.
	ErrNetwork = errors.New("network failure")

	// ErrInvariant signals a programming error, e.g. a record that is not
	// tracked by the context it was passed to.
	ErrInvariant = errors.New("invariant violation")

	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInternal hides server-side failures from clients.
	ErrInternal = errors.New("internal error")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
