package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Bootstrap failures, both fatal with no retry.
	ErrConfigMissing = errors.New("backend configuration missing")
	ErrAuthFailure   = errors.New("sign-in failed")

	// Submission failures.
	ErrNotAuthenticated = errors.New("identity not resolved")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrInvalidText      = errors.New("review text must be 10-500 characters")
	ErrUnknownBook      = errors.New("unknown book")
	ErrBusy             = errors.New("submission already in flight")
	ErrWriteFailed      = errors.New("review write failed")
)
