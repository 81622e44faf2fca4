package services

import "errors"

var (
	// ErrNotFound covers projects, versions, users and transactions that are
	// absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientCredits is returned when a conditional debit finds the
	// balance below the requested amount. Nothing is deducted.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrAlreadyCompleted signals a transaction that was credited earlier.
	// Verification retries map this to a no-op success.
	ErrAlreadyCompleted = errors.New("transaction already completed")
)
