package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.
// None of them is fatal: callers recover locally.

var (
	// Ledger errors
	ErrInvalidAmount          = errors.New("amount must be a finite positive number")
	ErrInvalidTransactionType = errors.New("transaction type must be income or expense")
	ErrTransactionNotFound    = errors.New("transaction not found")

	// Quest errors
	ErrUnknownQuest = errors.New("unknown quest")

	// Persistence errors — state keeps working in memory for the session
	ErrPersistenceUnavailable = errors.New("persistent store unavailable")
)
