package escrow

import "errors"

// The engine rejects every bad call before any state is written, so each of
// these classes maps one-to-one onto a refused operation rather than a
// corrupted ledger.
var (
	// ErrInvalidInput marks creation or configuration parameters the
	// ledger refuses to accept.
	ErrInvalidInput = errors.New("escrow: invalid input")
	// ErrUnauthorized marks callers that do not hold the role an
	// operation requires.
	ErrUnauthorized = errors.New("escrow: unauthorized")
	// ErrInvalidState marks transitions attempted from a status that does
	// not permit them.
	ErrInvalidState = errors.New("escrow: invalid status")
	// ErrNotFound marks lookups of escrow identifiers that were never
	// assigned.
	ErrNotFound = errors.New("escrow: escrow not found")
	// ErrNoFunds marks withdrawals attempted with a zero pending balance.
	ErrNoFunds = errors.New("escrow: no funds to withdraw")
)
