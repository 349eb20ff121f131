package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrNotFound      = errors.New("prediction not found")
	ErrInvalidLimit  = errors.New("invalid ledger limit")
	ErrInvalidEntry  = errors.New("invalid ledger entry")
	ErrUnknownDriver = errors.New("unknown ledger driver")
)
