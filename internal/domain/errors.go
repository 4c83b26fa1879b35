package domain

import "errors"

var (
	// ErrValidation marks caller input that cannot be processed.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrLedgerUnavailable marks storage failures on the delivery ledger.
	// The run cannot continue safely without durable bookkeeping.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrPayloadBuild marks per-recipient payload construction failures
	// caused by run configuration, such as a missing attachment file or a
	// template field absent from the recipient data.
	ErrPayloadBuild = errors.New("payload build failed")
)
