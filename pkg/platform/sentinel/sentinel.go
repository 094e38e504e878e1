package sentinel

import "errors"

// Sentinel errors for store-level facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors without
// string matching.
//
// These represent factual states about rows, not validation failures:
//   - ErrNotFound: row does not exist
//   - ErrConflict: a unique constraint rejected the write (active sponsorship
//     key, (subscription, child) pair)
//   - ErrAlreadyUsed: a natural key such as a live donor email or an external
//     invoice id is already taken
//   - ErrInvalidState: row exists but is in the wrong state for the operation
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
)
