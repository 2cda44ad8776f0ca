package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, locks and collaborator
// adapters return these (optionally wrapped) so services can translate them
// into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: concurrent write lost (version mismatch, serialization failure)
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrLocked: another actor holds the per-application lock
//   - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrLocked       = errors.New("locked")
	ErrUnavailable  = errors.New("unavailable")
)
