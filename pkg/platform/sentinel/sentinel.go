package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and lock backends return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: record does not exist in store
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrLockHeld: another worker holds the per-entity migration lock
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrLockHeld    = errors.New("lock held")
	ErrUnavailable = errors.New("unavailable")
)
