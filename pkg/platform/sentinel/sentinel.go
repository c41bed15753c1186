package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and outbound clients
// return these (optionally wrapped) so services can translate them into domain
// errors:
//   - ErrNotFound: entity does not exist in the store or cache
//   - ErrConflict: a unique constraint would be violated
//   - ErrInvalidState: a compare-and-set found the row in an unexpected state
//   - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
