package errors

import (
	"errors"
)

// Failure classes surfaced by the store and platform adapters. Handlers
// report these to the caller verbatim; no layer below the dispatcher retries.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrPlatformTransient = errors.New("platform transient failure")
	ErrPlatformPermanent = errors.New("insufficient bot privilege")
)
