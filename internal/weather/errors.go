package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a token or entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the trusted-caller secret does not match.
	ErrForbidden = errors.New("forbidden")
)

// ProviderError reports a failed fetch from the upstream weather API:
// network failure, malformed payload, rate limit. Callers treat all of
// these as a single opaque failure kind.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "weather provider: " + e.Message
}

// StoreError reports a persistence-layer failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
