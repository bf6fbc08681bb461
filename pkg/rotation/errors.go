package rotation

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials is returned when the credential set is empty.
	// It is a configuration problem and is never retried.
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrConflict means another writer committed between this caller's read
	// and its conditional write. The caller must start the selection over.
	ErrConflict = errors.New("rotation state changed concurrently")

	// ErrStoreUnavailable means the rotation state store could not be read
	// or written at all.
	ErrStoreUnavailable = errors.New("rotation store unavailable")

	// ErrRetriesExhausted means every allowed selection attempt conflicted.
	ErrRetriesExhausted = errors.New("rotation retries exhausted")
)

// StoreError describes a failed store operation. It matches
// ErrStoreUnavailable with errors.Is and unwraps to the backend error.
type StoreError struct {
	// Op is the failed operation ("open", "load", "commit").
	Op string

	// Backend is the store backend name.
	Backend string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("rotation store %s (%s): %v", e.Op, e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
