package storage

import (
	"context"
	"errors"
	"time"
)

// Backend defines the interface for rotation state persistence.
//
// A backend never exposes a plain "set". Every write is conditional on the
// version observed by a previous Load, so concurrent writers (goroutines or
// whole processes sharing one database) cannot both commit from the same
// snapshot. Implementations must be safe for concurrent use.
type Backend interface {
	// Load returns the current state stored under key. A key that has never
	// been written yields the zero State (NextIndex 0, Version 0) and no error.
	Load(ctx context.Context, key string) (State, error)

	// CompareAndSwap stores nextIndex under key only if the stored version
	// still equals expected. Expected 0 means "key not present yet".
	// It returns false with a nil error when another writer committed first.
	CompareAndSwap(ctx context.Context, key string, expected int64, nextIndex int) (bool, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Name identifies the backend in logs and metrics ("memory", "sqlite", ...).
	Name() string

	// Close releases any resources held by the backend.
	// The backend should not be used after calling Close.
	Close() error
}

// State is one snapshot of the persisted rotation counter.
type State struct {
	// NextIndex is the credential slot that will be served to the next caller.
	NextIndex int

	// Version is the fencing token for CompareAndSwap. It starts at 0 for an
	// absent key and increases by one on every successful commit.
	Version int64

	// UpdatedAt is when the state was last committed. Zero for an absent key.
	UpdatedAt time.Time
}

// Exists reports whether the state has ever been committed.
func (s State) Exists() bool {
	return s.Version > 0
}

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage backend is closed")
