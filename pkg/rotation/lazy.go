package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/gemrelay/pkg/rotation/storage"
)

// Opener creates a store backend.
type Opener func(ctx context.Context) (storage.Backend, error)

// LazyStore defers opening the backend until it is first used and then reuses
// the same handle for the life of the process.
//
// The handle is acquired at most once. A failed open is not cached: the caller
// that triggered it gets a *StoreError and the next caller tries again.
type LazyStore struct {
	name    string
	open    Opener
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	backend storage.Backend
	ready   atomic.Bool
	closed  bool
}

// NewLazyStore creates a LazyStore. name is reported before the backend is
// open; timeout bounds each open attempt (0 means no extra bound).
func NewLazyStore(name string, open Opener, timeout time.Duration, logger *slog.Logger) *LazyStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LazyStore{
		name:    name,
		open:    open,
		timeout: timeout,
		logger:  logger.With("component", "rotation.store"),
	}
}

// Acquire returns the backend, opening it on first use.
func (l *LazyStore) Acquire(ctx context.Context) (storage.Backend, error) {
	if l.ready.Load() {
		return l.backend, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready.Load() {
		return l.backend, nil
	}
	if l.closed {
		return nil, &StoreError{Op: "open", Backend: l.name, Err: storage.ErrClosed}
	}

	openCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	l.logger.InfoContext(ctx, "initializing rotation store", "backend", l.name)
	start := time.Now()

	backend, err := l.open(openCtx)
	if err != nil {
		l.logger.ErrorContext(ctx, "rotation store initialization failed",
			"backend", l.name,
			"error", err,
		)
		return nil, &StoreError{Op: "open", Backend: l.name, Err: err}
	}

	l.backend = backend
	l.ready.Store(true)

	l.logger.InfoContext(ctx, "rotation store ready",
		"backend", backend.Name(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return backend, nil
}

// Initialized reports whether the backend has been opened.
func (l *LazyStore) Initialized() bool {
	return l.ready.Load()
}

// Load implements storage.Backend.
func (l *LazyStore) Load(ctx context.Context, key string) (storage.State, error) {
	b, err := l.Acquire(ctx)
	if err != nil {
		return storage.State{}, err
	}
	return b.Load(ctx, key)
}

// CompareAndSwap implements storage.Backend.
func (l *LazyStore) CompareAndSwap(ctx context.Context, key string, expected int64, nextIndex int) (bool, error) {
	b, err := l.Acquire(ctx)
	if err != nil {
		return false, err
	}
	return b.CompareAndSwap(ctx, key, expected, nextIndex)
}

// Ping checks an opened backend. It does not trigger initialization.
func (l *LazyStore) Ping(ctx context.Context) error {
	if !l.ready.Load() {
		return fmt.Errorf("%s store not initialized yet", l.name)
	}
	return l.backend.Ping(ctx)
}

// Name returns the backend name.
func (l *LazyStore) Name() string {
	return l.name
}

// Close closes the backend if it was opened. Later Acquire calls fail.
func (l *LazyStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if !l.ready.Load() {
		return nil
	}
	l.ready.Store(false)
	return l.backend.Close()
}
