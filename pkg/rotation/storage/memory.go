package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory storage.
// The counter lives for the process lifetime only and is not shared with
// other instances. All data is lost when the process exits.
type MemoryBackend struct {
	// states maps key to the last committed state.
	states map[string]State

	// mu protects states and closed.
	mu     sync.Mutex
	closed bool

	now func() time.Time
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		states: make(map[string]State),
		now:    time.Now,
	}
}

// Load returns the state stored under key.
func (m *MemoryBackend) Load(ctx context.Context, key string) (State, error) {
	if key == "" {
		return State{}, fmt.Errorf("key cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return State{}, ErrClosed
	}
	return m.states[key], nil
}

// CompareAndSwap stores nextIndex if the stored version equals expected.
func (m *MemoryBackend) CompareAndSwap(ctx context.Context, key string, expected int64, nextIndex int) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key cannot be empty")
	}
	if nextIndex < 0 {
		return false, fmt.Errorf("next index cannot be negative: %d", nextIndex)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	current := m.states[key]
	if current.Version != expected {
		return false, nil
	}

	m.states[key] = State{
		NextIndex: nextIndex,
		Version:   current.Version + 1,
		UpdatedAt: m.now(),
	}
	return true, nil
}

// Ping always succeeds on an open memory backend.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	return nil
}

// Name returns "memory".
func (m *MemoryBackend) Name() string {
	return BackendMemory
}

// Close marks the backend closed. Close is idempotent.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.states = make(map[string]State)
	return nil
}
