package health

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoCredentials fails readiness when the credential set is empty.
var ErrNoCredentials = errors.New("no API keys configured")

// CredentialsCheck reports whether any credentials are configured.
func CredentialsCheck(count func() int) CheckFunc {
	return func(ctx context.Context) error {
		if count() == 0 {
			return ErrNoCredentials
		}
		return nil
	}
}

// Store is the subset of the rotation store a readiness check needs.
type Store interface {
	Ping(ctx context.Context) error
	Name() string
}

// StoreCheck pings the rotation store. A lazily opened store that has not
// been used yet is reported as skipped rather than opened by the probe.
func StoreCheck(store Store) CheckFunc {
	return func(ctx context.Context) error {
		if lazy, ok := store.(interface{ Initialized() bool }); ok && !lazy.Initialized() {
			return fmt.Errorf("%s store not opened yet: %w", store.Name(), ErrSkipped)
		}
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("%s store unreachable: %w", store.Name(), err)
		}
		return nil
	}
}
