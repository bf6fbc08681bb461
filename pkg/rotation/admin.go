package rotation

import (
	"context"
	"fmt"

	"mercator-hq/gemrelay/pkg/rotation/storage"
)

// SetIndex force-writes the next slot to serve, for operator use. It uses the
// same compare-and-swap path as selection and retries up to maxAttempts times
// on conflict.
func SetIndex(ctx context.Context, store storage.Backend, key string, index, n, maxAttempts int) (storage.State, error) {
	if n <= 0 {
		return storage.State{}, ErrNoCredentials
	}
	if index < 0 || index >= n {
		return storage.State{}, fmt.Errorf("index %d out of range [0, %d)", index, n)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		st, err := store.Load(ctx, key)
		if err != nil {
			return storage.State{}, &StoreError{Op: "load", Backend: store.Name(), Err: err}
		}

		ok, err := store.CompareAndSwap(ctx, key, st.Version, index)
		if err != nil {
			return storage.State{}, &StoreError{Op: "commit", Backend: store.Name(), Err: err}
		}
		if ok {
			return storage.State{NextIndex: index, Version: st.Version + 1}, nil
		}
	}

	return storage.State{}, ErrRetriesExhausted
}
