// Package rotation implements fair round-robin selection of upstream
// credentials.
//
// # Selection
//
// Across N credentials, the i-th successful selection serves slot (i-1) mod N.
// The next slot is kept in a storage.Backend and advanced with
// compare-and-swap:
//
//  1. Load the counter i and its version
//  2. Commit (i+1) mod N conditioned on that version
//  3. On success serve slot i; on conflict return ErrConflict
//
// A conflicting attempt writes nothing. Callers retry by calling SelectNext
// again from scratch; the Rotator does not bound retries itself.
//
// Fairness holds in aggregate (every slot is served exactly once per cycle),
// not in arrival order: which of several concurrent callers gets which slot
// is unspecified.
//
// # Store lifecycle
//
// LazyStore opens the backend on first use and reuses the handle afterwards.
// Prober pings an opened store on a cron schedule and reports reachability.
//
// # Errors
//
//   - ErrNoCredentials: the credential set is empty
//   - ErrConflict: another writer committed first; retry
//   - ErrStoreUnavailable (via *StoreError): the store failed
//   - ErrRetriesExhausted: returned by callers that cap retries
package rotation
