// Package storage provides persistence backends for the credential rotation
// counter.
//
// # Overview
//
// The rotation counter is a single integer per key: the next credential slot
// to serve. Backends expose it only through read-with-version and a
// conditional write, so every implementation offers the same optimistic
// concurrency contract:
//
//   - Memory: process-local counter, reset on restart, no cross-instance
//     coordination
//   - SQL: durable counter in a table, shared by every process that points at
//     the same database. Dialects: SQLite (modernc.org/sqlite or
//     github.com/mattn/go-sqlite3), PostgreSQL (github.com/lib/pq) and MySQL
//     (github.com/go-sql-driver/mysql)
//
// # Usage
//
//	backend, err := storage.Open(ctx, storage.Config{Backend: "sqlite", SQLitePath: "gemrelay.db"})
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	st, err := backend.Load(ctx, "current_key_index")
//	ok, err := backend.CompareAndSwap(ctx, "current_key_index", st.Version, (st.NextIndex+1)%n)
//	if !ok {
//	    // another writer committed first; reload and try again
//	}
//
// # Thread Safety
//
// All backends are safe for concurrent use from multiple goroutines.
package storage
