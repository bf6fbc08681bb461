package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SQLBackend implements Backend on top of a relational database.
//
// The counter is one row per key in the rotation_state table. Commits are a
// single conditional statement (UPDATE ... WHERE version = ?, or an
// insert-if-absent for the first commit), so the database arbitrates races
// between goroutines and between processes sharing the same database.
type SQLBackend struct {
	db        *sql.DB
	dialect   Dialect
	closeOnce sync.Once
	now       func() time.Time

	// preparedStatements contains pre-compiled SQL statements for performance
	loadStmt   *sql.Stmt
	insertStmt *sql.Stmt
	updateStmt *sql.Stmt
}

// NewSQLBackend wraps an open database handle. It creates the schema and
// prepares statements. On error the caller still owns db.
func NewSQLBackend(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLBackend, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}

	backend := &SQLBackend{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}

	// Initialize schema
	if err := backend.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Prepare statements
	if err := backend.prepareStatements(ctx); err != nil {
		backend.closeStatements()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLBackend) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLBackend) prepareStatements(ctx context.Context) error {
	var err error

	s.loadStmt, err = s.db.PrepareContext(ctx, s.dialect.rebind(loadQuery))
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	s.insertStmt, err = s.db.PrepareContext(ctx, s.dialect.rebind(s.dialect.InsertIfAbsent))
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.updateStmt, err = s.db.PrepareContext(ctx, s.dialect.rebind(updateQuery))
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}

	return nil
}

// Load returns the state stored under key.
func (s *SQLBackend) Load(ctx context.Context, key string) (State, error) {
	if key == "" {
		return State{}, fmt.Errorf("key cannot be empty")
	}

	var (
		nextIndex int64
		version   int64
		updatedAt int64
	)

	err := s.loadStmt.QueryRowContext(ctx, key).Scan(&nextIndex, &version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load state: %w", err)
	}
	if nextIndex < 0 {
		return State{}, fmt.Errorf("stored next index is negative: %d", nextIndex)
	}

	return State{
		NextIndex: int(nextIndex),
		Version:   version,
		UpdatedAt: time.UnixMilli(updatedAt),
	}, nil
}

// CompareAndSwap stores nextIndex if the stored version equals expected.
func (s *SQLBackend) CompareAndSwap(ctx context.Context, key string, expected int64, nextIndex int) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key cannot be empty")
	}
	if nextIndex < 0 {
		return false, fmt.Errorf("next index cannot be negative: %d", nextIndex)
	}

	now := s.now().UnixMilli()

	var (
		result sql.Result
		err    error
	)
	if expected == 0 {
		result, err = s.insertStmt.ExecContext(ctx, key, nextIndex, now)
	} else {
		result, err = s.updateStmt.ExecContext(ctx, nextIndex, now, key, expected)
	}
	if err != nil {
		return false, fmt.Errorf("failed to commit state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// Ping verifies the database is reachable.
func (s *SQLBackend) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Name returns the dialect name.
func (s *SQLBackend) Name() string {
	return s.dialect.Name
}

// Close releases the prepared statements and the database handle.
// Close is idempotent and safe to call multiple times.
func (s *SQLBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		s.closeStatements()

		if s.dialect.Name == BackendSQLite {
			// Fold the WAL back into the main database file
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		}
		closeErr = s.db.Close()
	})

	return closeErr
}

func (s *SQLBackend) closeStatements() {
	for _, stmt := range []*sql.Stmt{s.loadStmt, s.insertStmt, s.updateStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
}
