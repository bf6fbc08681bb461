package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"           // PostgreSQL
	_ "github.com/mattn/go-sqlite3" // SQLite (cgo), driver "sqlite3"
	_ "modernc.org/sqlite"          // SQLite (pure Go), driver "sqlite"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// SQLite driver names as registered with database/sql.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "memory", "sqlite", "postgres", "mysql".
	Backend string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// SQLiteDriver is "sqlite" (modernc.org/sqlite) or "sqlite3"
	// (github.com/mattn/go-sqlite3). Default: "sqlite"
	SQLiteDriver string

	// BusyTimeout is how long SQLite waits for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// DSN is the connection string for the postgres and mysql backends.
	DSN string

	// MaxOpenConns, MaxIdleConns and ConnMaxLifetime tune the connection pool
	// of the postgres and mysql backends. SQLite always uses one connection.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open creates the configured backend and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryBackend(), nil
	case BackendSQLite:
		return openSQLite(ctx, cfg)
	case BackendPostgres:
		return openNetworked(ctx, cfg, "postgres", DialectPostgres)
	case BackendMySQL:
		return openNetworked(ctx, cfg, "mysql", DialectMySQL)
	default:
		return nil, fmt.Errorf("unsupported rotation backend: %s", cfg.Backend)
	}
}

func openSQLite(ctx context.Context, cfg Config) (Backend, error) {
	if cfg.SQLitePath == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	driver := cfg.SQLiteDriver
	if driver == "" {
		driver = DriverModernc
	}

	dsn, err := sqliteDSN(driver, cfg.SQLitePath, cfg.BusyTimeout)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return finishOpen(ctx, db, DialectSQLite)
}

// sqliteDSN builds a WAL-mode DSN. The two drivers spell pragmas differently.
func sqliteDSN(driver, path string, busyTimeout time.Duration) (string, error) {
	ms := busyTimeout.Milliseconds()
	switch driver {
	case DriverModernc:
		return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
			path, ms), nil
	case DriverMattn:
		return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
			path, ms), nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver: %s", driver)
	}
}

func openNetworked(ctx context.Context, cfg Config, driver string, dialect Dialect) (Backend, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%s dsn cannot be empty", dialect.Name)
	}

	dsn := cfg.DSN
	if dialect.Name == BackendMySQL {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return finishOpen(ctx, db, dialect)
}

// mysqlDSN normalizes a MySQL DSN. clientFoundRows is forced off so an
// affected-row count of 1 always means the row was written.
func mysqlDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	mc.ClientFoundRows = false
	return mc.FormatDSN(), nil
}

func finishOpen(ctx context.Context, db *sql.DB, dialect Dialect) (Backend, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect.Name, err)
	}

	backend, err := NewSQLBackend(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return backend, nil
}
