package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect holds the SQL text that differs between database engines.
type Dialect struct {
	// Name is the backend name reported by SQLBackend.Name.
	Name string

	// Schema creates the rotation_state table if it does not exist.
	Schema string

	// InsertIfAbsent creates the row for a key with version 1.
	// Args: key, next_index, updated_at. Affects 0 rows if the key exists.
	InsertIfAbsent string

	// numbered rewrites "?" placeholders to "$1", "$2", ...
	numbered bool
}

var (
	// DialectSQLite targets SQLite through modernc.org/sqlite or mattn/go-sqlite3.
	DialectSQLite = Dialect{
		Name: BackendSQLite,
		Schema: `
	CREATE TABLE IF NOT EXISTS rotation_state (
		name TEXT NOT NULL PRIMARY KEY,
		next_index INTEGER NOT NULL,
		version INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
		InsertIfAbsent: `
		INSERT INTO rotation_state (name, next_index, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (name) DO NOTHING`,
	}

	// DialectPostgres targets PostgreSQL through github.com/lib/pq.
	DialectPostgres = Dialect{
		Name: BackendPostgres,
		Schema: `
	CREATE TABLE IF NOT EXISTS rotation_state (
		name TEXT NOT NULL PRIMARY KEY,
		next_index BIGINT NOT NULL,
		version BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
		InsertIfAbsent: `
		INSERT INTO rotation_state (name, next_index, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (name) DO NOTHING`,
		numbered: true,
	}

	// DialectMySQL targets MySQL and MariaDB through github.com/go-sql-driver/mysql.
	DialectMySQL = Dialect{
		Name: BackendMySQL,
		Schema: `
	CREATE TABLE IF NOT EXISTS rotation_state (
		name VARCHAR(191) NOT NULL PRIMARY KEY,
		next_index BIGINT NOT NULL,
		version BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
		// The no-op update reports 0 affected rows for an existing key, as
		// long as the connection does not set clientFoundRows (see mysqlDSN).
		InsertIfAbsent: `
		INSERT INTO rotation_state (name, next_index, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON DUPLICATE KEY UPDATE name = name`,
	}
)

const (
	loadQuery = `
		SELECT next_index, version, updated_at
		FROM rotation_state
		WHERE name = ?`

	updateQuery = `
		UPDATE rotation_state
		SET next_index = ?, version = version + 1, updated_at = ?
		WHERE name = ? AND version = ?`
)

// DialectFor returns the dialect for a backend name.
func DialectFor(backend string) (Dialect, error) {
	switch backend {
	case BackendSQLite:
		return DialectSQLite, nil
	case BackendPostgres:
		return DialectPostgres, nil
	case BackendMySQL:
		return DialectMySQL, nil
	default:
		return Dialect{}, fmt.Errorf("no SQL dialect for backend %q", backend)
	}
}

// rebind converts "?" placeholders for dialects that use numbered parameters.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
