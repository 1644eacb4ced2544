/*
Package sqlite provides the durable SQLite storage backend.

PURPOSE:
  One DB value implements every store interface in the system (users,
  coins, goals, tasks, shop) over a single database file. Schema is
  managed by embedded goose migrations applied at open time.

CONVENTIONS:
  - Foreign keys on; goal children cascade with the goal row
  - WAL journal for concurrent readers
  - Timestamps stored as DATETIME, calendar dates as YYYY-MM-DD text
  - Goal executor lists and metadata stored as JSON columns; condition
    weights stored as decimal strings to avoid float drift
*/
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/ironborrus-star/familycoins/family"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB is the SQLite-backed store.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies
// pending migrations. Use ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// churn under concurrent service calls.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// =============================================================================
// SCAN / BIND HELPERS
// =============================================================================

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan funcs.
type rowScanner interface {
	Scan(dest ...any) error
}

// dateValue binds a family.Date; zero dates bind NULL.
func dateValue(d family.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

// scanDate parses a nullable YYYY-MM-DD column.
func scanDate(ns sql.NullString) (family.Date, error) {
	if !ns.Valid || ns.String == "" {
		return family.Date{}, nil
	}
	return family.ParseDate(ns.String)
}

// timeValue binds an optional timestamp; nil binds NULL.
func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// scanTimePtr converts a nullable timestamp column.
func scanTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
