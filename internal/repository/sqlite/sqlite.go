// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the binary as a single file.
// It is the default store for local development and the store every test runs
// against (":memory:"). Production deployments point DB_URL at Postgres instead.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means a C compiler and painful cross-compilation.
// modernc.org/sqlite is a pure Go translation of SQLite, no C compiler needed.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB:   a connection pool (NOT a single connection!)
//   - sql.Tx:   a transaction, pinned to one connection until Commit/Rollback
//   - sql.Row:  a single result row
//   - sql.Rows: multiple result rows (must be closed!)
//
// Every request borrows a connection from the pool and hands it back when the
// query (or transaction) finishes, so handlers never share one long-lived handle.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// The sqlite driver registers itself with database/sql as "sqlite" in init().
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/graduates.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// IN-MEMORY DATABASES ARE PER-CONNECTION:
	// Each new pooled connection to ":memory:" would see its own empty database,
	// so the pool is pinned to a single connection.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces a real connection so a bad path fails here, not on the first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn appends the per-connection settings to dbPath.
//
// CONNECTION SETTINGS LIVE IN THE DSN:
// A PRAGMA run with conn.Exec only reaches whichever pooled connection ran it.
// The driver applies every _pragma parameter to each connection it opens, so
// all of them get:
//   - busy_timeout(5000): writers wait up to 5s for the lock instead of failing with SQLITE_BUSY
//   - journal_mode(WAL):  readers continue while a write transaction is open
//
// _txlock=immediate makes BeginTx issue BEGIN IMMEDIATE. Insert reads (the name
// check) before it writes; a deferred transaction would have to upgrade its
// lock halfway through, and that upgrade fails at once with SQLITE_BUSY
// instead of waiting. Taking the write lock up front serializes inserts.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the graduates table.
//
// The UNIQUE constraint on name is what actually guarantees uniqueness:
// the existence check in Insert gives a friendly error for the common case,
// the constraint catches two concurrent inserts of the same name.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS graduates_data (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL UNIQUE,
			github_url TEXT,
			role       TEXT,
			cv_link    TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("creating graduates_data table: %w", err)
	}

	return nil
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}
