// Package postgres implements the repository interfaces on PostgreSQL through
// a pgx connection pool. It is selected when DB_URL is a postgres:// URL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the pgx pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// DB wraps a pgx pool and implements repository.Store.
type DB struct {
	pool *pgxpool.Pool
}

// New creates the pool, verifies it with a ping and runs migrations.
func New(ctx context.Context, connString string, opts PoolOptions) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing connection string: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}
	if opts.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.ConnMaxLifetime
	}

	// Drop connections that died while idle instead of handing them to a request.
	poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		return conn.Ping(ctx) == nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return db, nil
}

// Close closes every connection in the pool.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// migrate creates graduates_data if needed. On a table created by an older
// deployment the unique index is added afterwards; that fails (and stops
// startup) if the table already holds duplicate names.
func (db *DB) migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS graduates_data (
			id         SERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			github_url TEXT,
			role       TEXT,
			cv_link    TEXT
		)`)
	if err != nil {
		return fmt.Errorf("creating graduates_data table: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS `+nameUniqueIndex+` ON graduates_data (name)`)
	if err != nil {
		return fmt.Errorf("creating unique index on graduates_data.name: %w", err)
	}

	return nil
}

// withTx runs fn in a transaction, committing if it returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op returning pgx.ErrTxClosed.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: committing transaction: %w", err)
	}
	return nil
}
