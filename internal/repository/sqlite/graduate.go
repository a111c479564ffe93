package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/graduate-showcase/internal/apperror"
	"github.com/sakif/graduate-showcase/internal/model"
	"github.com/sakif/graduate-showcase/internal/repository"
)

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

const (
	insertGraduateReturnID = `INSERT INTO graduates_data (name, github_url, role, cv_link)
		 VALUES (?, ?, ?, ?) RETURNING id`
	graduateNameExists = `SELECT 1 FROM graduates_data WHERE name = ? LIMIT 1`
	listGraduates      = `SELECT id, name, COALESCE(github_url, ''), COALESCE(role, ''), COALESCE(cv_link, '')
		 FROM graduates_data ORDER BY id`
	graduateIDByName = `SELECT id FROM graduates_data WHERE name = ? ORDER BY id LIMIT 1`
)

// querier is satisfied by both *sql.DB and *sql.Tx, so the existence check
// can run inside or outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Insert adds a graduate and sets g.ID to the generated id.
//
// TRANSACTION:
// The existence check and the INSERT run on the same transaction. If any step
// fails, the deferred Rollback undoes it; after a successful Commit the
// deferred Rollback is a no-op (it returns sql.ErrTxDone, which we ignore).
// The DSN sets _txlock=immediate, so BeginTx holds the write lock before the
// check runs and concurrent inserts queue behind it (see dsn in sqlite.go).
//
// RETURNING id hands the new id straight back, with no second SELECT by name.
func (db *DB) Insert(ctx context.Context, g *model.Graduate) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning insert transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := existsByName(ctx, tx, g.Name)
	if err != nil {
		return err
	}
	if exists {
		return apperror.Conflict("Graduate", g.Name)
	}

	var id int64
	err = tx.QueryRowContext(ctx, insertGraduateReturnID,
		g.Name,
		g.GitHubURL,
		g.Role,
		g.CVLink,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Graduate", g.Name)
		}
		return fmt.Errorf("sqlite: inserting graduate %q: %w", g.Name, err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Graduate", g.Name)
		}
		return fmt.Errorf("sqlite: committing graduate %q: %w", g.Name, err)
	}

	g.ID = id
	return nil
}

// ExistsByName reports whether at least one graduate has the given name.
func (db *DB) ExistsByName(ctx context.Context, name string) (bool, error) {
	return existsByName(ctx, db.conn, name)
}

func existsByName(ctx context.Context, q querier, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, graduateNameExists, name).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sqlite: checking graduate %q: %w", name, err)
	}
	return true, nil
}

// List returns every graduate ordered by id. An empty table gives an empty,
// non-nil slice so it encodes as [] rather than null.
func (db *DB) List(ctx context.Context) ([]model.Graduate, error) {
	rows, err := db.conn.QueryContext(ctx, listGraduates)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing graduates: %w", err)
	}
	defer rows.Close()

	graduates := make([]model.Graduate, 0)
	for rows.Next() {
		var g model.Graduate
		if err := rows.Scan(&g.ID, &g.Name, &g.GitHubURL, &g.Role, &g.CVLink); err != nil {
			return nil, fmt.Errorf("sqlite: scanning graduate row: %w", err)
		}
		graduates = append(graduates, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating graduates: %w", err)
	}

	return graduates, nil
}

// IDByName returns the id of the first graduate with the given name.
// Returns apperror.ErrNotFound if there is none.
func (db *DB) IDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, graduateIDByName, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("graduate", "name", name)
		}
		return 0, fmt.Errorf("sqlite: looking up graduate %q: %w", name, err)
	}
	return id, nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedrv.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
