package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sakif/graduate-showcase/internal/apperror"
	"github.com/sakif/graduate-showcase/internal/model"
	"github.com/sakif/graduate-showcase/internal/repository"
)

var _ repository.Store = (*DB)(nil)

const (
	nameUniqueIndex = "graduates_data_name_key"

	insertGraduateReturnID = `INSERT INTO graduates_data (name, github_url, role, cv_link)
		 VALUES ($1, $2, $3, $4) RETURNING id`
	graduateNameExists = `SELECT 1 FROM graduates_data WHERE name = $1 LIMIT 1`
	listGraduates      = `SELECT id, name, COALESCE(github_url, ''), COALESCE(role, ''), COALESCE(cv_link, '')
		 FROM graduates_data ORDER BY id`
	graduateIDByName = `SELECT id FROM graduates_data WHERE name = $1 ORDER BY id LIMIT 1`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Insert checks the name and inserts the row in one transaction. A concurrent
// insert of the same name that slips past the check hits the unique index
// (SQLSTATE 23505) and is reported as a conflict as well.
func (db *DB) Insert(ctx context.Context, g *model.Graduate) error {
	var id int64
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		exists, err := existsByName(ctx, tx, g.Name)
		if err != nil {
			return err
		}
		if exists {
			return apperror.Conflict("Graduate", g.Name)
		}

		return tx.QueryRow(ctx, insertGraduateReturnID,
			g.Name, g.GitHubURL, g.Role, g.CVLink,
		).Scan(&id)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Graduate", g.Name)
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("postgres: inserting graduate %q: %w", g.Name, err)
	}

	g.ID = id
	return nil
}

func (db *DB) ExistsByName(ctx context.Context, name string) (bool, error) {
	return existsByName(ctx, db.pool, name)
}

func existsByName(ctx context.Context, q querier, name string) (bool, error) {
	var one int
	err := q.QueryRow(ctx, graduateNameExists, name).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("postgres: checking graduate %q: %w", name, err)
	}
	return true, nil
}

func (db *DB) List(ctx context.Context) ([]model.Graduate, error) {
	rows, err := db.pool.Query(ctx, listGraduates)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing graduates: %w", err)
	}
	defer rows.Close()

	graduates := make([]model.Graduate, 0)
	for rows.Next() {
		var g model.Graduate
		if err := rows.Scan(&g.ID, &g.Name, &g.GitHubURL, &g.Role, &g.CVLink); err != nil {
			return nil, fmt.Errorf("postgres: scanning graduate row: %w", err)
		}
		graduates = append(graduates, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating graduates: %w", err)
	}

	return graduates, nil
}

func (db *DB) IDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, graduateIDByName, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.NotFound("graduate", "name", name)
		}
		return 0, fmt.Errorf("postgres: looking up graduate %q: %w", name, err)
	}
	return id, nil
}

// isUniqueViolation reports whether err is a unique_violation on the name index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == nameUniqueIndex
}
