package repository

import (
	"context"

	"github.com/sakif/graduate-showcase/internal/model"
)

type GraduateRepository interface {
	// Insert checks the name and inserts the row in one transaction,
	// setting g.ID from the id the store generated.
	Insert(ctx context.Context, g *model.Graduate) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]model.Graduate, error)
	IDByName(ctx context.Context, name string) (int64, error)
}

// Store is a GraduateRepository that owns a connection pool.
type Store interface {
	GraduateRepository
	Close() error
}
