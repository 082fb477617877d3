package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/uniform-shop/internal/db"
)

var ErrProductNotFound = errors.New("product not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// DecrementStock subtracts qty from the product's stock and returns the
	// resulting value, which may be negative. The caller decides whether to
	// keep the write.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT id, school_id, name, image_url, price, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.SchoolID,
		&p.Name,
		&p.ImageURL,
		&p.Price,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	query := `
		UPDATE products
		SET stock = stock - $1, updated_at = now()
		WHERE id = $2
		RETURNING stock
	`

	var remaining int
	err := r.db.QueryRow(ctx, query, qty, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("repository: failed to decrement stock for product %s: %w", id, err)
	}

	return remaining, nil
}
