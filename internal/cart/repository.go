package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/uniform-shop/internal/db"
)

var (
	ErrLineNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrSizeRequired    = errors.New("size is required")
)

type Repository interface {
	// Add inserts the line or, when (user, product, size) already exists,
	// increases its quantity. It returns the stored row.
	Add(ctx context.Context, line *Line) (*Line, error)
	// LinesForUser returns the user's lines with live product data, ordered
	// by product id.
	LinesForUser(ctx context.Context, userID uuid.UUID) ([]Line, error)
	Remove(ctx context.Context, userID, lineID uuid.UUID) error
	ClearForUser(ctx context.Context, userID uuid.UUID) error
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

func (r *postgresRepository) Add(ctx context.Context, line *Line) (*Line, error) {
	id := line.ID
	if id == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("repository: failed to generate cart item ID: %w", err)
		}
		id = genID
	}

	query := `
		WITH upserted AS (
			INSERT INTO cart_items (id, user_id, product_id, size, quantity)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, product_id, size)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			RETURNING id, user_id, product_id, size, quantity, created_at
		)
		SELECT u.id, u.user_id, u.product_id, p.name, p.image_url, p.price, u.size, u.quantity, u.created_at
		FROM upserted u
		JOIN products p ON p.id = u.product_id
	`

	var stored Line
	err := r.db.QueryRow(ctx, query, id, line.UserID, line.ProductID, line.Size, line.Quantity).Scan(
		&stored.ID,
		&stored.UserID,
		&stored.ProductID,
		&stored.ProductName,
		&stored.ImageURL,
		&stored.UnitPrice,
		&stored.Size,
		&stored.Quantity,
		&stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to upsert cart item for user %s: %w", line.UserID, err)
	}

	return &stored, nil
}

func (r *postgresRepository) LinesForUser(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, p.name, p.image_url, p.price, c.size, c.quantity, c.created_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.product_id, c.size
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart for user %s: %w", userID, err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var l Line
		if err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.ProductID,
			&l.ProductName,
			&l.ImageURL,
			&l.UnitPrice,
			&l.Size,
			&l.Quantity,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for user %s: %w", userID, err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart for user %s: %w", userID, err)
	}

	return lines, nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", lineID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *postgresRepository) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %s: %w", userID, err)
	}
	return nil
}
