package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/uniform-shop/internal/catalog"
	"github.com/vasiliy-maslov/uniform-shop/internal/db"
)

type Repository interface {
	CreateOrder(ctx context.Context, order *Order) error
	// CreateLine returns catalog.ErrProductNotFound when the product row is gone.
	CreateLine(ctx context.Context, line *OrderLine) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]OrderWithLines, error)
	// GetOrderLines returns the lines of one of userID's orders; an order owned
	// by someone else yields no lines.
	GetOrderLines(ctx context.Context, userID, orderID uuid.UUID) ([]LineDetail, error)
	// UpdateOrderStatus sets the status only while it still equals from and
	// returns ErrStatusConflict otherwise.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to Status) (*Order, error)
	ListAllOrders(ctx context.Context) ([]Order, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

func (r *postgresRepository) CreateOrder(ctx context.Context, order *Order) error {
	if order.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			log.Error().Err(err).Msg("repository: failed to generate order ID")
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		order.ID = genID
	}

	query := `
		INSERT INTO orders (id, user_id, total_amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, order.ID, order.UserID, order.TotalAmount, string(order.Status)).
		Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	return nil
}

func (r *postgresRepository) CreateLine(ctx context.Context, line *OrderLine) error {
	if line.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		line.ID = genID
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, size, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		line.ID,
		line.OrderID,
		line.ProductID,
		line.Quantity,
		line.Size,
		line.PriceAtPurchase,
	).Scan(&line.CreatedAt)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return catalog.ErrProductNotFound
		}
		return fmt.Errorf("repository: failed to insert order item for order %s: %w", line.OrderID, err)
	}

	return nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	return order, nil
}

func (r *postgresRepository) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]OrderWithLines, error) {
	userOrdersQuery := `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`

	orderRows, err := r.db.Query(ctx, userOrdersQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user id %s: %w", userID, err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*OrderWithLines)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		o, err := scanOrder(orderRows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed scan order for user id %s: %w", userID, err)
		}
		ordersMap[o.ID] = &OrderWithLines{Order: *o, Lines: make([]LineDetail, 0)}
		orderIDs = append(orderIDs, o.ID)
	}

	if err = orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders for user id %s: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return []OrderWithLines{}, nil
	}

	userOrderItemsQuery := `
		SELECT oi.order_id, oi.product_id, p.name, p.image_url, oi.quantity, oi.size, oi.price_at_purchase
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.created_at, oi.id
	`
	itemRows, err := r.db.Query(ctx, userOrderItemsQuery, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for user id %s: %w", userID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID uuid.UUID
		var line LineDetail
		err := itemRows.Scan(
			&orderID,
			&line.ProductID,
			&line.Name,
			&line.ImageURL,
			&line.Quantity,
			&line.Size,
			&line.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for user id %s: %w", userID, err)
		}

		if o, ok := ordersMap[orderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}

	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating order items by user id %s: %w", userID, err)
	}

	result := make([]OrderWithLines, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}

	return result, nil
}

func (r *postgresRepository) GetOrderLines(ctx context.Context, userID, orderID uuid.UUID) ([]LineDetail, error) {
	query := `
		SELECT oi.product_id, p.name, p.image_url, oi.quantity, oi.size, oi.price_at_purchase
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1 AND o.user_id = $2
		ORDER BY oi.created_at, oi.id
	`

	rows, err := r.db.Query(ctx, query, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order id %s: %w", orderID, err)
	}
	defer rows.Close()

	lines := make([]LineDetail, 0)
	for rows.Next() {
		var line LineDetail
		if err := rows.Scan(
			&line.ProductID,
			&line.Name,
			&line.ImageURL,
			&line.Quantity,
			&line.Size,
			&line.Price,
		); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order id %s: %w", orderID, err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order id %s: %w", orderID, err)
	}

	return lines, nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to Status) (*Order, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING id, user_id, total_amount, status, created_at, updated_at
	`

	order, err := scanOrder(r.db.QueryRow(ctx, query, string(to), orderID, string(from)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Stringer("order_id", orderID).Stringer("expected_status", from).Msg("repository: order status changed before update")
			return nil, ErrStatusConflict
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", to).Msg("repository: failed to update order status")
		return nil, fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}

	return order, nil
}

func (r *postgresRepository) ListAllOrders(ctx context.Context) ([]Order, error) {
	query := `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query all orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}
