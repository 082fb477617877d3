package order

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/uniform-shop/internal/cart"
	"github.com/vasiliy-maslov/uniform-shop/internal/catalog"
	"github.com/vasiliy-maslov/uniform-shop/internal/db"
	"github.com/vasiliy-maslov/uniform-shop/internal/outbox"
)

type CartStore interface {
	LinesForUser(ctx context.Context, userID uuid.UUID) ([]cart.Line, error)
	ClearForUser(ctx context.Context, userID uuid.UUID) error
}

type CatalogStore interface {
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (int, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *Order) error
	CreateLine(ctx context.Context, line *OrderLine) error
}

type EventStore interface {
	Enqueue(ctx context.Context, event *outbox.Event) error
}

// Stores are the collaborators checkout writes through. Every store handed to
// one Atomic callback shares the same transaction.
type Stores struct {
	Cart    CartStore
	Catalog CatalogStore
	Orders  OrderStore
	Events  EventStore
}

// UnitOfWork runs fn so that either all of its writes persist or none do.
type UnitOfWork interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

type postgresUnitOfWork struct {
	pg *db.Postgres
}

func NewUnitOfWork(pg *db.Postgres) UnitOfWork {
	return &postgresUnitOfWork{pg: pg}
}

func (u *postgresUnitOfWork) Atomic(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	err := u.pg.WithinTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, Stores{
			Cart:    cart.NewRepository(tx),
			Catalog: catalog.NewRepository(tx),
			Orders:  NewRepository(tx),
			Events:  outbox.NewStore(tx),
		})
	})
	if err != nil && !IsBusinessError(err) && db.IsTransient(err) {
		return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
	}
	return err
}
