package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/uniform-shop/internal/cart"
	"github.com/vasiliy-maslov/uniform-shop/internal/catalog"
	"github.com/vasiliy-maslov/uniform-shop/internal/outbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/vasiliy-maslov/uniform-shop/internal/order")

// Pending and Paid orders can only move to Shipped; Delivered is final.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusShipped: true,
	},
	StatusPaid: {
		StatusShipped: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
}

type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*Receipt, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]OrderWithLines, error)
	GetOrderDetail(ctx context.Context, userID, orderID uuid.UUID) ([]LineDetail, error)
	ListAllOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) (*Order, error)
}

type Options struct {
	InitialStatus   Status
	CheckoutTimeout time.Duration
	EventTopic      string
}

type service struct {
	uow       UnitOfWork
	orderRepo Repository
	cache     LineCache
	opts      Options
}

// NewService wires the checkout engine. cache may be nil.
func NewService(uow UnitOfWork, orderRepo Repository, cache LineCache, opts Options) Service {
	if cache == nil {
		cache = noopLineCache{}
	}
	if opts.InitialStatus == "" {
		opts.InitialStatus = StatusPaid
	}
	if opts.EventTopic == "" {
		opts.EventTopic = "orders.placed"
	}
	return &service{uow: uow, orderRepo: orderRepo, cache: cache, opts: opts}
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "order.Checkout", trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	if s.opts.CheckoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CheckoutTimeout)
		defer cancel()
	}

	var receipt *Receipt
	err := s.uow.Atomic(ctx, func(ctx context.Context, stores Stores) error {
		r, err := s.placeOrder(ctx, stores, userID)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		return nil, s.checkoutError(ctx, userID, err)
	}

	span.SetAttributes(attribute.String("order.id", receipt.OrderID.String()))
	log.Info().
		Stringer("order_id", receipt.OrderID).
		Stringer("user_id", userID).
		Str("total", receipt.Total.StringFixed(2)).
		Msg("service: order placed")

	return receipt, nil
}

func (s *service) checkoutError(ctx context.Context, userID uuid.UUID, err error) error {
	if IsBusinessError(err) {
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: checkout rejected")
		return err
	}
	if errors.Is(err, ErrTransactionFailure) {
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: checkout transaction aborted")
		return err
	}
	if ctx.Err() != nil {
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: checkout deadline exceeded")
		return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
	}
	log.Error().Err(err).Stringer("user_id", userID).Msg("service: checkout failed")
	return fmt.Errorf("service: checkout failed: %w", err)
}

// placeOrder is the body of the checkout unit of work. Any error it returns
// discards every write it made.
func (s *service) placeOrder(ctx context.Context, stores Stores, userID uuid.UUID) (*Receipt, error) {
	lines, err := stores.Cart.LinesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Row locks on products are taken in product id order.
	slices.SortStableFunc(lines, func(a, b cart.Line) int {
		if c := bytes.Compare(a.ProductID.Bytes(), b.ProductID.Bytes()); c != 0 {
			return c
		}
		return strings.Compare(a.Size, b.Size)
	})

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	total = total.Round(2)

	order := &Order{
		UserID:      userID,
		TotalAmount: total,
		Status:      s.opts.InitialStatus,
	}
	if err := stores.Orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	placed := make([]PlacedLine, 0, len(lines))
	for _, l := range lines {
		line := &OrderLine{
			OrderID:         order.ID,
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			Size:            l.Size,
			PriceAtPurchase: l.UnitPrice,
		}
		if err := stores.Orders.CreateLine(ctx, line); err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, &ProductNotFoundError{ProductID: l.ProductID, Name: l.ProductName}
			}
			return nil, fmt.Errorf("service: failed to create order line: %w", err)
		}

		remaining, err := stores.Catalog.DecrementStock(ctx, l.ProductID, l.Quantity)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, &ProductNotFoundError{ProductID: l.ProductID, Name: l.ProductName}
			}
			return nil, fmt.Errorf("service: failed to decrement stock: %w", err)
		}
		if remaining < 0 {
			return nil, &InsufficientStockError{
				ProductID: l.ProductID,
				Name:      l.ProductName,
				Available: max(l.Quantity+remaining, 0),
			}
		}

		placed = append(placed, PlacedLine{
			ProductID: l.ProductID,
			Size:      l.Size,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		})
	}

	event, err := outbox.NewEvent(s.opts.EventTopic, order.ID.String(), PlacedEvent{
		Type:     EventOrderPlaced,
		OrderID:  order.ID,
		UserID:   userID,
		Total:    total,
		Status:   order.Status,
		Lines:    placed,
		PlacedAt: order.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if err := stores.Events.Enqueue(ctx, event); err != nil {
		return nil, fmt.Errorf("service: failed to enqueue order event: %w", err)
	}

	if err := stores.Cart.ClearForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("service: failed to clear cart: %w", err)
	}

	return &Receipt{OrderID: order.ID, Total: total}, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]OrderWithLines, error) {
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}

	return orders, nil
}

func (s *service) GetOrderDetail(ctx context.Context, userID, orderID uuid.UUID) ([]LineDetail, error) {
	if lines, ok := s.cache.Get(ctx, userID, orderID); ok {
		return lines, nil
	}

	lines, err := s.orderRepo.GetOrderLines(ctx, userID, orderID)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order lines in repository")
		return nil, fmt.Errorf("service: failed to fetch order lines: %w", err)
	}
	if len(lines) == 0 {
		log.Warn().Stringer("order_id", orderID).Stringer("user_id", userID).Msg("service: order not found")
		return nil, ErrOrderNotFound
	}

	s.cache.Set(ctx, userID, orderID, lines)
	return lines, nil
}

func (s *service) ListAllOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.orderRepo.ListAllOrders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch all orders in repository")
		return nil, fmt.Errorf("service: failed to fetch all orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) (*Order, error) {
	if _, err := ParseStatus(string(newStatus)); err != nil {
		return nil, err
	}

	currentOrder, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to get order for status update")
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if currentOrder.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return currentOrder, nil
	}

	if !allowedTransitions[currentOrder.Status][newStatus] {
		log.Warn().
			Stringer("order_id", currentOrder.ID).
			Stringer("current_status", currentOrder.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidStatusTransition, currentOrder.Status, newStatus)
	}

	updated, err := s.orderRepo.UpdateOrderStatus(ctx, orderID, currentOrder.Status, newStatus)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrStatusConflict
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("old_status", currentOrder.Status).Stringer("new_status", newStatus).Msg("service: order status updated successfully")
	return updated, nil
}
