package order_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/uniform-shop/internal/cart"
	"github.com/vasiliy-maslov/uniform-shop/internal/catalog"
	"github.com/vasiliy-maslov/uniform-shop/internal/order"
	"github.com/vasiliy-maslov/uniform-shop/internal/outbox"
)

type memProduct struct {
	Name     string
	ImageURL string
	Price    decimal.Decimal
	Stock    int
}

type memState struct {
	products map[uuid.UUID]memProduct
	cart     []cart.Line
	orders   []order.Order
	lines    []order.OrderLine
	events   []outbox.Event
}

func (s *memState) clone() *memState {
	c := &memState{
		products: make(map[uuid.UUID]memProduct, len(s.products)),
		cart:     append([]cart.Line(nil), s.cart...),
		orders:   append([]order.Order(nil), s.orders...),
		lines:    append([]order.OrderLine(nil), s.lines...),
		events:   append([]outbox.Event(nil), s.events...),
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	return c
}

// memShop is an in-memory unit of work: Atomic runs on a private copy of the
// state and swaps it in only when the callback succeeds. The mutex is held for
// the whole callback, so concurrent checkouts are serialized the way row locks
// serialize them in Postgres.
type memShop struct {
	mu         sync.Mutex
	state      *memState
	decrements []uuid.UUID
	enqueueErr error
}

func newMemShop() *memShop {
	return &memShop{state: &memState{products: make(map[uuid.UUID]memProduct)}}
}

func (m *memShop) addProduct(name, price string, stock int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.Must(uuid.NewV4())
	m.state.products[id] = memProduct{
		Name:     name,
		ImageURL: "/img/" + name + ".png",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	return id
}

func (m *memShop) setPrice(id uuid.UUID, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.state.products[id]
	p.Price = decimal.RequireFromString(price)
	m.state.products[id] = p
}

func (m *memShop) deleteProduct(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.products, id)
}

func (m *memShop) addToCart(userID, productID uuid.UUID, size string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := m.state.products[productID].Name
	m.state.cart = append(m.state.cart, cart.Line{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      userID,
		ProductID:   productID,
		ProductName: name,
		Size:        size,
		Quantity:    qty,
	})
}

func (m *memShop) stock() map[uuid.UUID]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]int, len(m.state.products))
	for id, p := range m.state.products {
		out[id] = p.Stock
	}
	return out
}

func (m *memShop) cartSize(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.state.cart {
		if l.UserID == userID {
			n++
		}
	}
	return n
}

func (m *memShop) counts() (orders, lines, events int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders), len(m.state.lines), len(m.state.events)
}

func (m *memShop) Atomic(ctx context.Context, fn func(ctx context.Context, stores order.Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{state: m.state.clone(), shop: m}
	if err := fn(ctx, order.Stores{Cart: tx, Catalog: tx, Orders: tx, Events: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

// memTx implements every store over one uncommitted state copy.
type memTx struct {
	state *memState
	shop  *memShop
}

func (tx *memTx) LinesForUser(_ context.Context, userID uuid.UUID) ([]cart.Line, error) {
	lines := make([]cart.Line, 0)
	for _, l := range tx.state.cart {
		if l.UserID != userID {
			continue
		}
		if p, ok := tx.state.products[l.ProductID]; ok {
			l.ProductName = p.Name
			l.ImageURL = p.ImageURL
			l.UnitPrice = p.Price
		}
		lines = append(lines, l)
	}
	// Reverse insertion order so the engine's own sorting is exercised.
	slices.Reverse(lines)
	return lines, nil
}

func (tx *memTx) ClearForUser(_ context.Context, userID uuid.UUID) error {
	kept := tx.state.cart[:0:0]
	for _, l := range tx.state.cart {
		if l.UserID != userID {
			kept = append(kept, l)
		}
	}
	tx.state.cart = kept
	return nil
}

func (tx *memTx) DecrementStock(_ context.Context, productID uuid.UUID, qty int) (int, error) {
	p, ok := tx.state.products[productID]
	if !ok {
		return 0, catalog.ErrProductNotFound
	}
	tx.shop.decrements = append(tx.shop.decrements, productID)
	p.Stock -= qty
	tx.state.products[productID] = p
	return p.Stock, nil
}

func (tx *memTx) CreateOrder(_ context.Context, o *order.Order) error {
	o.ID = uuid.Must(uuid.NewV4())
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	tx.state.orders = append(tx.state.orders, *o)
	return nil
}

func (tx *memTx) CreateLine(_ context.Context, line *order.OrderLine) error {
	if _, ok := tx.state.products[line.ProductID]; !ok {
		return catalog.ErrProductNotFound
	}
	line.ID = uuid.Must(uuid.NewV4())
	line.CreatedAt = time.Now().UTC()
	tx.state.lines = append(tx.state.lines, *line)
	return nil
}

func (tx *memTx) Enqueue(_ context.Context, event *outbox.Event) error {
	if tx.shop.enqueueErr != nil {
		return tx.shop.enqueueErr
	}
	event.ID = int64(len(tx.state.events) + 1)
	tx.state.events = append(tx.state.events, *event)
	return nil
}

// The committed state also serves the read paths.

func (m *memShop) CreateOrder(ctx context.Context, o *order.Order) error {
	return m.Atomic(ctx, func(ctx context.Context, s order.Stores) error { return s.Orders.CreateOrder(ctx, o) })
}

func (m *memShop) CreateLine(ctx context.Context, line *order.OrderLine) error {
	return m.Atomic(ctx, func(ctx context.Context, s order.Stores) error { return s.Orders.CreateLine(ctx, line) })
}

func (m *memShop) GetOrderByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.state.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (m *memShop) GetOrdersByUserID(_ context.Context, userID uuid.UUID) ([]order.OrderWithLines, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]order.OrderWithLines, 0)
	for i := len(m.state.orders) - 1; i >= 0; i-- {
		o := m.state.orders[i]
		if o.UserID != userID {
			continue
		}
		out = append(out, order.OrderWithLines{Order: o, Lines: m.detailLocked(o.ID)})
	}
	return out, nil
}

func (m *memShop) GetOrderLines(_ context.Context, userID, orderID uuid.UUID) ([]order.LineDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.state.orders {
		if o.ID == orderID && o.UserID == userID {
			return m.detailLocked(orderID), nil
		}
	}
	return []order.LineDetail{}, nil
}

func (m *memShop) detailLocked(orderID uuid.UUID) []order.LineDetail {
	out := make([]order.LineDetail, 0)
	for _, l := range m.state.lines {
		if l.OrderID != orderID {
			continue
		}
		p := m.state.products[l.ProductID]
		out = append(out, order.LineDetail{
			ProductID: l.ProductID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Price:     l.PriceAtPurchase,
		})
	}
	return out
}

func (m *memShop) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, from, to order.Status) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.state.orders {
		if o.ID == orderID && o.Status == from {
			m.state.orders[i].Status = to
			m.state.orders[i].UpdatedAt = time.Now().UTC()
			updated := m.state.orders[i]
			return &updated, nil
		}
	}
	return nil, order.ErrStatusConflict
}

func (m *memShop) ListAllOrders(_ context.Context) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]order.Order, 0, len(m.state.orders))
	for i := len(m.state.orders) - 1; i >= 0; i-- {
		out = append(out, m.state.orders[i])
	}
	return out, nil
}
