package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// InitialStatus is the status every new order starts in. It is fixed for the
// whole process: Paid when payment is captured before checkout.
func InitialStatus(paymentCaptured bool) Status {
	if paymentCaptured {
		return StatusPaid
	}
	return StatusPending
}

type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      Status          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderWithLines is an order as shown in the user's history.
type OrderWithLines struct {
	Order
	Lines []LineDetail `json:"items"`
}

// OrderLine is the stored, price-frozen row written at checkout.
type OrderLine struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID       uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	Size            string          `json:"size" db:"size"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" db:"price_at_purchase"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// LineDetail is an order line joined with the product's display fields.
// Price is the frozen purchase price, never the current catalog price.
type LineDetail struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Price     decimal.Decimal `json:"price"`
}

type Receipt struct {
	OrderID uuid.UUID       `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

const EventOrderPlaced = "order.placed"

// PlacedEvent is the outbox payload written with every committed order.
type PlacedEvent struct {
	Type     string          `json:"type"`
	OrderID  uuid.UUID       `json:"order_id"`
	UserID   uuid.UUID       `json:"user_id"`
	Total    decimal.Decimal `json:"total"`
	Status   Status          `json:"status"`
	Lines    []PlacedLine    `json:"lines"`
	PlacedAt time.Time       `json:"placed_at"`
}

type PlacedLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
