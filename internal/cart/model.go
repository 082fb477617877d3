package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Line is one (product, size) selection in a user's cart, joined with the
// product's current name, image and price.
type Line struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"-" db:"user_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName string          `json:"name" db:"name"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	UnitPrice   decimal.Decimal `json:"price" db:"price"`
	Size        string          `json:"size" db:"size"`
	Quantity    int             `json:"quantity" db:"quantity"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
