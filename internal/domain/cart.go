package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart holds a user's pending items. Version backs the optimistic
// concurrency check in the repository; TransactionID is set only while a
// checkout saga is in flight for this cart.
type Cart struct {
	ID            string     `bson:"_id,omitempty" json:"-"`
	UserID        string     `bson:"user_id" json:"user_id"`
	Items         []CartLine `bson:"items" json:"items"`
	TotalPrice    string     `bson:"total_price" json:"total_price"`
	TransactionID string     `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Version       int64      `bson:"version" json:"version"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
}

// CartLine is one product variant in a cart. (ProductID, Color) is unique
// within a cart. ProductName and UnitPrice are snapshots taken from the
// availability lookup at add-time, not a live join.
type CartLine struct {
	ProductID   int64     `bson:"product_id" json:"product_id"`
	Color       string    `bson:"color" json:"color"`
	ProductName string    `bson:"product_name" json:"product_name"`
	UnitPrice   string    `bson:"unit_price" json:"unit_price"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	AddedAt     time.Time `bson:"added_at" json:"added_at"`
}

// LineKey identifies a cart line for selection and removal.
type LineKey struct {
	ProductID int64  `json:"product_id"`
	Color     string `json:"color"`
}

func NewCart(userID string) *Cart {
	now := time.Now()
	return &Cart{
		UserID:     userID,
		Items:      nil,
		TotalPrice: "0",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Line returns the cart line for the given product and color, or nil.
func (c *Cart) Line(productID int64, color string) *CartLine {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Color == color {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveLine drops the line for the given key. Returns false if no such
// line existed.
func (c *Cart) RemoveLine(productID int64, color string) bool {
	for i, line := range c.Items {
		if line.ProductID == productID && line.Color == color {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// CheckoutPending reports whether a saga is currently in flight for this
// cart. While pending, item mutations are rejected.
func (c *Cart) CheckoutPending() bool {
	return c.TransactionID != ""
}

// RecomputeTotal recalculates TotalPrice from the lines. Prices are kept as
// decimal strings to avoid float drift.
func (c *Cart) RecomputeTotal() error {
	total := decimal.Zero
	for _, line := range c.Items {
		unit, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			return err
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	c.TotalPrice = total.String()
	return nil
}
