package domain

import (
	"time"

	"github.com/google/uuid"
)

// orderNamespace scopes order ids derived from transaction ids.
var orderNamespace = uuid.MustParse("9b2f1c1e-3a84-4a6f-9d35-6c1b7a20f4d1")

// OrderIDFor derives the order id for a transaction deterministically, so
// that every consumer of the same CheckoutInitiated event (including a
// duplicate delivery) agrees on the reservation and order keys without a
// coordination round-trip.
func OrderIDFor(transactionID string) string {
	return uuid.NewSHA1(orderNamespace, []byte(transactionID)).String()
}

// OrderLine is a checked-out item as recorded on the order.
type OrderLine struct {
	ProductID   int64  `json:"product_id"`
	Color       string `json:"color"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

// Order tracks one checkout saga from the finalizer's point of view.
type Order struct {
	ID              string
	TransactionID   string
	UserID          string
	Status          CheckoutStatus
	Items           []OrderLine
	SelectedItems   []LineKey
	ShippingAddress string
	PaymentMethod   string
	PaymentID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
