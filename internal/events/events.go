// Package events defines the saga's event contract. Every payload is keyed
// by transaction id, which doubles as the idempotency key and the partition
// key for ordered delivery.
package events

import "github.com/fjod/go_checkout/internal/domain"

// Topic names, one per event type. Producers publish with the transaction id
// as the message key so all events of one saga land on the same partition.
const (
	TopicCheckoutInitiated          = "checkout.initiated"
	TopicInventoryReserved          = "inventory.reserved"
	TopicInventoryReservationFailed = "inventory.reservation-failed"
	TopicPaymentSucceeded           = "payment.succeeded"
	TopicPaymentFailed              = "payment.failed"
	TopicOrderCompleted             = "order.completed"
	TopicCheckoutFailed             = "checkout.failed"
)

// Item is the line-item shape carried through the saga. Price is a decimal
// string snapshot; Available is the quantity reported by the availability
// guard at checkout time.
type Item struct {
	ProductID   int64  `json:"product_id"`
	Color       string `json:"color"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	Available   int    `json:"available"`
}

// CheckoutInitiated starts the saga. SelectedItems is nil when the whole
// cart was checked out.
type CheckoutInitiated struct {
	TransactionID   string           `json:"transaction_id"`
	UserID          string           `json:"user_id"`
	Items           []Item           `json:"items"`
	ShippingAddress string           `json:"shipping_address"`
	PaymentMethod   string           `json:"payment_method"`
	SelectedItems   []domain.LineKey `json:"selected_items,omitempty"`
}

type InventoryReserved struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Items         []Item `json:"items"`
}

type InventoryReservationFailed struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Items         []Item `json:"items,omitempty"`
	Reason        string `json:"reason"`
}

type PaymentSucceeded struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	Items         []Item `json:"items"`
}

type PaymentFailed struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
}

type OrderCompleted struct {
	TransactionID string           `json:"transaction_id"`
	UserID        string           `json:"user_id"`
	OrderID       string           `json:"order_id"`
	PaymentID     string           `json:"payment_id"`
	SelectedItems []domain.LineKey `json:"selected_items,omitempty"`
}

type CheckoutFailed struct {
	TransactionID      string           `json:"transaction_id"`
	UserID             string           `json:"user_id"`
	OrderID            string           `json:"order_id"`
	ProductIdentifiers []domain.LineKey `json:"product_identifiers,omitempty"`
	Reason             string           `json:"reason"`
}
