package inventory

import (
	"context"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

// Availability is the remote lookup's answer for one product variant.
// UnitPrice is a decimal string.
type Availability struct {
	ProductID   int64  `json:"product_id"`
	Color       string `json:"color"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

// ProductLookup is the remote inventory collaborator. Implementations call
// whatever catalog/stock service is deployed alongside; the guard wraps the
// call in a circuit breaker.
type ProductLookup interface {
	Lookup(ctx context.Context, productID int64, color string) (*Availability, error)
}
