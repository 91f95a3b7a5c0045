package payment

import "context"

// ChargeRequest is what the gateway needs to capture a payment. The
// transaction id is forwarded so gateways that support idempotency keys can
// deduplicate on their side too.
type ChargeRequest struct {
	TransactionID string
	OrderID       string
	Amount        string
}

// Gateway is the payment collaborator. A returned error means the charge
// did not happen; the processor records it as a FAILED payment.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (paymentID string, err error)
}
