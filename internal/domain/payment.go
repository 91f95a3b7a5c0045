package domain

import "time"

// PaymentStatus represents the state of a payment capture attempt.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment records one capture attempt per transaction. TransactionID is the
// idempotency key: at most one row exists per transaction, and reprocessing
// a request for an existing row replays its recorded outcome instead of
// charging again.
type Payment struct {
	TransactionID string
	OrderID       string
	PaymentID     string
	Amount        string
	Status        PaymentStatus
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
