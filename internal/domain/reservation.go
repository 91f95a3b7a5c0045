package domain

import "time"

// ReservationStatus represents the state of a stock reservation.
type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "RESERVED"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation is a provisional hold on inventory quantity, keyed by
// (OrderID, ProductID, Color). It is confirmed or cancelled depending on
// the saga outcome, or reclaimed by an external expiry sweep.
type Reservation struct {
	OrderID   string
	ProductID int64
	Color     string
	Quantity  int
	Status    ReservationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the reservation is past its expiry.
func (r *Reservation) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}
