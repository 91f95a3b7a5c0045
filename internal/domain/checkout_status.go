package domain

// CheckoutStatus is the per-transaction saga state tracked by the order
// finalizer. Terminal states are COMPLETED and FAILED.
type CheckoutStatus string

const (
	CheckoutStatusInitiated      CheckoutStatus = "INITIATED"
	CheckoutStatusReserved       CheckoutStatus = "RESERVED"
	CheckoutStatusPaymentPending CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusCompleted      CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed         CheckoutStatus = "FAILED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated:      {CheckoutStatusReserved, CheckoutStatusFailed},
	CheckoutStatusReserved:       {CheckoutStatusPaymentPending, CheckoutStatusCompleted, CheckoutStatusFailed},
	CheckoutStatusPaymentPending: {CheckoutStatusCompleted, CheckoutStatusFailed},
}

// CanTransitionTo reports whether moving from s to next is a legal saga
// transition. Terminal states allow no further moves.
func CanTransitionTo(s, next CheckoutStatus) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
