package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(CheckoutStatusInitiated, CheckoutStatusReserved))
	assert.True(t, CanTransitionTo(CheckoutStatusInitiated, CheckoutStatusFailed))
	assert.True(t, CanTransitionTo(CheckoutStatusReserved, CheckoutStatusCompleted))
	assert.True(t, CanTransitionTo(CheckoutStatusReserved, CheckoutStatusFailed))
	assert.True(t, CanTransitionTo(CheckoutStatusPaymentPending, CheckoutStatusCompleted))

	// No skipping ahead or moving backwards.
	assert.False(t, CanTransitionTo(CheckoutStatusInitiated, CheckoutStatusCompleted))
	assert.False(t, CanTransitionTo(CheckoutStatusReserved, CheckoutStatusInitiated))
}

func TestCanTransitionTo_TerminalStatesAreFinal(t *testing.T) {
	for _, next := range []CheckoutStatus{
		CheckoutStatusInitiated, CheckoutStatusReserved,
		CheckoutStatusCompleted, CheckoutStatusFailed,
	} {
		assert.False(t, CanTransitionTo(CheckoutStatusCompleted, next))
		assert.False(t, CanTransitionTo(CheckoutStatusFailed, next))
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, CheckoutStatusCompleted.IsTerminal())
	assert.True(t, CheckoutStatusFailed.IsTerminal())
	assert.False(t, CheckoutStatusInitiated.IsTerminal())
	assert.False(t, CheckoutStatusReserved.IsTerminal())
	assert.False(t, CheckoutStatusPaymentPending.IsTerminal())
}
