package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIDFor_Deterministic(t *testing.T) {
	first := OrderIDFor("tx-abc")
	second := OrderIDFor("tx-abc")
	assert.Equal(t, first, second)

	_, err := uuid.Parse(first)
	require.NoError(t, err)
}

func TestOrderIDFor_DistinctTransactions(t *testing.T) {
	assert.NotEqual(t, OrderIDFor("tx-1"), OrderIDFor("tx-2"))
}
