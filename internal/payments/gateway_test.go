package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGatewayRoundTrip(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	gw.Fund("acct_a", 500)
	require.NoError(t, gw.Debit(ctx, "acct_a", 300))
	assert.Equal(t, int64(200), gw.Balance("acct_a"))
	assert.Equal(t, int64(300), gw.Escrow())

	require.NoError(t, gw.Credit(ctx, "acct_b", 300))
	assert.Equal(t, int64(300), gw.Balance("acct_b"))
	assert.Zero(t, gw.Escrow())
}

func TestMemoryGatewayInsufficientFunds(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	gw.Fund("acct_a", 100)
	err := gw.Debit(ctx, "acct_a", 101)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(100), gw.Balance("acct_a"))
	assert.Zero(t, gw.Escrow())
}

func TestMemoryGatewayEmptyAccount(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	assert.ErrorIs(t, gw.Debit(ctx, "", 10), ErrUnknownAccount)
	assert.ErrorIs(t, gw.Credit(ctx, "", 10), ErrUnknownAccount)
}

func TestMemoryGatewayEscrowUnderflow(t *testing.T) {
	gw := NewMemoryGateway()
	err := gw.Credit(context.Background(), "acct_a", 1)
	assert.Error(t, err)
	assert.Zero(t, gw.Balance("acct_a"))
}
