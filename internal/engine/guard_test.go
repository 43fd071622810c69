package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferGuardNested(t *testing.T) {
	var g transferGuard

	err := g.do(func() error {
		assert.True(t, g.inProgress())
		return g.do(func() error {
			t.Fatal("nested transfer must not run")
			return nil
		})
	})
	assert.ErrorIs(t, err, ErrReentrancy)
	assert.False(t, g.inProgress())
}

func TestTransferGuardClearsAfterError(t *testing.T) {
	var g transferGuard

	boom := errors.New("transfer declined")
	err := g.do(func() error { return boom })
	assert.ErrorIs(t, err, boom)

	// The flag must not stay stuck after a failed transfer.
	require.False(t, g.inProgress())
	require.NoError(t, g.do(func() error { return nil }))
}
