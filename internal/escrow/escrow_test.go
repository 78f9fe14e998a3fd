package escrow

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundlock-io/settlement-ledger/internal/ledger"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

const (
	admin        = types.Identity("escrow-admin")
	engineWriter = types.Identity("engine")
	recipient    = types.Identity("treasury")
)

type recordingCustodian struct {
	out []sdkmath.Int
}

func (c *recordingCustodian) TransferIn(_ context.Context, _ types.Identity, _ sdkmath.Int) error {
	return nil
}

func (c *recordingCustodian) TransferOut(_ context.Context, _ types.Identity, amount sdkmath.Int) error {
	c.out = append(c.out, amount)
	return nil
}

func newTestBuffer(t *testing.T) (*Buffer, *ledger.Ledger, *recordingCustodian) {
	t.Helper()

	l, err := ledger.New("ledger-admin")
	require.NoError(t, err)
	require.NoError(t, l.AddWriter("ledger-admin", engineWriter))

	cust := &recordingCustodian{}
	b, err := NewBuffer(admin, engineWriter, l, cust)
	require.NoError(t, err)
	return b, l, cust
}

func TestRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("blocked while insolvent", func(t *testing.T) {
		b, l, cust := newTestBuffer(t)
		require.NoError(t, b.Deposit(sdkmath.NewInt(500)))

		require.NoError(t, l.IncreaseAssets(engineWriter, sdkmath.NewInt(100)))
		require.NoError(t, l.SetLiabilities(engineWriter, sdkmath.NewInt(300)))

		err := b.Release(ctx, admin, recipient, sdkmath.NewInt(100))
		require.Error(t, err)

		var pie *ProtocolInsolventError
		require.ErrorAs(t, err, &pie)
		assert.Equal(t, sdkmath.NewInt(200), pie.Deficit)
		assert.Equal(t, sdkmath.NewInt(500), b.Balance())
		assert.Empty(t, cust.out)
	})

	t.Run("released when solvent", func(t *testing.T) {
		b, l, cust := newTestBuffer(t)
		require.NoError(t, b.Deposit(sdkmath.NewInt(500)))
		require.NoError(t, l.IncreaseAssets(engineWriter, sdkmath.NewInt(100)))

		require.NoError(t, b.Release(ctx, admin, recipient, sdkmath.NewInt(200)))
		assert.Equal(t, sdkmath.NewInt(300), b.Balance())
		require.Len(t, cust.out, 1)
		assert.Equal(t, sdkmath.NewInt(200), cust.out[0])
	})

	t.Run("cannot exceed buffered balance", func(t *testing.T) {
		b, _, _ := newTestBuffer(t)
		require.NoError(t, b.Deposit(sdkmath.NewInt(100)))

		err := b.Release(ctx, admin, recipient, sdkmath.NewInt(101))
		require.Error(t, err)

		var iee *InsufficientEscrowError
		require.ErrorAs(t, err, &iee)
		assert.Equal(t, sdkmath.NewInt(101), iee.Requested)
		assert.Equal(t, sdkmath.NewInt(100), iee.Available)
	})

	t.Run("admin only", func(t *testing.T) {
		b, _, _ := newTestBuffer(t)
		err := b.Release(ctx, "stranger", recipient, sdkmath.NewInt(1))
		require.Error(t, err)
		assert.True(t, types.IsUnauthorizedError(err))
	})
}

func TestCoverDeficit(t *testing.T) {
	b, l, _ := newTestBuffer(t)
	require.NoError(t, b.Deposit(sdkmath.NewInt(500)))

	require.NoError(t, l.IncreaseAssets(engineWriter, sdkmath.NewInt(100)))
	require.NoError(t, l.SetLiabilities(engineWriter, sdkmath.NewInt(400)))
	require.False(t, l.IsSolvent())

	require.NoError(t, b.CoverDeficit(admin, sdkmath.NewInt(300)))

	assert.Equal(t, sdkmath.NewInt(200), b.Balance())
	assert.True(t, l.IsSolvent())
	assert.True(t, l.CurrentDeficit().IsZero())
}
