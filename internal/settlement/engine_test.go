package settlement

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
	fundAdmin = types.Identity("fund-admin")
	engineID  = types.Identity("settlement-engine")
	provider  = types.Identity("provider")
	manager   = types.Identity("manager")
)

type openApprover struct {
	denied map[types.Identity]struct{}
}

func (a *openApprover) IsApproved(_ context.Context, id types.Identity) (bool, error) {
	_, denied := a.denied[id]
	return !denied, nil
}

type fakeCustodian struct {
	in  []sdkmath.Int
	out map[types.Identity]sdkmath.Int

	// onTransferIn/onTransferOut let a test re-enter the engine mid-transfer
	onTransferIn  func()
	onTransferOut func()
}

func newFakeCustodian() *fakeCustodian {
	return &fakeCustodian{out: make(map[types.Identity]sdkmath.Int)}
}

func (c *fakeCustodian) TransferIn(_ context.Context, _ types.Identity, amount sdkmath.Int) error {
	if c.onTransferIn != nil {
		hook := c.onTransferIn
		c.onTransferIn = nil
		hook()
	}
	c.in = append(c.in, amount)
	return nil
}

func (c *fakeCustodian) TransferOut(_ context.Context, to types.Identity, amount sdkmath.Int) error {
	if c.onTransferOut != nil {
		hook := c.onTransferOut
		c.onTransferOut = nil
		hook()
	}
	prev, ok := c.out[to]
	if !ok {
		prev = sdkmath.ZeroInt()
	}
	c.out[to] = prev.Add(amount)
	return nil
}

type testEnv struct {
	engine *Engine
	ledger *ledger.Ledger
	cust   *fakeCustodian
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	l, err := ledger.New(fundAdmin)
	require.NoError(t, err)
	require.NoError(t, l.AddWriter(fundAdmin, engineID))

	cust := newFakeCustodian()
	engine, err := NewEngine(fundAdmin, engineID, l, cust, &openApprover{})
	require.NoError(t, err)

	return &testEnv{engine: engine, ledger: l, cust: cust}
}

func (env *testEnv) open(t *testing.T, capital int64, providerBps, managerBps uint16) *Contract {
	t.Helper()

	contract, err := env.engine.OpenContract(
		context.Background(), provider, manager, sdkmath.NewInt(capital), providerBps, managerBps,
	)
	require.NoError(t, err)
	return contract
}

func TestOpenContract(t *testing.T) {
	ctx := context.Background()

	t.Run("records capital as asset and liability", func(t *testing.T) {
		env := newTestEnv(t)
		contract := env.open(t, 10_000, 6000, 4000)

		assert.Equal(t, types.StatusActive, contract.Status)
		assert.Equal(t, sdkmath.NewInt(10_000), env.ledger.TotalAssets())
		assert.Equal(t, sdkmath.NewInt(10_000), env.ledger.TotalLiabilities())
		assert.Equal(t, sdkmath.NewInt(10_000), env.engine.CustodyBalance())
		require.Len(t, env.cust.in, 1)
		assert.Equal(t, sdkmath.NewInt(10_000), env.cust.in[0])
	})

	t.Run("rejects split not summing to 10000", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.engine.OpenContract(ctx, provider, manager, sdkmath.NewInt(100), 6000, 3999)
		require.Error(t, err)

		var ise *InvalidSplitError
		require.ErrorAs(t, err, &ise)
		assert.Equal(t, uint16(6000), ise.ProviderBps)
		assert.Equal(t, uint16(3999), ise.ManagerBps)
	})

	t.Run("rejects zero capital", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.engine.OpenContract(ctx, provider, manager, sdkmath.ZeroInt(), 6000, 4000)
		require.Error(t, err)
		assert.True(t, types.IsValidationError(err))
	})

	t.Run("rejects unapproved counterparty before custody transfer", func(t *testing.T) {
		env := newTestEnv(t)
		l, err := ledger.New(fundAdmin)
		require.NoError(t, err)
		require.NoError(t, l.AddWriter(fundAdmin, engineID))
		engine, err := NewEngine(fundAdmin, engineID, l, env.cust,
			&openApprover{denied: map[types.Identity]struct{}{manager: {}}})
		require.NoError(t, err)

		_, err = engine.OpenContract(ctx, provider, manager, sdkmath.NewInt(100), 6000, 4000)
		require.Error(t, err)

		var cna *CounterpartyNotApprovedError
		require.ErrorAs(t, err, &cna)
		assert.Equal(t, manager, cna.Identity)
		assert.Empty(t, env.cust.in)
		assert.True(t, l.TotalAssets().IsZero())
	})

	t.Run("rejects provider managing own contract", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.engine.OpenContract(ctx, provider, provider, sdkmath.NewInt(100), 6000, 4000)
		require.Error(t, err)
		assert.True(t, types.IsValidationError(err))
	})
}

func TestSettleProfit(t *testing.T) {
	ctx := context.Background()

	t.Run("60/40 split pays 13000/2000 on 15000", func(t *testing.T) {
		env := newTestEnv(t)
		contract := env.open(t, 10_000, 6000, 4000)
		require.NoError(t, env.engine.AdjustCustody(fundAdmin, sdkmath.NewInt(5000)))

		outcome, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(15_000))
		require.NoError(t, err)

		assert.Equal(t, sdkmath.NewInt(13_000), outcome.ProviderPayout)
		assert.Equal(t, sdkmath.NewInt(2000), outcome.ManagerPayout)
		assert.Equal(t, types.StatusSettled, outcome.Contract.Status)
		assert.Equal(t, sdkmath.NewInt(5000), outcome.Profit)

		assert.Equal(t, sdkmath.NewInt(13_000), env.cust.out[provider])
		assert.Equal(t, sdkmath.NewInt(2000), env.cust.out[manager])

		// ledger fully released
		assert.True(t, env.ledger.TotalAssets().IsZero())
		assert.True(t, env.ledger.TotalLiabilities().IsZero())
		assert.True(t, env.engine.CustodyBalance().IsZero())
	})

	t.Run("provider takes the remainder so payouts conserve exactly", func(t *testing.T) {
		env := newTestEnv(t)
		contract := env.open(t, 999, 6000, 4000)
		require.NoError(t, env.engine.AdjustCustody(fundAdmin, sdkmath.NewInt(999)))

		outcome, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(1998))
		require.NoError(t, err)

		// floor(999*4000/10000) = 399; 1998 - 399 = 1599
		assert.Equal(t, sdkmath.NewInt(399), outcome.ManagerPayout)
		assert.Equal(t, sdkmath.NewInt(1599), outcome.ProviderPayout)
		assert.Equal(t, sdkmath.NewInt(1998), outcome.ProviderPayout.Add(outcome.ManagerPayout))
	})

	t.Run("conservation holds for extreme splits and minimal capital", func(t *testing.T) {
		cases := []struct {
			name         string
			capital      int64
			finalBalance int64
			managerBps   uint16
		}{
			{"1 bps manager", 10_000, 20_001, 1},
			{"9999 bps manager", 10_000, 20_001, 9999},
			{"unit capital", 1, 3, 5000},
			{"profit of one unit", 7919, 7920, 3333},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				env := newTestEnv(t)
				contract := env.open(t, tc.capital, types.BpsDenominator-tc.managerBps, tc.managerBps)
				require.NoError(t, env.engine.AdjustCustody(fundAdmin, sdkmath.NewInt(tc.finalBalance-tc.capital)))

				outcome, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(tc.finalBalance))
				require.NoError(t, err)

				total := outcome.ProviderPayout.Add(outcome.ManagerPayout)
				assert.Equal(t, sdkmath.NewInt(tc.finalBalance), total, "zero dust conservation")
				assert.False(t, outcome.ProviderPayout.IsNegative())
				assert.False(t, outcome.ManagerPayout.IsNegative())
			})
		}
	})
}

func TestSettleLoss(t *testing.T) {
	ctx := context.Background()

	t.Run("provider absorbs the shortfall and the contract burns", func(t *testing.T) {
		env := newTestEnv(t)
		contract := env.open(t, 10_000, 6000, 4000)

		outcome, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(9000))
		require.NoError(t, err)

		assert.Equal(t, sdkmath.NewInt(9000), outcome.ProviderPayout)
		assert.True(t, outcome.ManagerPayout.IsZero())
		assert.Equal(t, types.StatusBurned, outcome.Contract.Status)
		assert.Equal(t, sdkmath.NewInt(1000), outcome.Loss)

		assert.Equal(t, sdkmath.NewInt(9000), env.cust.out[provider])
		_, managerPaid := env.cust.out[manager]
		assert.False(t, managerPaid)

		// the unrecovered 1000 is written off, not stranded in custody
		assert.True(t, env.engine.CustodyBalance().IsZero())
		assert.True(t, env.ledger.TotalAssets().IsZero())
		assert.True(t, env.ledger.TotalLiabilities().IsZero())
	})

	t.Run("marked-down custody settles without double write-off", func(t *testing.T) {
		env := newTestEnv(t)
		contract := env.open(t, 10_000, 6000, 4000)
		require.NoError(t, env.engine.AdjustCustody(fundAdmin, sdkmath.NewInt(-3000)))

		// markdown already reported a 3000 loss into deficit
		assert.Equal(t, sdkmath.NewInt(3000), env.ledger.CurrentDeficit())

		outcome, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(7000))
		require.NoError(t, err)

		assert.Equal(t, sdkmath.NewInt(7000), outcome.ProviderPayout)
		assert.Equal(t, types.StatusBurned, outcome.Contract.Status)
		assert.True(t, env.ledger.TotalAssets().IsZero())
		assert.True(t, env.ledger.TotalLiabilities().IsZero())
		assert.True(t, env.engine.CustodyBalance().IsZero())
	})

	t.Run("total loss settles at zero", func(t *testing.T) {
		env := newTestEnv(t)
		contract := env.open(t, 500, 5000, 5000)

		outcome, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.ZeroInt())
		require.NoError(t, err)
		assert.True(t, outcome.ProviderPayout.IsZero())
		assert.True(t, outcome.ManagerPayout.IsZero())
		assert.Equal(t, types.StatusBurned, outcome.Contract.Status)
	})
}

func TestSettlePreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("second settle always fails", func(t *testing.T) {
		env := newTestEnv(t)
		contract := env.open(t, 10_000, 6000, 4000)

		_, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(9000))
		require.NoError(t, err)

		_, err = env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(9000))
		require.Error(t, err)

		var ase *AlreadySettledError
		require.ErrorAs(t, err, &ase)
		assert.Equal(t, contract.ID, ase.ContractID)
	})

	t.Run("only the designated manager may settle", func(t *testing.T) {
		env := newTestEnv(t)
		contract := env.open(t, 10_000, 6000, 4000)

		_, err := env.engine.Settle(ctx, provider, contract.ID, sdkmath.NewInt(10_000))
		require.Error(t, err)

		var nme *NotManagerError
		require.ErrorAs(t, err, &nme)
		assert.Equal(t, provider, nme.Caller)
		assert.Equal(t, manager, nme.Expected)
	})

	t.Run("unknown contract", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.engine.Settle(ctx, manager, "no-such-id", sdkmath.NewInt(1))
		require.Error(t, err)
		assert.True(t, IsContractNotFoundError(err))
	})

	t.Run("cannot drain capital earmarked for other active contracts", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.open(t, 10_000, 6000, 4000)

		otherProvider := types.Identity("provider-2")
		second, err := env.engine.OpenContract(
			ctx, otherProvider, manager, sdkmath.NewInt(5000), 7000, 3000,
		)
		require.NoError(t, err)

		// custody holds 15000 but 5000 is earmarked for the second contract
		_, err = env.engine.Settle(ctx, manager, first.ID, sdkmath.NewInt(12_000))
		require.Error(t, err)

		var iab *InsufficientAvailableBalanceError
		require.ErrorAs(t, err, &iab)
		assert.Equal(t, sdkmath.NewInt(12_000), iab.Requested)
		assert.Equal(t, sdkmath.NewInt(10_000), iab.Available)

		// the second contract can still settle its own capital in full
		outcome, err := env.engine.Settle(ctx, manager, second.ID, sdkmath.NewInt(5000))
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewInt(5000), outcome.ProviderPayout)
	})
}

func TestSettleReentrancy(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	contract := env.open(t, 10_000, 6000, 4000)
	require.NoError(t, env.engine.AdjustCustody(fundAdmin, sdkmath.NewInt(2000)))

	var reentrantErr error
	env.cust.onTransferOut = func() {
		// a callee on the other side of the payout transfer tries to
		// settle the same contract again before the transfer returns
		_, reentrantErr = env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(12_000))
	}

	_, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(12_000))
	require.NoError(t, err)

	require.Error(t, reentrantErr)
	assert.True(t, IsReentrantCallError(reentrantErr))
}

func TestOpenContractReentrancy(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var reentrantErr error
	env.cust.onTransferIn = func() {
		// a callee on the other side of the capital transfer tries to
		// settle the brand-new contract before its capital has arrived
		active := env.engine.ActiveContracts()
		require.Len(t, active, 1)
		_, reentrantErr = env.engine.Settle(ctx, manager, active[0].ID, sdkmath.NewInt(10_000))
	}

	contract, err := env.engine.OpenContract(
		ctx, provider, manager, sdkmath.NewInt(10_000), 6000, 4000,
	)
	require.NoError(t, err)

	require.Error(t, reentrantErr)
	assert.True(t, IsReentrantCallError(reentrantErr))

	// nothing left custody during the open
	assert.Empty(t, env.cust.out)
	assert.Equal(t, sdkmath.NewInt(10_000), env.engine.CustodyBalance())

	// once the open has completed the contract settles normally
	outcome, err := env.engine.Settle(ctx, manager, contract.ID, sdkmath.NewInt(10_000))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(10_000), outcome.ProviderPayout)
}

func TestAdjustCustody(t *testing.T) {
	t.Run("admin only", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.engine.AdjustCustody(manager, sdkmath.NewInt(100))
		require.Error(t, err)
		assert.True(t, types.IsUnauthorizedError(err))
	})

	t.Run("markdown opens a deficit through the loss path", func(t *testing.T) {
		env := newTestEnv(t)
		env.open(t, 10_000, 6000, 4000)

		require.NoError(t, env.engine.AdjustCustody(fundAdmin, sdkmath.NewInt(-4000)))

		assert.False(t, env.ledger.IsSolvent())
		assert.Equal(t, sdkmath.NewInt(4000), env.ledger.CurrentDeficit())
		assert.Equal(t, sdkmath.NewInt(6000), env.engine.CustodyBalance())
	})

	t.Run("markdown cannot exceed custody", func(t *testing.T) {
		env := newTestEnv(t)
		env.open(t, 100, 6000, 4000)
		err := env.engine.AdjustCustody(fundAdmin, sdkmath.NewInt(-101))
		require.Error(t, err)
		assert.True(t, types.IsValidationError(err))
	})
}
