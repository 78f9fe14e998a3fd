package settlement

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// Contract is one two-party profit/loss-sharing agreement: the fund provider
// commits capital, the manager works it, and settlement splits the final
// balance. A contract is mutated exactly once, at settlement, and is
// terminal thereafter.
type Contract struct {
	ID               string
	FundProvider     types.Identity
	Manager          types.Identity
	Capital          sdkmath.Int
	FinalBalance     sdkmath.Int
	ProviderShareBps uint16
	ManagerShareBps  uint16
	Status           types.ContractStatus
	CreatedAt        time.Time
	SettledAt        time.Time
}

func (c *Contract) clone() *Contract {
	dup := *c
	return &dup
}

// Outcome reports the result of a settlement. Payouts always satisfy
// ProviderPayout + ManagerPayout == FinalBalance exactly.
type Outcome struct {
	Contract       *Contract
	Profit         sdkmath.Int
	Loss           sdkmath.Int
	ProviderPayout sdkmath.Int
	ManagerPayout  sdkmath.Int
}

// IsProfit reports whether the contract settled above its capital.
func (o *Outcome) IsProfit() bool {
	return o.Profit.IsPositive()
}

// splitPayouts computes the settlement payouts. On profit, the manager share
// is floor(profit * managerBps / 10000) and the provider receives the
// remainder of the final balance rather than an independent bps computation:
// two independently rounded shares can strand a unit of dust, the remainder
// cannot.
func splitPayouts(capital, finalBalance sdkmath.Int, managerShareBps uint16) (providerPayout, managerPayout sdkmath.Int) {
	if finalBalance.GT(capital) {
		profit := finalBalance.Sub(capital)
		managerPayout = types.ApplyBps(profit, managerShareBps)
		providerPayout = finalBalance.Sub(managerPayout)
		return providerPayout, managerPayout
	}
	// loss: the provider absorbs the shortfall, the manager takes nothing
	return finalBalance, sdkmath.ZeroInt()
}
