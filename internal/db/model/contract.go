package model

import (
	"time"

	"github.com/fundlock-io/settlement-ledger/internal/settlement"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

const ContractCollection = "contracts"

// ContractDocument mirrors a partnership contract. Amounts are stored as
// decimal strings so arbitrary-precision values survive the round trip.
type ContractDocument struct {
	ID               string               `bson:"_id"`
	FundProvider     string               `bson:"fund_provider"`
	Manager          string               `bson:"manager"`
	Capital          string               `bson:"capital"`
	FinalBalance     string               `bson:"final_balance,omitempty"`
	ProviderPayout   string               `bson:"provider_payout,omitempty"`
	ManagerPayout    string               `bson:"manager_payout,omitempty"`
	ProviderShareBps uint16               `bson:"provider_share_bps"`
	ManagerShareBps  uint16               `bson:"manager_share_bps"`
	State            types.ContractStatus `bson:"state"`
	CreatedAt        time.Time            `bson:"created_at"`
	SettledAt        *time.Time           `bson:"settled_at,omitempty"`
}

func FromContract(c *settlement.Contract) *ContractDocument {
	doc := &ContractDocument{
		ID:               c.ID,
		FundProvider:     c.FundProvider.String(),
		Manager:          c.Manager.String(),
		Capital:          c.Capital.String(),
		ProviderShareBps: c.ProviderShareBps,
		ManagerShareBps:  c.ManagerShareBps,
		State:            c.Status,
		CreatedAt:        c.CreatedAt,
	}
	if !c.FinalBalance.IsNil() {
		doc.FinalBalance = c.FinalBalance.String()
	}
	if !c.SettledAt.IsZero() {
		settledAt := c.SettledAt
		doc.SettledAt = &settledAt
	}
	return doc
}
