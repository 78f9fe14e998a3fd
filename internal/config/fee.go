package config

import (
	"fmt"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

type FeeConfig struct {
	RateBps uint16 `mapstructure:"rate-bps"`
}

// Validate bounds the rate to the bps scale; the calculator enforces the
// hard protocol cap on top of this.
func (cfg *FeeConfig) Validate() error {
	if cfg.RateBps > types.BpsDenominator {
		return fmt.Errorf("fee rate-bps must not exceed %d, got %d", types.BpsDenominator, cfg.RateBps)
	}
	return nil
}
