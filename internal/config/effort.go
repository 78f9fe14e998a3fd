package config

import (
	"fmt"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

type EffortConfig struct {
	// Weights maps action kinds to effort units. Missing kinds fall back
	// to the built-in table; a zero weight disables a kind.
	Weights map[string]int64 `mapstructure:"weights"`
}

func (cfg *EffortConfig) Validate() error {
	for kind, weight := range cfg.Weights {
		if _, err := types.ParseActionKind(kind); err != nil {
			return fmt.Errorf("effort weights: %w", err)
		}
		if weight < 0 {
			return fmt.Errorf("effort weight for %s must not be negative, got %d", kind, weight)
		}
	}
	return nil
}
