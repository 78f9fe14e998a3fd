package config

import (
	"errors"
	"time"
)

type PollerConfig struct {
	SnapshotInterval  time.Duration `mapstructure:"snapshot-interval"`
	ValuationInterval time.Duration `mapstructure:"valuation-interval"`
}

const defaultSnapshotInterval = 1 * time.Minute

func (cfg *PollerConfig) Validate() error {
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = defaultSnapshotInterval
	}
	if cfg.ValuationInterval <= 0 {
		return errors.New("poller valuation-interval must be positive")
	}
	return nil
}
