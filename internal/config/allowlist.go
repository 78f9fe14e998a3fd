package config

import (
	"errors"
	"time"
)

type AllowlistConfig struct {
	// Endpoint of the remote allow-list service; when empty the static
	// Approved set is used instead.
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
	Approved      []string      `mapstructure:"approved"`
}

func (cfg *AllowlistConfig) Validate() error {
	if cfg.Endpoint == "" {
		if len(cfg.Approved) == 0 {
			return errors.New("allowlist requires an endpoint or a static approved set")
		}
		return nil
	}
	if cfg.Timeout <= 0 {
		return errors.New("allowlist timeout must be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return errors.New("allowlist max-retry-times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("allowlist retry-interval must be positive")
	}
	return nil
}
