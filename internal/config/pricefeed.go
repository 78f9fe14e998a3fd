package config

import (
	"errors"
	"time"
)

type PriceFeedConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	Feed          string        `mapstructure:"feed"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
	MaxAge        time.Duration `mapstructure:"max-age"`
}

func (cfg *PriceFeedConfig) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("price-feed endpoint is required")
	}
	if cfg.Feed == "" {
		return errors.New("price-feed feed name is required")
	}
	if cfg.Timeout <= 0 {
		return errors.New("price-feed timeout must be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return errors.New("price-feed max-retry-times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("price-feed retry-interval must be positive")
	}
	if cfg.MaxAge <= 0 {
		return errors.New("price-feed max-age must be positive")
	}
	return nil
}
