package config

import "errors"

type IdentityConfig struct {
	// Admin is the top-level admin identity, fixed at initialization.
	Admin string `mapstructure:"admin"`
	// Treasury receives released performance fees.
	Treasury string `mapstructure:"treasury"`
}

func (cfg *IdentityConfig) Validate() error {
	if cfg.Admin == "" {
		return errors.New("identity admin is required")
	}
	if cfg.Treasury == "" {
		return errors.New("identity treasury is required")
	}
	return nil
}
