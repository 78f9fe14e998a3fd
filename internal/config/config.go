package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Db        DbConfig        `mapstructure:"db"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Fee       FeeConfig       `mapstructure:"fee"`
	Effort    EffortConfig    `mapstructure:"effort"`
	PriceFeed PriceFeedConfig `mapstructure:"price-feed"`
	Allowlist AllowlistConfig `mapstructure:"allowlist"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Poller    PollerConfig    `mapstructure:"poller"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Server.Validate(); err != nil {
		return err
	}
	if err := cfg.Db.Validate(); err != nil {
		return err
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}
	if err := cfg.Queue.Validate(); err != nil {
		return err
	}
	if err := cfg.Fee.Validate(); err != nil {
		return err
	}
	if err := cfg.Effort.Validate(); err != nil {
		return err
	}
	if err := cfg.PriceFeed.Validate(); err != nil {
		return err
	}
	if err := cfg.Allowlist.Validate(); err != nil {
		return err
	}
	if err := cfg.Identity.Validate(); err != nil {
		return err
	}
	if err := cfg.Poller.Validate(); err != nil {
		return err
	}
	return nil
}

// New loads the configuration file at cfgFile, applies environment
// overrides, and validates every section.
func New(cfgFile string) (*Config, error) {
	viper.SetConfigFile(cfgFile)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
