package config

import (
	"errors"
	"time"
)

type QueueConfig struct {
	Url            string        `mapstructure:"url"`
	QueueName      string        `mapstructure:"queue-name"`
	Enabled        bool          `mapstructure:"enabled"`
	PublishTimeout time.Duration `mapstructure:"publish-timeout"`
	MaxRetryTimes  uint          `mapstructure:"max-retry-times"`
	RetryInterval  time.Duration `mapstructure:"retry-interval"`
}

const defaultPublishTimeout = 5 * time.Second

func (cfg *QueueConfig) Validate() error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Url == "" {
		return errors.New("queue url is required when the queue is enabled")
	}
	if cfg.QueueName == "" {
		return errors.New("queue name is required when the queue is enabled")
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.MaxRetryTimes == 0 {
		return errors.New("queue max-retry-times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("queue retry-interval must be positive")
	}
	return nil
}
