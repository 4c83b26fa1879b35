package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

// Config is process-level configuration, read from the environment. Run
// inputs (recipients, message, account file, subject) come from CLI flags.
type Config struct {
	DatabaseDSN   string `env:"DATABASE_DSN,default=db.sqlite"`
	RedisURL      string `env:"REDIS_URL"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	Concurrency   int    `env:"SEND_CONCURRENCY,default=1"`
	RunLockTTLSec int    `env:"RUN_LOCK_TTL_SEC,default=1800"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
