package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port      string        `env:"ANALYTICS_PORT" envDefault:"8081"`
	MongoURI  string        `env:"MONGODB_URI,required"`
	NatsUrl   string        `env:"NATS_URL"`
	NatsToken string        `env:"NATS_TOKEN"`
	Retention time.Duration `env:"EVENT_RETENTION" envDefault:"2160h"` // 90 days
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Retention <= 0 {
		return Config{}, fmt.Errorf("invalid EVENT_RETENTION value: %s", cfg.Retention)
	}
	return cfg, nil
}
