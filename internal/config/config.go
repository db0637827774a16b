package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath         string        `env:"DB_PATH" envDefault:"data/hunt.db"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	LogLevel       slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	IdentitySecret string        `env:"IDENTITY_SECRET" envDefault:"dev-insecure-secret"`
	ScanSessionTTL time.Duration `env:"SCAN_SESSION_TTL" envDefault:"4h"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SeedDemo       bool          `env:"SEED_DEMO" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
