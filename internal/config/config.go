// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/neomorfeo/central/internal/adapter/otel"
)

// Config is the full runtime configuration of the central binary.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	DatabasePath    string        `env:"DATABASE_PATH" envDefault:"central.db"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	// RiverMaxWorkers bounds concurrent provisioning jobs.
	RiverMaxWorkers int `env:"RIVER_MAX_WORKERS" envDefault:"10"`

	Telemetry otel.Config `envPrefix:"OTEL_"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.RiverMaxWorkers < 1 {
		return Config{}, fmt.Errorf("RIVER_MAX_WORKERS must be positive, got %d", cfg.RiverMaxWorkers)
	}
	return cfg, nil
}
