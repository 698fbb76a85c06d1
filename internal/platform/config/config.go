// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, sink, driver) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Yomira ETL pipeline.
type Config struct {

	// Process settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// Relational source database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the dev/test schema
	// fixture migrations directory. Never applied against the
	// production source database at runtime — see cmd/etl.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./migrations/source"`

	// Elasticsearch sink
	ElasticURL      string `env:"ELASTIC_URL,required"`
	ElasticUsername string `env:"ELASTIC_USERNAME"`
	ElasticPassword string `env:"ELASTIC_PASSWORD"`

	// Checkpoint store
	StateFile string `env:"STATE_FILE" envDefault:"./data/state.json"`

	// Pipeline pass cadence and batching
	ETLTimeout time.Duration `env:"ETL_TIMEOUT"         envDefault:"30s"`
	FetchSize  int           `env:"PIPELINE_FETCH_SIZE" envDefault:"100"`
	BunchSize  int           `env:"PIPELINE_BUNCH_SIZE" envDefault:"100"`
	BatchSize  int           `env:"PIPELINE_BATCH_SIZE" envDefault:"100"`

	// Backoff (spec §4.2): shared shape, applied once per connection class.
	BackoffStart  time.Duration `env:"PIPELINE_BACKOFF_START"  envDefault:"100ms"`
	BackoffFactor float64       `env:"PIPELINE_BACKOFF_FACTOR" envDefault:"2"`
	BackoffBorder time.Duration `env:"PIPELINE_BACKOFF_BORDER" envDefault:"10s"`

	// Distributed lease (Redis), additive resilience against duplicate
	// concurrent passes across horizontally-scaled instances. Optional:
	// an empty RedisURL disables leasing entirely.
	RedisURL string        `env:"REDIS_URL"`
	LeaseTTL time.Duration `env:"LEASE_TTL" envDefault:"5m"`

	// Control API (health, watermark inspection, manual resync)
	ControlAPIPort      string `env:"CONTROL_API_PORT" envDefault:"8081"`
	ControlAPIJWTSecret string `env:"CONTROL_API_JWT_SECRET"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the process is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the process is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LeaseEnabled reports whether a Redis URL was configured, enabling the
// distributed lease that guards against duplicate concurrent passes.
func (c *Config) LeaseEnabled() bool {
	return c.RedisURL != ""
}

// ControlAPIEnabled reports whether a JWT secret was configured for the
// control API's authenticated endpoints. Without one, the control API
// still serves /healthz and /readyz, but the manual resync endpoint is
// disabled.
func (c *Config) ControlAPIEnabled() bool {
	return c.ControlAPIJWTSecret != ""
}
