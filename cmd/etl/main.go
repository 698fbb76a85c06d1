// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Etl is the entry point for the Yomira search-index synchronization
pipeline.

It drives an unending film -> genre -> person cycle, reading changes
from the relational source database and writing denormalized documents
into Elasticsearch, with per-axis watermark checkpointing so a crash
mid-cycle resumes from the last durable bunch rather than re-scanning
from scratch.

Usage:

	go run cmd/etl/main.go [flags]

The flags/environment variables are:

	DATABASE_URL    Postgres connection string (required)
	ELASTIC_URL     Elasticsearch connection string (required)
	REDIS_URL       Redis connection string (optional; enables the lease)

Startup Sequence:

 1. Logger: Initialize structured JSON logging (slog).
 2. Config: Load and validate environment variables.
 3. Storage: Establish connections to Postgres, Elasticsearch, and
    (optionally) Redis.
 4. Migration: Run idempotent schema updates against the dev/test
    source fixture (skipped when ENVIRONMENT is "production").
 5. Wiring: Construct the checkpoint store, sink writer, and the three
    entity coordinators.
 6. Control API: Bind the health/watermark/resync HTTP surface.
 7. Driver: Run the film/genre/person cycle until a shutdown signal.

No business logic lives here. This file is strictly for orchestration
and wiring.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/yomira/internal/controlapi"
	"github.com/taibuivan/yomira/internal/pipeline/checkpoint"
	"github.com/taibuivan/yomira/internal/pipeline/driver"
	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/retry"
	"github.com/taibuivan/yomira/internal/pipeline/sink"
	"github.com/taibuivan/yomira/internal/platform/config"
	"github.com/taibuivan/yomira/internal/platform/constants"
	"github.com/taibuivan/yomira/internal/platform/leaseredis"
	"github.com/taibuivan/yomira/internal/platform/migration"
	pgstore "github.com/taibuivan/yomira/internal/platform/postgres"
	redisstore "github.com/taibuivan/yomira/internal/platform/redis"
	"github.com/taibuivan/yomira/internal/platform/sec"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Yomira] etl_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.Bool("lease_enabled", cfg.LeaseEnabled()),
		slog.Bool("control_api_enabled", cfg.ControlAPIEnabled()),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// # 3. PostgreSQL
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// # 4. Elasticsearch
	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUsername,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return fmt.Errorf("construct elasticsearch client: %w", err)
	}
	bulkClient := sink.NewElasticClient(esClient)

	// # 5. Redis (optional distributed lease)
	var rdb *redis.Client
	if cfg.LeaseEnabled() {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()
	}

	// # 6. Migrations (dev/test source fixture only — see cfg.MigrationPath)
	if !cfg.IsProduction() {
		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// # 7. Checkpoint store
	store := checkpoint.NewFileStore(cfg.StateFile)

	// # 8. Driver and coordinator wiring
	outerPolicy := retry.Policy{
		StartSleep:  cfg.BackoffStart,
		Factor:      cfg.BackoffFactor,
		BorderSleep: cfg.BackoffBorder,
		Retryable:   retry.IsSourceConnErr,
	}
	innerPolicy := retry.Policy{
		StartSleep:  cfg.BackoffStart,
		Factor:      cfg.BackoffFactor,
		BorderSleep: cfg.BackoffBorder,
		Retryable:   retry.IsSinkConnErr,
	}

	var opts []driver.Option
	if cfg.LeaseEnabled() {
		hostname, _ := os.Hostname()
		opts = append(opts, driver.WithLease(func(entity model.Entity) *leaseredis.Lease {
			return leaseredis.New(rdb, string(entity), cfg.LeaseTTL, hostname)
		}))
	}

	drv := driver.New(log, cfg.ETLTimeout, outerPolicy, innerPolicy, opts...)
	driver.Wire(drv, log, pool, store, bulkClient, cfg.FetchSize, cfg.BunchSize, cfg.BatchSize)

	// # 9. Control API (health and watermarks always; resync only with a JWT secret)
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	deps := controlapi.Dependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
	}
	if rdb != nil {
		deps.CheckCache = func() error {
			return redisstore.Ping(context.Background(), rdb)
		}
	}

	var verifier *sec.ControlTokenService
	if cfg.ControlAPIEnabled() {
		verifier = sec.NewControlTokenService(cfg.ControlAPIJWTSecret, constants.AuthIssuer)
	}
	controlSrv := controlapi.New(appCtx, cfg.ControlAPIPort, log, deps, store, drv, verifier)

	// # 10. Lifecycle handling
	shutdownErr := make(chan error, 1)
	driverDone := make(chan error, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		if err := controlSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr <- fmt.Errorf("control_api_crash: %w", err)
		}
	}()

	go func() {
		driverDone <- drv.RunForever(appCtx)
	}()

	log.Info("yomira_etl_running",
		slog.String("control_api_port", cfg.ControlAPIPort),
		slog.Duration("etl_timeout", cfg.ETLTimeout),
	)

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-shutdownErr:
		appCancel()
		return err
	case err := <-driverDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("driver_crash: %w", err)
		}
	}

	appCancel()

	log.Info("shutting_down_control_api", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := controlSrv.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("control_api_shutdown_failed: %w", err)
	}

	<-driverDone
	log.Info("graceful_shutdown_complete")
	return nil
}
