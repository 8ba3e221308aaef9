package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/domain/bridge"
	domainplatform "github.com/erp/bridge/internal/domain/platform"
	"github.com/erp/bridge/internal/infrastructure/config"
	infraerp "github.com/erp/bridge/internal/infrastructure/erp"
	"github.com/erp/bridge/internal/infrastructure/lock"
	"github.com/erp/bridge/internal/infrastructure/logger"
	"github.com/erp/bridge/internal/infrastructure/persistence"
	"github.com/erp/bridge/internal/infrastructure/platform"
	"github.com/erp/bridge/internal/infrastructure/storage"
	"github.com/erp/bridge/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// app holds the wired collaborators of one bridge process
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	telemetry *telemetry.Provider
	db        *persistence.Database
	session   *infraerp.Session
	service   *syncer.Service
	closers   []func() error
}

// newApp loads configuration and wires the sync service
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	a.telemetry, err = telemetry.New(ctx, telemetryConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error { return a.telemetry.Shutdown(context.Background()) })
	log = a.telemetry.WithZap(log)
	a.log = log

	a.db, err = persistence.NewDatabase(&cfg.Database, log.Named("gorm"), a.telemetry.TraceDatabase)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.db.Close)
	if cfg.Database.Driver == "sqlite" {
		if err := a.db.AutoMigrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	log.Info("Bridge database connected", zap.String("driver", cfg.Database.Driver))

	a.session, err = infraerp.NewSessionFromConfig(&cfg.ERP, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.session.Close)

	deps := syncer.Dependencies{
		Scope:           persistence.NewGormTransactionScope(a.db.DB),
		ERP:             a.session,
		Options:         mappingOptions(cfg),
		Numbers:         bridge.ErpNumberRange{Min: int(cfg.ERP.CustomerNumberMin), Max: int(cfg.ERP.CustomerNumberMax)},
		SalesChannelIDs: cfg.Sync.SalesChannelIDs,
		CustomerPacing:  cfg.Platform.CustomerPacing,
		ChangedLookback: cfg.Sync.ChangedLookback,
		Logger:          log,
	}

	client, err := platform.NewClient(&cfg.Platform, log)
	switch {
	case errors.Is(err, domainplatform.ErrNotConfigured):
		log.Warn("No platform configured, platform operations are disabled")
	case err != nil:
		a.Close()
		return nil, err
	default:
		deps.Platform = client
	}

	media, err := storage.NewMediaStore(ctx, &cfg.Storage, log)
	if err != nil {
		log.Warn("Media store unavailable, media sync is disabled", zap.Error(err))
	} else {
		deps.Media = media
	}

	runLock, err := lock.NewRunLockFactory(cfg.Redis, lock.WithLogger(log)).CreateLock()
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := runLock.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	opts := []syncer.ServiceOption{
		syncer.WithRunLock(runLock),
		syncer.WithLockTTL(cfg.Redis.LockTTL),
		syncer.WithServiceLogger(log),
		syncer.WithTracerProvider(a.telemetry.TracerProvider()),
	}
	if a.telemetry.Enabled() {
		metrics, err := telemetry.NewSyncMetrics(a.telemetry.MeterProvider())
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, syncer.WithRunRecorder(metrics))
	}
	a.service = syncer.NewService(syncer.NewDefaultRegistry(deps), deps.Scope, opts...)
	return a, nil
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		DB: telemetry.DBTracingConfig{
			Enabled:       cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:    cfg.Telemetry.DBLogFullSQL,
			SlowThreshold: cfg.Telemetry.DBSlowThreshold,
		},
		Profiler: telemetry.ProfilerConfig{
			Enabled:       cfg.Telemetry.ProfilingEnabled,
			ServerAddress: cfg.Telemetry.ProfilingAddress,
		},
	}
}

// Close releases every resource in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error("Error during shutdown", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.log.Sync()
}

func mappingOptions(cfg *config.Config) mapping.Options {
	opts := mapping.DefaultOptions()
	opts.Language = cfg.ERP.Language
	opts.CurrencyID = cfg.Platform.CurrencyID
	opts.LanguageID = cfg.Platform.LanguageID
	opts.MediaFolderID = cfg.Platform.MediaFolderID
	opts.DefaultTaxRate = decimal.NewFromFloat(cfg.Sync.DefaultTaxRate)
	opts.DefaultPriceFactor = decimal.NewFromFloat(cfg.Sync.DefaultPriceFactor)
	return opts
}

// shutdownTimeout bounds the graceful stop of the server and the scheduler
const shutdownTimeout = 30 * time.Second
