// Package internal contains core application functionality
package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"vetpulse/internal/audit"
	"vetpulse/internal/cache"
	"vetpulse/internal/config"
	"vetpulse/internal/database"
	"vetpulse/internal/jobs"
)

// Application wraps cartridge.Application with vetpulse-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // vetpulse-specific DB manager with migration methods
	Cache     cache.Store
	Audit     *audit.Logger
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	// Create logger
	logger := cartridge.NewLogger(cfg, nil)

	// Initialize database manager (vetpulse-specific with migration methods)
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := newCacheStore(cfg, logger)
	auditLog := newAuditLogger(cfg)

	// Initialize jobs system
	scheduler, err := jobs.NewScheduler(dbManager, store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	// Create the cartridge application using NewApplication
	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    MountAppRoutes(store, auditLog),
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Cache:       store,
		Audit:       auditLog,
	}, nil
}

// newCacheStore connects to redis when caching is enabled. The cache is
// advisory, so an unreachable redis downgrades to the no-op store instead of
// failing startup.
func newCacheStore(cfg *config.Config, logger *slog.Logger) cache.Store {
	if !cfg.CacheEnabled {
		logger.Info("Analytics cache disabled by configuration")
		return cache.Disabled{}
	}

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	store, err := cache.NewRedisStore(cfg.RedisURL, ttl, logger)
	if err != nil {
		logger.Warn("Analytics cache unavailable, continuing without it",
			slog.String("error", err.Error()))
		return cache.Disabled{}
	}

	logger.Info("Analytics cache connected", slog.Duration("ttl", ttl))
	return store
}

func newAuditLogger(cfg *config.Config) *audit.Logger {
	if !cfg.AuditLogEnabled {
		return audit.Disabled()
	}
	return audit.New(cfg.LogsDirectory)
}
