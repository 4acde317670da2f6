package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vetpulse/internal/cache"
	"vetpulse/internal/config"
	"vetpulse/internal/database"
)

// Scheduler is responsible for running background jobs
type Scheduler struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	cfg       *config.Config

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	// Job instances
	retentionJob *RetentionJob
	cacheSweep   *CacheSweepJob

	// Tickers for each job type
	retentionTicker *time.Ticker
	sweepTicker     *time.Ticker
}

func NewScheduler(dbManager *database.DBManager, store cache.Store, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()

	s := &Scheduler{
		dbManager: dbManager,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		isRunning: false,
		cfg:       cfg,
	}

	// Initialize job instances
	s.retentionJob = NewRetentionJob(dbManager, logger, cfg)
	s.cacheSweep = NewCacheSweepJob(store, logger)

	return s, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")

	s.isRunning = true

	s.startRetentionJob()
	s.startCacheSweepJob()

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))

	return nil
}

func (s *Scheduler) startRetentionJob() {
	interval := time.Duration(s.cfg.JobIntervalSeconds) * time.Second
	s.logger.Info("Starting retention job", slog.Duration("interval", interval))
	s.retentionTicker = time.NewTicker(interval)

	go func() {
		// Run initial execution
		s.logger.Info("Running initial retention pass...")
		s.executeJobSafely("retention", s.retentionJob.Run)

		for {
			select {
			case <-s.retentionTicker.C:
				s.executeJobSafely("retention", s.retentionJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Retention job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startCacheSweepJob() {
	// Sweeping at the TTL interval means a stale entry lives at most two TTLs
	// even if a correction lands right after it was cached.
	interval := time.Duration(s.cfg.CacheTTLSeconds) * time.Second
	s.logger.Info("Starting cache sweep job", slog.Duration("interval", interval))
	s.sweepTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.sweepTicker.C:
				s.executeJobSafely("cache_sweep", s.cacheSweep.Run)
			case <-s.ctx.Done():
				s.logger.Info("Cache sweep job stopped")
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.retentionTicker != nil {
		s.retentionTicker.Stop()
	}
	if s.sweepTicker != nil {
		s.sweepTicker.Stop()
	}

	s.cancel()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// RunRetention allows manual triggering of the retention pass
func (s *Scheduler) RunRetention() error {
	if !s.enabled {
		return nil
	}
	return s.retentionJob.Run()
}
