package jobs

import (
	"context"
	"log/slog"
	"time"

	"vetpulse/internal/cache"
)

// CacheSweepJob periodically clears cached analytics responses so corrected
// resubmissions become visible within one sweep interval at worst.
type CacheSweepJob struct {
	store  cache.Store
	logger *slog.Logger
}

func NewCacheSweepJob(store cache.Store, logger *slog.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		store:  store,
		logger: logger,
	}
}

// Run drops every cached analytics entry.
func (j *CacheSweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dropped := j.store.ClearPattern(ctx, "analytics:*")
	if dropped > 0 {
		j.logger.Info("Swept analytics cache", slog.Int64("dropped", dropped))
	}
	return nil
}
