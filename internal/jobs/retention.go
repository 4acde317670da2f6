package jobs

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"vetpulse/internal/config"
	"vetpulse/internal/ingest"
)

// RetentionJob deletes aggregate rows older than the retention window.
type RetentionJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewRetentionJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *RetentionJob {
	return &RetentionJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run removes aggregate rows older than the retention period across all
// metric tables. Deletion happens in batches so the writer lock is never
// held long enough to starve ingestion.
func (j *RetentionJob) Run() error {
	retentionDays := j.cfg.AggregateRetentionDays
	db := j.dbManager.GetConnection()
	cutoffDate := ingest.TruncateToDay(time.Now().UTC().AddDate(0, 0, -retentionDays))

	j.logger.Info("Starting retention pass",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	models := []any{
		&ingest.DailyMetric{},
		&ingest.TestSummary{},
		&ingest.SpeciesSummary{},
		&ingest.BreedSummary{},
		&ingest.PerformanceMetric{},
		&ingest.ModuleMetric{},
		&ingest.SystemUsageMetric{},
		&ingest.PaymentMethodMetric{},
	}

	batchSize := 1000
	totalDeleted := int64(0)

	for _, model := range models {
		for {
			result := db.Where("date < ?", cutoffDate).
				Limit(batchSize).
				Delete(model)

			if result.Error != nil {
				j.logger.Error("Failed to delete expired aggregate rows",
					slog.Any("error", result.Error),
					slog.Int64("deleted_so_far", totalDeleted))
				return result.Error
			}

			totalDeleted += result.RowsAffected

			if result.RowsAffected < int64(batchSize) {
				break
			}

			// Small delay between batches to prevent database lock contention
			time.Sleep(100 * time.Millisecond)
		}
	}

	if totalDeleted == 0 {
		j.logger.Debug("No expired aggregate rows to clean up")
		return nil
	}

	j.logger.Info("Retention pass completed",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))

	return nil
}
