package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"vetpulse/internal/centers"
)

// TestCount is one test entry of a snapshot submission
type TestCount struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SpeciesCount is one species entry of a snapshot submission
type SpeciesCount struct {
	Species string `json:"species"`
	Count   int    `json:"count"`
}

// BreedCount is one breed entry of a snapshot submission
type BreedCount struct {
	Breed   string `json:"breed"`
	Species string `json:"species"`
	Count   int    `json:"count"`
}

// PerformanceInput mirrors PerformanceMetric for submissions
type PerformanceInput struct {
	AvgOrderProcessingTime *int `json:"avg_order_processing_time"`
	PeakHour               *int `json:"peak_hour"`
	PeakHourOrders         *int `json:"peak_hour_orders"`
	CompletionRate         *int `json:"completion_rate"`
	SameDayCompletion      *int `json:"same_day_completion"`
	MorningOrders          int  `json:"morning_orders"`
	AfternoonOrders        int  `json:"afternoon_orders"`
	EveningOrders          int  `json:"evening_orders"`
	NightOrders            int  `json:"night_orders"`
}

// ModuleInput mirrors ModuleMetric for submissions
type ModuleInput struct {
	ModuleName      string `json:"module_name"`
	OperationsCount int    `json:"operations_count"`
	ActiveUsers     int    `json:"active_users"`
	TotalRevenue    *int   `json:"total_revenue"`
	AvgTransaction  *int   `json:"avg_transaction"`
}

// SystemUsageInput mirrors SystemUsageMetric for submissions
type SystemUsageInput struct {
	TotalActiveUsers    int  `json:"total_active_users"`
	PeakConcurrentUsers int  `json:"peak_concurrent_users"`
	AvgSessionDuration  *int `json:"avg_session_duration"`
	WebAccessCount      int  `json:"web_access_count"`
	MobileAccessCount   int  `json:"mobile_access_count"`
	DesktopAccessCount  int  `json:"desktop_access_count"`
	TotalWorkstations   int  `json:"total_workstations"`
}

// PaymentMethodInput mirrors PaymentMethodMetric for submissions
type PaymentMethodInput struct {
	PaymentMethod    string `json:"payment_method"`
	TransactionCount int    `json:"transaction_count"`
	TotalAmount      *int   `json:"total_amount"`
}

// Snapshot is a full-day submission of absolute counts. Base counters and
// the three core dimensions are full-replace; the extended blocks are
// replace-when-present, untouched-when-absent.
type Snapshot struct {
	CenterCode   string
	APIKey       string
	Date         time.Time
	TotalOrders  int
	TotalResults int
	TotalPets    int
	TotalOwners  int
	Tests        []TestCount
	Species      []SpeciesCount
	Breeds       []BreedCount

	Performance    *PerformanceInput
	Modules        []ModuleInput
	SystemUsage    *SystemUsageInput
	PaymentMethods []PaymentMethodInput
}

// ApplySnapshot authenticates the submitting center and replaces that
// center's aggregate state for the snapshot date in one transaction.
// Snapshots never auto-register: an unknown center is an authentication
// failure, same as a bad credential.
func ApplySnapshot(dbManager cartridge.DBManager, logger *slog.Logger, snap *Snapshot) (*centers.Center, error) {
	db := dbManager.GetConnection()

	center, err := centers.Authenticate(db, snap.CenterCode, snap.APIKey, true)
	if err != nil {
		var notFound *centers.CenterNotFoundError
		if errors.As(err, &notFound) {
			return nil, centers.NewUnauthorizedError(snap.CenterCode, "unknown center")
		}
		return nil, err
	}

	date := TruncateToDay(snap.Date)
	now := time.Now().UTC()

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := upsertDailyAbsolute(tx, center.ID, date, snap, now); err != nil {
			return err
		}
		if err := replaceTests(tx, center.ID, date, snap.Tests, now); err != nil {
			return err
		}
		if err := replaceSpecies(tx, center.ID, date, snap.Species, now); err != nil {
			return err
		}
		if err := replaceBreeds(tx, center.ID, date, snap.Breeds, now); err != nil {
			return err
		}
		if snap.Performance != nil {
			if err := replacePerformance(tx, center.ID, date, snap.Performance, now); err != nil {
				return err
			}
		}
		if len(snap.Modules) > 0 {
			if err := replaceModules(tx, center.ID, date, snap.Modules, now); err != nil {
				return err
			}
		}
		if snap.SystemUsage != nil {
			if err := replaceSystemUsage(tx, center.ID, date, snap.SystemUsage, now); err != nil {
				return err
			}
		}
		if len(snap.PaymentMethods) > 0 {
			if err := replacePaymentMethods(tx, center.ID, date, snap.PaymentMethods, now); err != nil {
				return err
			}
		}
		return centers.TouchLastSync(tx, center.ID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply snapshot for %s: %w", snap.CenterCode, err)
	}

	logger.Info("Applied snapshot",
		slog.String("center", center.Code),
		slog.Time("date", date),
		slog.Int("tests", len(snap.Tests)),
		slog.Int("species", len(snap.Species)),
		slog.Int("breeds", len(snap.Breeds)))
	return center, nil
}

// upsertDailyAbsolute overwrites the four base counters with the submitted
// absolute values, creating the row when missing. The ON CONFLICT form keeps
// the (center, date) uniqueness intact under concurrent writers.
func upsertDailyAbsolute(tx *gorm.DB, centerID uint, date time.Time, snap *Snapshot, now time.Time) error {
	query := `
		INSERT INTO daily_metrics (center_id, date, total_orders, total_results, total_pets, total_owners, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (center_id, date) DO UPDATE SET
			total_orders = ?,
			total_results = ?,
			total_pets = ?,
			total_owners = ?,
			updated_at = ?
	`
	return tx.Exec(query,
		centerID, date, snap.TotalOrders, snap.TotalResults, snap.TotalPets, snap.TotalOwners, now, now,
		snap.TotalOrders, snap.TotalResults, snap.TotalPets, snap.TotalOwners, now).Error
}

func replaceTests(tx *gorm.DB, centerID uint, date time.Time, tests []TestCount, now time.Time) error {
	if err := tx.Where("center_id = ? AND date = ?", centerID, date).
		Delete(&TestSummary{}).Error; err != nil {
		return fmt.Errorf("failed to clear test summaries: %w", err)
	}
	for _, t := range tests {
		name := t.Name
		if name == "" {
			name = t.Code
		}
		row := TestSummary{
			CenterID: centerID, Date: date,
			TestCode: t.Code, TestName: name, Count: t.Count,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert test summary %s: %w", t.Code, err)
		}
	}
	return nil
}

func replaceSpecies(tx *gorm.DB, centerID uint, date time.Time, species []SpeciesCount, now time.Time) error {
	if err := tx.Where("center_id = ? AND date = ?", centerID, date).
		Delete(&SpeciesSummary{}).Error; err != nil {
		return fmt.Errorf("failed to clear species summaries: %w", err)
	}
	for _, s := range species {
		row := SpeciesSummary{
			CenterID: centerID, Date: date,
			SpeciesName: NormalizeLabel(s.Species), Count: s.Count,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert species summary %s: %w", s.Species, err)
		}
	}
	return nil
}

func replaceBreeds(tx *gorm.DB, centerID uint, date time.Time, breeds []BreedCount, now time.Time) error {
	if err := tx.Where("center_id = ? AND date = ?", centerID, date).
		Delete(&BreedSummary{}).Error; err != nil {
		return fmt.Errorf("failed to clear breed summaries: %w", err)
	}
	for _, b := range breeds {
		row := BreedSummary{
			CenterID: centerID, Date: date,
			BreedName:   NormalizeLabel(b.Breed),
			SpeciesName: NormalizeLabel(b.Species),
			Count:       b.Count,
			CreatedAt:   now, UpdatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert breed summary %s: %w", b.Breed, err)
		}
	}
	return nil
}

func replacePerformance(tx *gorm.DB, centerID uint, date time.Time, in *PerformanceInput, now time.Time) error {
	if err := tx.Where("center_id = ? AND date = ?", centerID, date).
		Delete(&PerformanceMetric{}).Error; err != nil {
		return fmt.Errorf("failed to clear performance metric: %w", err)
	}
	row := PerformanceMetric{
		CenterID: centerID, Date: date,
		AvgOrderProcessingTime: in.AvgOrderProcessingTime,
		PeakHour:               in.PeakHour,
		PeakHourOrders:         in.PeakHourOrders,
		CompletionRate:         in.CompletionRate,
		SameDayCompletion:      in.SameDayCompletion,
		MorningOrders:          in.MorningOrders,
		AfternoonOrders:        in.AfternoonOrders,
		EveningOrders:          in.EveningOrders,
		NightOrders:            in.NightOrders,
		CreatedAt:              now, UpdatedAt: now,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert performance metric: %w", err)
	}
	return nil
}

func replaceModules(tx *gorm.DB, centerID uint, date time.Time, modules []ModuleInput, now time.Time) error {
	if err := tx.Where("center_id = ? AND date = ?", centerID, date).
		Delete(&ModuleMetric{}).Error; err != nil {
		return fmt.Errorf("failed to clear module metrics: %w", err)
	}
	for _, m := range modules {
		row := ModuleMetric{
			CenterID: centerID, Date: date,
			ModuleName:      m.ModuleName,
			OperationsCount: m.OperationsCount,
			ActiveUsers:     m.ActiveUsers,
			TotalRevenue:    m.TotalRevenue,
			AvgTransaction:  m.AvgTransaction,
			CreatedAt:       now, UpdatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert module metric %s: %w", m.ModuleName, err)
		}
	}
	return nil
}

func replaceSystemUsage(tx *gorm.DB, centerID uint, date time.Time, in *SystemUsageInput, now time.Time) error {
	if err := tx.Where("center_id = ? AND date = ?", centerID, date).
		Delete(&SystemUsageMetric{}).Error; err != nil {
		return fmt.Errorf("failed to clear system usage metric: %w", err)
	}
	row := SystemUsageMetric{
		CenterID: centerID, Date: date,
		TotalActiveUsers:    in.TotalActiveUsers,
		PeakConcurrentUsers: in.PeakConcurrentUsers,
		AvgSessionDuration:  in.AvgSessionDuration,
		WebAccessCount:      in.WebAccessCount,
		MobileAccessCount:   in.MobileAccessCount,
		DesktopAccessCount:  in.DesktopAccessCount,
		TotalWorkstations:   in.TotalWorkstations,
		CreatedAt:           now, UpdatedAt: now,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert system usage metric: %w", err)
	}
	return nil
}

func replacePaymentMethods(tx *gorm.DB, centerID uint, date time.Time, methods []PaymentMethodInput, now time.Time) error {
	if err := tx.Where("center_id = ? AND date = ?", centerID, date).
		Delete(&PaymentMethodMetric{}).Error; err != nil {
		return fmt.Errorf("failed to clear payment method metrics: %w", err)
	}
	for _, p := range methods {
		row := PaymentMethodMetric{
			CenterID: centerID, Date: date,
			PaymentMethod:    p.PaymentMethod,
			TransactionCount: p.TransactionCount,
			TotalAmount:      p.TotalAmount,
			CreatedAt:        now, UpdatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert payment method metric %s: %w", p.PaymentMethod, err)
		}
	}
	return nil
}

// GetRecentDailyMetrics returns the daily rows for one center over the last
// daysBack days, newest first.
func GetRecentDailyMetrics(db *gorm.DB, centerID uint, daysBack int) ([]DailyMetric, error) {
	since := TruncateToDay(time.Now().UTC().AddDate(0, 0, -daysBack))
	var rows []DailyMetric
	err := db.Where("center_id = ? AND date >= ?", centerID, since).
		Order("date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily metrics: %w", err)
	}
	return rows, nil
}

// PurgeCenterData removes every aggregate row belonging to a center and
// clears its sync marker. The registration itself survives so the center
// can resubmit with the same credential.
func PurgeCenterData(dbManager cartridge.DBManager, logger *slog.Logger, center *centers.Center) error {
	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		for _, model := range []any{
			&DailyMetric{}, &TestSummary{}, &SpeciesSummary{}, &BreedSummary{},
			&PerformanceMetric{}, &ModuleMetric{}, &SystemUsageMetric{}, &PaymentMethodMetric{},
		} {
			if err := tx.Where("center_id = ?", center.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to purge aggregates: %w", err)
			}
		}
		return centers.ResetLastSync(tx, center.ID)
	})
	if err != nil {
		return err
	}

	logger.Info("Purged center data", slog.String("center", center.Code))
	return nil
}
