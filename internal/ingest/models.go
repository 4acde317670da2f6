package ingest

import "time"

// DailyMetric is the per-(center, date) row holding the four base counters.
// The composite unique index is the invariant the whole write path leans on:
// snapshots overwrite it, events increment it, never more than one row.
type DailyMetric struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	CenterID     uint      `gorm:"uniqueIndex:idx_daily_metrics_center_date;not null"`
	Date         time.Time `gorm:"uniqueIndex:idx_daily_metrics_center_date;not null"`
	TotalOrders  int       `gorm:"not null;default:0"`
	TotalResults int       `gorm:"not null;default:0"`
	TotalPets    int       `gorm:"not null;default:0"`
	TotalOwners  int       `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TestSummary counts laboratory test requests per (center, date, test code).
type TestSummary struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CenterID  uint      `gorm:"uniqueIndex:idx_test_summaries_unique;not null"`
	Date      time.Time `gorm:"uniqueIndex:idx_test_summaries_unique;not null"`
	TestCode  string    `gorm:"uniqueIndex:idx_test_summaries_unique;size:32;not null"`
	TestName  string
	Count     int `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SpeciesSummary counts patients per (center, date, species).
type SpeciesSummary struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	CenterID    uint      `gorm:"uniqueIndex:idx_species_summaries_unique;not null"`
	Date        time.Time `gorm:"uniqueIndex:idx_species_summaries_unique;not null"`
	SpeciesName string    `gorm:"uniqueIndex:idx_species_summaries_unique;size:64;not null"`
	Count       int       `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BreedSummary counts patients per (center, date, breed, species).
// Breed alone is not unique: "Rex" exists for both cats and rabbits.
type BreedSummary struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	CenterID    uint      `gorm:"uniqueIndex:idx_breed_summaries_unique;not null"`
	Date        time.Time `gorm:"uniqueIndex:idx_breed_summaries_unique;not null"`
	BreedName   string    `gorm:"uniqueIndex:idx_breed_summaries_unique;size:64;not null"`
	SpeciesName string    `gorm:"uniqueIndex:idx_breed_summaries_unique;size:64;not null"`
	Count       int       `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PerformanceMetric is an optional per-(center, date) enrichment row.
// Pointer fields distinguish "not measured" from a measured zero.
type PerformanceMetric struct {
	ID                      uint      `gorm:"primaryKey;autoIncrement"`
	CenterID                uint      `gorm:"uniqueIndex:idx_performance_metrics_center_date;not null"`
	Date                    time.Time `gorm:"uniqueIndex:idx_performance_metrics_center_date;not null"`
	AvgOrderProcessingTime  *int      // minutes
	PeakHour                *int      // 0-23
	PeakHourOrders          *int
	CompletionRate          *int // 0-100
	SameDayCompletion       *int
	MorningOrders           int `gorm:"not null;default:0"`
	AfternoonOrders         int `gorm:"not null;default:0"`
	EveningOrders           int `gorm:"not null;default:0"`
	NightOrders             int `gorm:"not null;default:0"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ModuleMetric tracks usage of one practice-management module for a day.
type ModuleMetric struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	CenterID        uint      `gorm:"uniqueIndex:idx_module_metrics_unique;not null"`
	Date            time.Time `gorm:"uniqueIndex:idx_module_metrics_unique;not null"`
	ModuleName      string    `gorm:"uniqueIndex:idx_module_metrics_unique;size:64;not null"`
	OperationsCount int       `gorm:"not null;default:0"`
	ActiveUsers     int       `gorm:"not null;default:0"`
	TotalRevenue    *int      // cents
	AvgTransaction  *int      // cents
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SystemUsageMetric is an optional per-(center, date) access/usage row.
type SystemUsageMetric struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement"`
	CenterID            uint      `gorm:"uniqueIndex:idx_system_usage_metrics_center_date;not null"`
	Date                time.Time `gorm:"uniqueIndex:idx_system_usage_metrics_center_date;not null"`
	TotalActiveUsers    int       `gorm:"not null;default:0"`
	PeakConcurrentUsers int       `gorm:"not null;default:0"`
	AvgSessionDuration  *int      // minutes
	WebAccessCount      int       `gorm:"not null;default:0"`
	MobileAccessCount   int       `gorm:"not null;default:0"`
	DesktopAccessCount  int       `gorm:"not null;default:0"`
	TotalWorkstations   int       `gorm:"not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PaymentMethodMetric tracks one payment channel for a day.
type PaymentMethodMetric struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	CenterID         uint      `gorm:"uniqueIndex:idx_payment_method_metrics_unique;not null"`
	Date             time.Time `gorm:"uniqueIndex:idx_payment_method_metrics_unique;not null"`
	PaymentMethod    string    `gorm:"uniqueIndex:idx_payment_method_metrics_unique;size:32;not null"`
	TransactionCount int       `gorm:"not null;default:0"`
	TotalAmount      *int      // cents
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TruncateToDay normalizes a timestamp to its UTC calendar date. Every
// aggregate row keys on the value this returns.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
