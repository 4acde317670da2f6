package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vetpulse/internal"
	"vetpulse/internal/audit"
	"vetpulse/internal/cache"
	"vetpulse/internal/centers"
	"vetpulse/internal/config"
	"vetpulse/internal/ingest"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with vetpulse's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all vetpulse models for migration
func allModels() []any {
	return []any{
		&centers.Center{},
		&ingest.DailyMetric{},
		&ingest.TestSummary{},
		&ingest.SpeciesSummary{},
		&ingest.BreedSummary{},
		&ingest.PerformanceMetric{},
		&ingest.ModuleMetric{},
		&ingest.SystemUsageMetric{},
		&ingest.PaymentMethodMetric{},
	}
}

// SetupTestDB creates a test database with all vetpulse models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	// Check cache first
	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	// Create a unique named in-memory database for each test
	// cache=shared allows multiple connections to the same database
	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	// Apply SQLite pragmas
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	// Auto-migrate models
	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	// Cache the database
	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	// Register cleanup
	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set VETPULSE_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	var tables []string
	for _, name := range tableNames {
		if name != "migrations" && name != "schema_migrations" {
			tables = append(tables, name)
		}
	}

	if len(tables) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CleanAllAggregates clears every aggregate table but keeps centers
func CleanAllAggregates(db *gorm.DB) {
	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{
			"daily_metrics", "test_summaries", "species_summaries", "breed_summaries",
			"performance_metrics", "module_metrics", "system_usage_metrics", "payment_method_metrics",
		} {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestCenter registers a center with the given code and credential.
// MinCost keeps bcrypt cheap; test credentials protect nothing.
func CreateTestCenter(t *testing.T, db *gorm.DB, code, apiKey string) *centers.Center {
	t.Helper()

	var existing centers.Center
	if db.Where("code = ?", code).First(&existing).Error == nil {
		return &existing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.MinCost)
	require.NoError(t, err)

	center := &centers.Center{
		Code:         code,
		Name:         "Centro " + code,
		Country:      centers.DefaultCountry,
		APIKeyHash:   string(hash),
		Active:       true,
		RegisteredAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(center).Error)
	return center
}

// DaysAgo returns the UTC date N whole days before today
func DaysAgo(n int) time.Time {
	return ingest.TruncateToDay(time.Now().UTC().AddDate(0, 0, -n))
}

// SeedDailyMetric inserts one daily counter row
func SeedDailyMetric(t *testing.T, db *gorm.DB, centerID uint, date time.Time, orders, results, pets, owners int) {
	t.Helper()
	row := ingest.DailyMetric{
		CenterID: centerID, Date: date,
		TotalOrders: orders, TotalResults: results,
		TotalPets: pets, TotalOwners: owners,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&row).Error)
}

// SeedTestSummary inserts one test count row
func SeedTestSummary(t *testing.T, db *gorm.DB, centerID uint, date time.Time, code string, count int) {
	t.Helper()
	row := ingest.TestSummary{
		CenterID: centerID, Date: date,
		TestCode: code, TestName: code, Count: count,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&row).Error)
}

// SeedSpeciesSummary inserts one species count row
func SeedSpeciesSummary(t *testing.T, db *gorm.DB, centerID uint, date time.Time, species string, count int) {
	t.Helper()
	row := ingest.SpeciesSummary{
		CenterID: centerID, Date: date,
		SpeciesName: species, Count: count,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&row).Error)
}

// SeedBreedSummary inserts one breed count row
func SeedBreedSummary(t *testing.T, db *gorm.DB, centerID uint, date time.Time, breed, species string, count int) {
	t.Helper()
	row := ingest.BreedSummary{
		CenterID: centerID, Date: date,
		BreedName: breed, SpeciesName: species, Count: count,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&row).Error)
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateMinimalTestApp creates a test Fiber app with all routes.
// The cache is the no-op store so handler tests exercise the database path.
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(cache.Disabled{}, audit.Disabled())(srv)
	return srv.App()
}
