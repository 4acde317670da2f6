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

// EventType identifies the real-time occurrence a center reports.
type EventType string

const (
	EventOrderCreated  EventType = "order_created"
	EventResultCreated EventType = "result_created"
	EventPetCreated    EventType = "pet_created"
	EventOwnerCreated  EventType = "owner_created"
)

// ValidEventType reports whether t is one of the four supported event types.
func ValidEventType(t EventType) bool {
	switch t {
	case EventOrderCreated, EventResultCreated, EventPetCreated, EventOwnerCreated:
		return true
	}
	return false
}

// EventPayload carries the optional dimensional data attached to an event.
type EventPayload struct {
	Tests   []string `json:"tests"`
	Species string   `json:"species"`
	Breed   string   `json:"breed"`
}

// Event is one real-time occurrence. Unlike snapshots it is ephemeral:
// it is folded into the aggregate rows and never stored on its own.
// The event's own timestamp picks the target date, so late or out-of-order
// events still land on the day they happened.
type Event struct {
	CenterCode string
	APIKey     string
	Type       EventType
	Timestamp  time.Time
	Payload    EventPayload
}

// ApplyEvent folds one event into the aggregate rows for the event's date.
// An unknown center code self-registers with the supplied credential; a
// known center must present a matching credential. All counter updates are
// upsert-increments so concurrent events for the same (center, date,
// dimension) never lose an update.
func ApplyEvent(dbManager cartridge.DBManager, logger *slog.Logger, event *Event) (*centers.Center, error) {
	if !ValidEventType(event.Type) {
		return nil, fmt.Errorf("invalid event type: %s", event.Type)
	}

	db := dbManager.GetConnection()

	center, err := centers.Authenticate(db, event.CenterCode, event.APIKey, false)
	if err != nil {
		var notFound *centers.CenterNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// First contact from this installation: register it with the
		// credential it chose. The code doubles as the display name until
		// a metadata update supplies the real one.
		center, err = centers.RegisterCenter(db, event.CenterCode, event.CenterCode, event.APIKey)
		if err != nil {
			return nil, err
		}
		logger.Info("Auto-registered center from event", slog.String("center", event.CenterCode))
	}

	date := TruncateToDay(event.Timestamp)
	now := time.Now().UTC()

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := incrementDailyCounter(tx, center.ID, date, event.Type, now); err != nil {
			return err
		}

		switch event.Type {
		case EventOrderCreated:
			for _, code := range event.Payload.Tests {
				if code == "" {
					continue
				}
				if err := incrementTestCount(tx, center.ID, date, code, now); err != nil {
					return err
				}
			}
			if err := incrementSpeciesAndBreed(tx, center.ID, date, event.Payload, now); err != nil {
				return err
			}
		case EventPetCreated:
			if err := incrementSpeciesAndBreed(tx, center.ID, date, event.Payload, now); err != nil {
				return err
			}
		}

		return centers.TouchLastSync(tx, center.ID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply event for %s: %w", event.CenterCode, err)
	}

	logger.Debug("Applied event",
		slog.String("center", center.Code),
		slog.String("type", string(event.Type)),
		slog.Time("date", date))
	return center, nil
}

func incrementSpeciesAndBreed(tx *gorm.DB, centerID uint, date time.Time, payload EventPayload, now time.Time) error {
	species := NormalizeLabel(payload.Species)
	if species == "" {
		return nil
	}
	if err := incrementSpeciesCount(tx, centerID, date, species, now); err != nil {
		return err
	}
	breed := NormalizeLabel(payload.Breed)
	if breed == "" {
		return nil
	}
	return incrementBreedCount(tx, centerID, date, breed, species, now)
}

// counterColumn maps an event type onto the DailyMetric column it bumps.
func counterColumn(t EventType) string {
	switch t {
	case EventOrderCreated:
		return "total_orders"
	case EventResultCreated:
		return "total_results"
	case EventPetCreated:
		return "total_pets"
	default:
		return "total_owners"
	}
}

func incrementDailyCounter(tx *gorm.DB, centerID uint, date time.Time, t EventType, now time.Time) error {
	column := counterColumn(t)
	orders, results, pets, owners := 0, 0, 0, 0
	switch t {
	case EventOrderCreated:
		orders = 1
	case EventResultCreated:
		results = 1
	case EventPetCreated:
		pets = 1
	default:
		owners = 1
	}

	query := fmt.Sprintf(`
		INSERT INTO daily_metrics (center_id, date, total_orders, total_results, total_pets, total_owners, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (center_id, date) DO UPDATE SET
			%s = daily_metrics.%s + 1,
			updated_at = ?
	`, column, column)
	if err := tx.Exec(query, centerID, date, orders, results, pets, owners, now, now, now).Error; err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return nil
}

func incrementTestCount(tx *gorm.DB, centerID uint, date time.Time, code string, now time.Time) error {
	query := `
		INSERT INTO test_summaries (center_id, date, test_code, test_name, count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (center_id, date, test_code) DO UPDATE SET
			count = test_summaries.count + 1,
			updated_at = ?
	`
	// The code stands in for the display name until a snapshot supplies it.
	return tx.Exec(query, centerID, date, code, code, now, now, now).Error
}

func incrementSpeciesCount(tx *gorm.DB, centerID uint, date time.Time, species string, now time.Time) error {
	query := `
		INSERT INTO species_summaries (center_id, date, species_name, count, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (center_id, date, species_name) DO UPDATE SET
			count = species_summaries.count + 1,
			updated_at = ?
	`
	return tx.Exec(query, centerID, date, species, now, now, now).Error
}

func incrementBreedCount(tx *gorm.DB, centerID uint, date time.Time, breed, species string, now time.Time) error {
	query := `
		INSERT INTO breed_summaries (center_id, date, breed_name, species_name, count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (center_id, date, breed_name, species_name) DO UPDATE SET
			count = breed_summaries.count + 1,
			updated_at = ?
	`
	return tx.Exec(query, centerID, date, breed, species, now, now, now).Error
}
