package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vetpulse/internal/audit"
	"vetpulse/internal/cache"
	"vetpulse/internal/ingest"
	"vetpulse/internal/monitoring"
	"vetpulse/internal/timeframe"
)

// API bundles the shared dependencies of the public handlers.
type API struct {
	Cache cache.Store
	Audit *audit.Logger
}

// NewAPI creates the public handler set.
func NewAPI(store cache.Store, auditLog *audit.Logger) *API {
	return &API{Cache: store, Audit: auditLog}
}

// SnapshotParams is the wire format of a daily snapshot submission.
type SnapshotParams struct {
	CenterCode   string                `json:"center_code"`
	APIKey       string                `json:"api_key"`
	Date         string                `json:"date"`
	TotalOrders  int                   `json:"total_orders"`
	TotalResults int                   `json:"total_results"`
	TotalPets    int                   `json:"total_pets"`
	TotalOwners  int                   `json:"total_owners"`
	Tests        []ingest.TestCount    `json:"tests"`
	Species      []ingest.SpeciesCount `json:"species"`
	Breeds       []ingest.BreedCount   `json:"breeds"`

	Performance    *ingest.PerformanceInput    `json:"performance"`
	Modules        []ingest.ModuleInput        `json:"modules"`
	SystemUsage    *ingest.SystemUsageInput    `json:"system_usage"`
	PaymentMethods []ingest.PaymentMethodInput `json:"payment_methods"`
}

// SubmitSnapshotHandler accepts the base daily snapshot.
func (a *API) SubmitSnapshotHandler(ctx *cartridge.Context) error {
	return a.applySnapshot(ctx, false)
}

// SubmitEnhancedSnapshotHandler accepts a snapshot with the extended blocks.
func (a *API) SubmitEnhancedSnapshotHandler(ctx *cartridge.Context) error {
	return a.applySnapshot(ctx, true)
}

func (a *API) applySnapshot(ctx *cartridge.Context, enhanced bool) error {
	var params SnapshotParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	if params.CenterCode == "" {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "center_code is required",
		})
	}
	date, err := time.Parse(timeframe.DateLayout, params.Date)
	if err != nil {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "date must be formatted YYYY-MM-DD",
		})
	}

	snap := &ingest.Snapshot{
		CenterCode:   params.CenterCode,
		APIKey:       apiKeyFrom(ctx, params.APIKey),
		Date:         date,
		TotalOrders:  params.TotalOrders,
		TotalResults: params.TotalResults,
		TotalPets:    params.TotalPets,
		TotalOwners:  params.TotalOwners,
		Tests:        params.Tests,
		Species:      params.Species,
		Breeds:       params.Breeds,
	}
	if enhanced {
		snap.Performance = params.Performance
		snap.Modules = params.Modules
		snap.SystemUsage = params.SystemUsage
		snap.PaymentMethods = params.PaymentMethods
	}

	center, err := ingest.ApplySnapshot(ctx.DBManager, ctx.Logger, snap)
	if err != nil {
		ctx.Logger.Warn("Snapshot rejected",
			slog.String("center", params.CenterCode),
			slog.Any("error", err))
		a.Audit.Snapshot(params.CenterCode, date, false, err.Error())
		return respondDomainError(ctx, err)
	}

	monitoring.SnapshotsAccepted.WithLabelValues(center.Code).Inc()
	a.Audit.Snapshot(center.Code, date, true, "")

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"status": "ok",
		"center": center.Code,
		"date":   params.Date,
	})
}

// EventParams is the wire format of a real-time event submission.
type EventParams struct {
	CenterCode string              `json:"center_code"`
	APIKey     string              `json:"api_key"`
	EventType  string              `json:"event_type"`
	Timestamp  *time.Time          `json:"timestamp"`
	Data       ingest.EventPayload `json:"data"`
}

// CreateEventHandler accepts one real-time event and folds it into the
// aggregates for the event's own date.
func (a *API) CreateEventHandler(ctx *cartridge.Context) error {
	var params EventParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	if params.CenterCode == "" {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "center_code is required",
		})
	}
	if !ingest.ValidEventType(ingest.EventType(params.EventType)) {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "unknown event_type",
		})
	}

	timestamp := time.Now().UTC()
	if params.Timestamp != nil {
		timestamp = *params.Timestamp
	}

	event := &ingest.Event{
		CenterCode: params.CenterCode,
		APIKey:     apiKeyFrom(ctx, params.APIKey),
		Type:       ingest.EventType(params.EventType),
		Timestamp:  timestamp,
		Payload:    params.Data,
	}

	center, err := ingest.ApplyEvent(ctx.DBManager, ctx.Logger, event)
	if err != nil {
		ctx.Logger.Warn("Event rejected",
			slog.String("center", params.CenterCode),
			slog.String("type", params.EventType),
			slog.Any("error", err))
		a.Audit.Event(params.CenterCode, params.EventType, false, err.Error())
		return respondDomainError(ctx, err)
	}

	monitoring.EventsAccepted.WithLabelValues(center.Code, params.EventType).Inc()
	a.Audit.Event(center.Code, params.EventType, true, "")

	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
		"center": center.Code,
	})
}
