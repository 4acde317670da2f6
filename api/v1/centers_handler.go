package v1

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vetpulse/internal/analytics"
	"vetpulse/internal/centers"
	"vetpulse/internal/config"
	"vetpulse/internal/ingest"
)

// ListCentersHandler returns every registered center.
func (a *API) ListCentersHandler(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	all, err := centers.GetAllCenters(db)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"centers": all,
		"total":   len(all),
	})
}

// UpsertCenterMetadataHandler applies a metadata push from the upstream
// practice-management system. Unknown codes register on the spot; the
// generated credential appears in that one response and nowhere else.
func (a *API) UpsertCenterMetadataHandler(ctx *cartridge.Context) error {
	code := ctx.Ctx.Params("code")
	if code == "" {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "center code is required",
		})
	}

	var update centers.MetadataUpdate
	if err := ctx.Ctx.BodyParser(&update); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	db := ctx.DBManager.GetConnection()
	center, apiKey, err := centers.UpsertMetadata(db, code, update)
	if err != nil {
		return respondDomainError(ctx, err)
	}

	response := fiber.Map{"center": center}
	if apiKey != "" {
		response["api_key"] = apiKey
		response["registered"] = true
	}
	return ctx.Status(http.StatusOK).JSON(response)
}

// CenterMetricsHandler returns a center's recent daily rows, newest first.
func (a *API) CenterMetricsHandler(ctx *cartridge.Context) error {
	code := ctx.Ctx.Params("code")

	days := config.GetConfig().DefaultWindowDays
	if raw := ctx.Ctx.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "days must be a positive integer",
			})
		}
		days = parsed
	}

	db := ctx.DBManager.GetConnection()
	center, err := centers.GetCenterByCode(db, code)
	if err != nil {
		return respondDomainError(ctx, err)
	}

	rows, err := ingest.GetRecentDailyMetrics(db, center.ID, days)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"center":  center.Code,
		"days":    days,
		"metrics": rows,
	})
}

// StatsSummaryHandler reports service-wide row counts and the data span.
func (a *API) StatsSummaryHandler(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	summary, err := analytics.GetStatsSummary(db)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	return ctx.Status(http.StatusOK).JSON(summary)
}
