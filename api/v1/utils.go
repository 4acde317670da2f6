package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vetpulse/internal/analytics"
	"vetpulse/internal/centers"
	"vetpulse/internal/config"
	"vetpulse/internal/monitoring"
	"vetpulse/internal/timeframe"
)

const errInvalidRequest = "Invalid request"

// apiKeyFrom resolves the submitting credential. The header is the supported
// transport; the body field is still honored for older agents but the header
// wins when both are present.
func apiKeyFrom(ctx *cartridge.Context, bodyKey string) string {
	if header := ctx.Get("X-API-Key"); header != "" {
		return header
	}
	return bodyKey
}

// windowFromQuery builds the reporting window from request query parameters.
func windowFromQuery(c *fiber.Ctx) (timeframe.Window, error) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return timeframe.Window{}, timeframe.NewInvalidWindowError("days must be an integer")
		}
		days = parsed
	}

	parser := timeframe.NewParser()
	return parser.Parse(timeframe.Params{
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
		Days:        days,
		DefaultDays: config.GetConfig().DefaultWindowDays,
	})
}

// limitFromQuery parses the optional result limit, falling back to the
// analytics default.
func limitFromQuery(c *fiber.Ctx) int {
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return analytics.DefaultLimit
}

// respondDomainError maps domain errors onto HTTP statuses. 599 signals a
// transient SQLite writer conflict; agents retry on it.
func respondDomainError(ctx *cartridge.Context, err error) error {
	if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "busy") {
		return ctx.Status(599).JSON(fiber.Map{})
	}

	var unauthorized *centers.UnauthorizedError
	if errors.As(err, &unauthorized) {
		monitoring.AuthRejections.WithLabelValues(unauthorized.Reason).Inc()
		return ctx.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
			"code":  "UNAUTHORIZED",
		})
	}

	var centerNotFound *centers.CenterNotFoundError
	if errors.As(err, &centerNotFound) {
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "Center not found",
			"code":  "CENTER_NOT_FOUND",
		})
	}

	var testNotFound *analytics.TestNotFoundError
	if errors.As(err, &testNotFound) {
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "No data for this test code",
			"code":  "TEST_NOT_FOUND",
		})
	}

	var breedNotFound *analytics.BreedNotFoundError
	if errors.As(err, &breedNotFound) {
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "No data for this breed",
			"code":  "BREED_NOT_FOUND",
		})
	}

	var invalidWindow *timeframe.InvalidWindowError
	if errors.As(err, &invalidWindow) {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": invalidWindow.Reason,
			"code":  "INVALID_WINDOW",
		})
	}

	response := fiber.Map{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	}
	if config.GetConfig().Environment != "production" {
		response["detail"] = err.Error()
	}
	return ctx.Status(http.StatusInternalServerError).JSON(response)
}
