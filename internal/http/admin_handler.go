package http

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vetpulse/internal/audit"
	"vetpulse/internal/cache"
	"vetpulse/internal/centers"
	"vetpulse/internal/ingest"
)

// AdminHandlers bundles the operator endpoints behind the admin key.
type AdminHandlers struct {
	Cache cache.Store
	Audit *audit.Logger
}

// NewAdminHandlers creates the admin handler set.
func NewAdminHandlers(store cache.Store, auditLog *audit.Logger) *AdminHandlers {
	return &AdminHandlers{Cache: store, Audit: auditLog}
}

// PurgeCenterDataAction deletes every aggregate row of one center. The
// registration and credential survive so the center can resubmit.
func (h *AdminHandlers) PurgeCenterDataAction(ctx *cartridge.Context) error {
	code := ctx.Ctx.Params("code")

	db := ctx.DBManager.GetConnection()
	center, err := centers.GetCenterByCode(db, code)
	if err != nil {
		var notFound *centers.CenterNotFoundError
		if errors.As(err, &notFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Center not found",
			})
		}
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to look up center",
		})
	}

	if err := ingest.PurgeCenterData(ctx.DBManager, ctx.Logger, center); err != nil {
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to purge center data",
		})
	}

	h.Audit.AdminPurge(center.Code)
	// Stale analytics must not outlive the purge.
	h.Cache.ClearPattern(ctx.Ctx.UserContext(), "analytics:*")

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"status": "purged",
		"center": center.Code,
	})
}

// CacheClearAction drops cached entries matching the supplied pattern,
// defaulting to every analytics response.
func (h *AdminHandlers) CacheClearAction(ctx *cartridge.Context) error {
	pattern := ctx.Ctx.Query("pattern")
	if pattern == "" {
		pattern = "analytics:*"
	}

	dropped := h.Cache.ClearPattern(ctx.Ctx.UserContext(), pattern)
	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"pattern": pattern,
		"dropped": dropped,
	})
}

// CacheStatsAction reports cache effectiveness.
func (h *AdminHandlers) CacheStatsAction(ctx *cartridge.Context) error {
	return ctx.Status(http.StatusOK).JSON(h.Cache.Stats(ctx.Ctx.UserContext()))
}
