package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "vetpulse/api/v1"
	"vetpulse/internal/audit"
	"vetpulse/internal/cache"
	"vetpulse/internal/config"
	"vetpulse/internal/http"
	"vetpulse/internal/http/middleware"
)

// publicCORSConfig returns the standard CORS configuration for public endpoints.
// Agents and dashboards call the API from arbitrary origins.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,PUT,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, X-API-Key",
}

// MountAppRoutes returns the route mount function wired to the shared
// handler dependencies.
func MountAppRoutes(store cache.Store, auditLog *audit.Logger) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		cfg := config.GetConfig()
		api := v1.NewAPI(store, auditLog)
		admin := http.NewAdminHandlers(store, auditLog)

		// Helper to conditionally apply rate limiting (only in production)
		// In development/test, rate limiting would interfere with testing
		conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
			return func(c *fiber.Ctx) error {
				if cfg.IsProduction() {
					return limiter(c)
				}
				return c.Next()
			}
		}

		// Rate limiter for public ingestion (70 requests per minute per IP).
		// Agents push one snapshot per day plus a trickle of events, so this
		// is generous for legitimate traffic.
		publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(70),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		// Analytics reads are cheap after the cache warms up; allow more.
		analyticsRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(300),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		// No Sec-Fetch-Site on ingestion: agents push snapshots and events
		// server-to-server and never send browser fetch metadata.
		publicAPIConfig := &cartridge.RouteConfig{
			EnableCORS:         true,
			EnableSecFetchSite: cartridge.Bool(false),
			CustomMiddleware:   []fiber.Handler{publicRateLimiter},
			CORSConfig:         publicCORSConfig,
		}

		analyticsConfig := &cartridge.RouteConfig{
			EnableCORS:       true,
			CustomMiddleware: []fiber.Handler{analyticsRateLimiter},
			CORSConfig:       publicCORSConfig,
		}

		logger := srv.GetLogger()
		// Admin writes are operator curl calls, same non-browser traffic.
		adminConfig := &cartridge.RouteConfig{
			EnableSecFetchSite: cartridge.Bool(false),
			CustomMiddleware: []fiber.Handler{
				middleware.AdminKeyAuth(cfg.AdminAPIKey, logger),
			},
		}

		// === ROOT ROUTES ===
		srv.Get("/_health", http.HealthIndexAction)
		srv.Head("/_health", http.HealthIndexAction)
		srv.App().Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

		// === INGESTION ROUTES ===
		srv.Post("/api/v1/kpi/submit", api.SubmitSnapshotHandler, publicAPIConfig)
		srv.Post("/api/v1/kpi/submit/enhanced", api.SubmitEnhancedSnapshotHandler, publicAPIConfig)
		srv.Post("/api/v1/kpi/events", api.CreateEventHandler, publicAPIConfig)
		srv.Options("/api/v1/kpi/events", func(ctx *cartridge.Context) error {
			return ctx.SendStatus(fiber.StatusNoContent)
		}, publicAPIConfig)
		srv.Put("/api/v1/kpi/centers/:code", api.UpsertCenterMetadataHandler, publicAPIConfig)

		// === CENTER READ ROUTES ===
		srv.Get("/api/v1/kpi/centers", api.ListCentersHandler, analyticsConfig)
		srv.Get("/api/v1/kpi/centers/:code/metrics", api.CenterMetricsHandler, analyticsConfig)
		srv.Get("/api/v1/kpi/stats/summary", api.StatsSummaryHandler, analyticsConfig)

		// === ANALYTICS ROUTES ===
		// Static segments before parameterized ones so /tests/top is not
		// captured by /tests/:code.
		srv.Get("/api/v1/analytics/centers/compare", api.CompareCentersHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/centers/:code/summary", api.CenterSummaryHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/centers/:code/species-profile", api.CenterSpeciesProfileHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/tests/top", api.TopTestsHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/tests/categories", api.TestCategoriesHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/tests/centers/:code", api.CenterTestsHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/tests/:code", api.TestDetailHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/species/distribution", api.SpeciesDistributionHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/species/trends", api.SpeciesTrendsHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/breeds/top", api.TopBreedsHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/breeds/:name", api.BreedDetailHandler, analyticsConfig)
		srv.Get("/api/v1/analytics/summary", api.GlobalSummaryHandler, analyticsConfig)

		// === ADMIN ROUTES ===
		srv.Delete("/admin/api/centers/:code/data", admin.PurgeCenterDataAction, adminConfig)
		srv.Post("/admin/api/cache/clear", admin.CacheClearAction, adminConfig)
		srv.Get("/admin/api/cache/stats", admin.CacheStatsAction, adminConfig)
	}
}
