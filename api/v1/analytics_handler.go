package v1

import (
	"encoding/json"
	"net/http"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"vetpulse/internal/analytics"
	"vetpulse/internal/cache"
	"vetpulse/internal/monitoring"
	"vetpulse/internal/timeframe"
)

// cacheArgs are the request parameters a cached analytics response depends on.
type cacheArgs struct {
	Since string `json:"since"`
	Days  int    `json:"days"`
	Limit int    `json:"limit,omitempty"`
	Code  string `json:"code,omitempty"`
}

func argsFor(window timeframe.Window, limit int, code string) cacheArgs {
	return cacheArgs{
		Since: window.Since.Format(timeframe.DateLayout),
		Days:  window.Days,
		Limit: limit,
		Code:  code,
	}
}

// respondCached serves the response from the cache when present, otherwise
// computes it and caches the result. Cache failures are silent misses.
func (a *API) respondCached(ctx *cartridge.Context, key string, compute func(db *gorm.DB) (any, error)) error {
	reqCtx := ctx.Ctx.UserContext()

	var cached json.RawMessage
	if a.Cache.Get(reqCtx, key, &cached) {
		monitoring.CacheHits.Inc()
		ctx.Ctx.Set("X-Cache", "HIT")
		ctx.Ctx.Type("json")
		return ctx.Ctx.Status(http.StatusOK).Send(cached)
	}
	monitoring.CacheMisses.Inc()

	result, err := compute(ctx.DBManager.GetConnection())
	if err != nil {
		return respondDomainError(ctx, err)
	}

	a.Cache.Set(reqCtx, key, result, 0)
	ctx.Ctx.Set("X-Cache", "MISS")
	return ctx.Status(http.StatusOK).JSON(result)
}

// CenterSummaryHandler serves the per-center activity report.
func (a *API) CenterSummaryHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	code := ctx.Ctx.Params("code")

	key := cache.Key("analytics:center_summary", argsFor(window, 0, code))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetCenterSummary(db, code, analytics.NewQueryParams(window, 0))
	})
}

// CompareCentersHandler serves the network-wide center ranking.
func (a *API) CompareCentersHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}

	key := cache.Key("analytics:compare_centers", argsFor(window, 0, ""))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.CompareCenters(db, analytics.NewQueryParams(window, 0))
	})
}

// TopTestsHandler serves the network-wide test ranking.
func (a *API) TopTestsHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	limit := limitFromQuery(ctx.Ctx)

	key := cache.Key("analytics:top_tests", argsFor(window, limit, ""))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetTopTests(db, analytics.NewQueryParams(window, limit))
	})
}

// TestDetailHandler serves the per-test-code report.
func (a *API) TestDetailHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	code := ctx.Ctx.Params("code")

	key := cache.Key("analytics:test_detail", argsFor(window, 0, code))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetTestDetail(db, code, analytics.NewQueryParams(window, 0))
	})
}

// CenterTestsHandler serves one center's test catalog with uniqueness flags.
func (a *API) CenterTestsHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	code := ctx.Ctx.Params("code")

	key := cache.Key("analytics:center_tests", argsFor(window, 0, code))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetCenterTests(db, code, analytics.NewQueryParams(window, 0))
	})
}

// TestCategoriesHandler serves test volume grouped by clinical panel.
func (a *API) TestCategoriesHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}

	key := cache.Key("analytics:test_categories", argsFor(window, 0, ""))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetTestCategories(db, analytics.NewQueryParams(window, 0))
	})
}

// SpeciesDistributionHandler serves the network species mix.
func (a *API) SpeciesDistributionHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}

	key := cache.Key("analytics:species_distribution", argsFor(window, 0, ""))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetSpeciesDistribution(db, analytics.NewQueryParams(window, 0))
	})
}

// SpeciesTrendsHandler serves daily trends for the top species.
func (a *API) SpeciesTrendsHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}

	key := cache.Key("analytics:species_trends", argsFor(window, 0, ""))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetSpeciesTrends(db, analytics.NewQueryParams(window, 0))
	})
}

// TopBreedsHandler serves the breed ranking, optionally scoped to a species.
func (a *API) TopBreedsHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	limit := limitFromQuery(ctx.Ctx)
	species := ctx.Ctx.Query("species")

	key := cache.Key("analytics:top_breeds", argsFor(window, limit, species))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetTopBreeds(db, species, analytics.NewQueryParams(window, limit))
	})
}

// CenterSpeciesProfileHandler contrasts a center's patient mix with the network.
func (a *API) CenterSpeciesProfileHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	code := ctx.Ctx.Params("code")

	key := cache.Key("analytics:center_species_profile", argsFor(window, 0, code))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetCenterSpeciesProfile(db, code, analytics.NewQueryParams(window, 0))
	})
}

// BreedDetailHandler serves the per-breed report.
func (a *API) BreedDetailHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	breed := ctx.Ctx.Params("name")

	key := cache.Key("analytics:breed_detail", argsFor(window, 0, breed))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetBreedDetail(db, breed, analytics.NewQueryParams(window, 0))
	})
}

// GlobalSummaryHandler serves the combined network overview.
func (a *API) GlobalSummaryHandler(ctx *cartridge.Context) error {
	window, err := windowFromQuery(ctx.Ctx)
	if err != nil {
		return respondDomainError(ctx, err)
	}
	limit := limitFromQuery(ctx.Ctx)

	key := cache.Key("analytics:global_summary", argsFor(window, limit, ""))
	return a.respondCached(ctx, key, func(db *gorm.DB) (any, error) {
		return analytics.GetGlobalSummary(db, analytics.NewQueryParams(window, limit))
	})
}
