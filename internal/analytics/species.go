package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"vetpulse/internal/centers"
)

// BreedNotFoundError signals a breed with no recorded activity in the window
type BreedNotFoundError struct {
	Breed string
}

func (e *BreedNotFoundError) Error() string {
	return fmt.Sprintf("no data for breed: %s", e.Breed)
}

// NewBreedNotFoundError creates a new BreedNotFoundError
func NewBreedNotFoundError(breed string) *BreedNotFoundError {
	return &BreedNotFoundError{Breed: breed}
}

// SpeciesShare is one species' share of the network patient volume.
type SpeciesShare struct {
	SpeciesName string  `json:"species_name"`
	Total       int64   `json:"total"`
	NumCenters  int64   `json:"num_centers"`
	AvgPerDay   float64 `json:"avg_per_day"`
	Percentage  float64 `json:"percentage"`
}

// SpeciesDistribution reports the network patient mix, with daily trends
// for the three most common species.
type SpeciesDistribution struct {
	Period  Period                  `json:"period"`
	Species []SpeciesShare          `json:"species"`
	Trends  map[string][]DailyPoint `json:"trends"`
}

// GetSpeciesDistribution computes the network-wide species mix. Trends are
// limited to the top three species, which is what the dashboard charts.
func GetSpeciesDistribution(db *gorm.DB, params QueryParams) (*SpeciesDistribution, error) {
	window := params.Window
	dist := &SpeciesDistribution{
		Period: PeriodFromWindow(window),
		Trends: make(map[string][]DailyPoint),
	}

	query := `
    SELECT
        species_name,
        SUM(count) as total,
        COUNT(DISTINCT center_id) as num_centers,
        AVG(count) as avg_per_day
    FROM species_summaries
    WHERE date >= ?
    GROUP BY species_name
    ORDER BY total DESC
    `
	if err := db.Raw(query, window.Since).Scan(&dist.Species).Error; err != nil {
		return nil, fmt.Errorf("error fetching species distribution: %w", err)
	}

	var grandTotal int64
	for _, s := range dist.Species {
		grandTotal += s.Total
	}
	for i := range dist.Species {
		dist.Species[i].AvgPerDay = Round2(dist.Species[i].AvgPerDay)
		dist.Species[i].Percentage = Percentage(dist.Species[i].Total, grandTotal)
	}

	for i, s := range dist.Species {
		if i >= 3 {
			break
		}
		trend, err := speciesTrend(db, s.SpeciesName, window.Since)
		if err != nil {
			return nil, err
		}
		dist.Trends[s.SpeciesName] = trend
	}

	return dist, nil
}

func speciesTrend(db *gorm.DB, species string, since any) ([]DailyPoint, error) {
	var trend []DailyPoint
	query := `
    SELECT
        strftime('%Y-%m-%d', date) as date,
        SUM(count) as count
    FROM species_summaries
    WHERE species_name = ? AND date >= ?
    GROUP BY strftime('%Y-%m-%d', date)
    ORDER BY date ASC
    `
	if err := db.Raw(query, species, since).Scan(&trend).Error; err != nil {
		return nil, fmt.Errorf("error fetching trend for species %s: %w", species, err)
	}
	return trend, nil
}

// SpeciesTrends holds daily trends for the most common species.
type SpeciesTrends struct {
	Period Period                  `json:"period"`
	Trends map[string][]DailyPoint `json:"trends"`
}

// GetSpeciesTrends returns the daily trend for the three most common species.
func GetSpeciesTrends(db *gorm.DB, params QueryParams) (*SpeciesTrends, error) {
	window := params.Window
	result := &SpeciesTrends{
		Period: PeriodFromWindow(window),
		Trends: make(map[string][]DailyPoint),
	}

	var top []struct {
		SpeciesName string
	}
	query := `
    SELECT species_name
    FROM species_summaries
    WHERE date >= ?
    GROUP BY species_name
    ORDER BY SUM(count) DESC
    LIMIT 3
    `
	if err := db.Raw(query, window.Since).Scan(&top).Error; err != nil {
		return nil, fmt.Errorf("error fetching top species: %w", err)
	}

	for _, s := range top {
		trend, err := speciesTrend(db, s.SpeciesName, window.Since)
		if err != nil {
			return nil, err
		}
		result.Trends[s.SpeciesName] = trend
	}

	return result, nil
}

// BreedShare is one breed's entry in the network breed ranking.
type BreedShare struct {
	BreedName   string  `json:"breed_name"`
	SpeciesName string  `json:"species_name"`
	Total       int64   `json:"total"`
	NumCenters  int64   `json:"num_centers"`
	Percentage  float64 `json:"percentage"`
}

// TopBreedsReport ranks breeds by patient volume, optionally within a species.
type TopBreedsReport struct {
	Period               Period       `json:"period"`
	SpeciesFilter        string       `json:"species_filter,omitempty"`
	Breeds               []BreedShare `json:"breeds"`
	TotalDifferentBreeds int64        `json:"total_different_breeds"`
}

// GetTopBreeds ranks breeds across the network. The species filter narrows
// the ranking; the distinct breed count stays network-wide either way so the
// response always reports the full catalog size.
func GetTopBreeds(db *gorm.DB, speciesFilter string, params QueryParams) (*TopBreedsReport, error) {
	window := params.Window
	report := &TopBreedsReport{
		Period:        PeriodFromWindow(window),
		SpeciesFilter: speciesFilter,
	}

	query := `
    SELECT
        breed_name,
        species_name,
        SUM(count) as total,
        COUNT(DISTINCT center_id) as num_centers
    FROM breed_summaries
    WHERE date >= ?
    `
	args := []any{window.Since}
	if speciesFilter != "" {
		query += " AND species_name = ?"
		args = append(args, speciesFilter)
	}
	query += `
    GROUP BY breed_name, species_name
    ORDER BY total DESC
    LIMIT ?
    `
	args = append(args, params.Limit)
	if err := db.Raw(query, args...).Scan(&report.Breeds).Error; err != nil {
		return nil, fmt.Errorf("error fetching top breeds: %w", err)
	}

	var filteredTotal int64
	for _, b := range report.Breeds {
		filteredTotal += b.Total
	}
	for i := range report.Breeds {
		report.Breeds[i].Percentage = Percentage(report.Breeds[i].Total, filteredTotal)
	}

	query = `
    SELECT COUNT(DISTINCT breed_name)
    FROM breed_summaries
    WHERE date >= ?
    `
	if err := db.Raw(query, window.Since).Scan(&report.TotalDifferentBreeds).Error; err != nil {
		return nil, fmt.Errorf("error counting distinct breeds: %w", err)
	}

	return report, nil
}

// SpeciesProfileEntry compares one species' share at a center against the
// network.
type SpeciesProfileEntry struct {
	SpeciesName      string  `json:"species_name"`
	CenterTotal      int64   `json:"center_total"`
	CenterPercentage float64 `json:"center_percentage"`
	GlobalPercentage float64 `json:"global_percentage"`
	Difference       float64 `json:"difference"`
}

// CenterBreed is one breed entry of a center's species profile.
type CenterBreed struct {
	BreedName   string `json:"breed_name"`
	SpeciesName string `json:"species_name"`
	Total       int64  `json:"total"`
}

// CenterSpeciesProfile contrasts one center's patient mix with the network's.
type CenterSpeciesProfile struct {
	Center    *centers.Center       `json:"center"`
	Period    Period                `json:"period"`
	Species   []SpeciesProfileEntry `json:"species"`
	TopBreeds []CenterBreed         `json:"top_breeds"`
}

// GetCenterSpeciesProfile computes how a center's species mix deviates from
// the network average. A positive difference means the center sees that
// species more often than its peers.
func GetCenterSpeciesProfile(db *gorm.DB, code string, params QueryParams) (*CenterSpeciesProfile, error) {
	center, err := centers.GetCenterByCode(db, code)
	if err != nil {
		return nil, err
	}

	window := params.Window
	profile := &CenterSpeciesProfile{
		Center: center,
		Period: PeriodFromWindow(window),
	}

	var centerRows []struct {
		SpeciesName string
		Total       int64
	}
	query := `
    SELECT species_name, SUM(count) as total
    FROM species_summaries
    WHERE center_id = ? AND date >= ?
    GROUP BY species_name
    ORDER BY total DESC
    `
	if err := db.Raw(query, center.ID, window.Since).Scan(&centerRows).Error; err != nil {
		return nil, fmt.Errorf("error fetching species profile for %s: %w", code, err)
	}

	var globalRows []struct {
		SpeciesName string
		Total       int64
	}
	query = `
    SELECT species_name, SUM(count) as total
    FROM species_summaries
    WHERE date >= ?
    GROUP BY species_name
    `
	if err := db.Raw(query, window.Since).Scan(&globalRows).Error; err != nil {
		return nil, fmt.Errorf("error fetching global species totals: %w", err)
	}

	var centerTotal, globalTotal int64
	for _, r := range centerRows {
		centerTotal += r.Total
	}
	globalByName := make(map[string]int64, len(globalRows))
	for _, r := range globalRows {
		globalByName[r.SpeciesName] = r.Total
		globalTotal += r.Total
	}

	for _, r := range centerRows {
		centerPct := Percentage(r.Total, centerTotal)
		globalPct := Percentage(globalByName[r.SpeciesName], globalTotal)
		profile.Species = append(profile.Species, SpeciesProfileEntry{
			SpeciesName:      r.SpeciesName,
			CenterTotal:      r.Total,
			CenterPercentage: centerPct,
			GlobalPercentage: globalPct,
			Difference:       Round2(centerPct - globalPct),
		})
	}

	query = `
    SELECT breed_name, species_name, SUM(count) as total
    FROM breed_summaries
    WHERE center_id = ? AND date >= ?
    GROUP BY breed_name, species_name
    ORDER BY total DESC
    LIMIT 10
    `
	if err := db.Raw(query, center.ID, window.Since).Scan(&profile.TopBreeds).Error; err != nil {
		return nil, fmt.Errorf("error fetching top breeds for %s: %w", code, err)
	}

	return profile, nil
}

// BreedCenterShare is one center's share of a breed's volume.
type BreedCenterShare struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	City       string  `json:"city"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// BreedDetail is the full report for one breed.
type BreedDetail struct {
	Period      Period             `json:"period"`
	BreedName   string             `json:"breed_name"`
	SpeciesName string             `json:"species_name"`
	Total       int64              `json:"total"`
	NumCenters  int64              `json:"num_centers"`
	AvgPerDay   float64            `json:"avg_per_day"`
	ByCenter    []BreedCenterShare `json:"by_center"`
	DailyTrend  []DailyPoint       `json:"daily_trend"`
}

// GetBreedDetail builds the per-breed report with the breakdown by center
// and the daily trend.
func GetBreedDetail(db *gorm.DB, breed string, params QueryParams) (*BreedDetail, error) {
	window := params.Window
	detail := &BreedDetail{
		Period:    PeriodFromWindow(window),
		BreedName: breed,
	}

	var stats struct {
		SpeciesName string
		Total       int64
		NumCenters  int64
		AvgPerDay   float64
	}
	query := `
    SELECT
        MAX(species_name) as species_name,
        COALESCE(SUM(count), 0) as total,
        COUNT(DISTINCT center_id) as num_centers,
        COALESCE(AVG(count), 0) as avg_per_day
    FROM breed_summaries
    WHERE breed_name = ? AND date >= ?
    `
	if err := db.Raw(query, breed, window.Since).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("error fetching breed detail for %s: %w", breed, err)
	}
	if stats.NumCenters == 0 {
		return nil, NewBreedNotFoundError(breed)
	}
	detail.SpeciesName = stats.SpeciesName
	detail.Total = stats.Total
	detail.NumCenters = stats.NumCenters
	detail.AvgPerDay = Round2(stats.AvgPerDay)

	query = `
    SELECT
        c.code as code,
        c.name as name,
        c.city as city,
        SUM(bs.count) as total
    FROM breed_summaries bs
    JOIN centers c ON c.id = bs.center_id
    WHERE bs.breed_name = ? AND bs.date >= ?
    GROUP BY c.id
    ORDER BY total DESC
    `
	if err := db.Raw(query, breed, window.Since).Scan(&detail.ByCenter).Error; err != nil {
		return nil, fmt.Errorf("error fetching breed centers for %s: %w", breed, err)
	}
	for i := range detail.ByCenter {
		detail.ByCenter[i].Percentage = Percentage(detail.ByCenter[i].Total, detail.Total)
	}

	query = `
    SELECT
        strftime('%Y-%m-%d', date) as date,
        SUM(count) as count
    FROM breed_summaries
    WHERE breed_name = ? AND date >= ?
    GROUP BY strftime('%Y-%m-%d', date)
    ORDER BY date ASC
    `
	if err := db.Raw(query, breed, window.Since).Scan(&detail.DailyTrend).Error; err != nil {
		return nil, fmt.Errorf("error fetching breed trend for %s: %w", breed, err)
	}

	return detail, nil
}
