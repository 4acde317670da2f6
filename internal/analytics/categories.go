package analytics

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed categories.yaml
var categoriesYAML []byte

type categoryDef struct {
	Name  string   `yaml:"name"`
	Codes []string `yaml:"codes"`
}

type categoryFile struct {
	Categories []categoryDef `yaml:"categories"`
}

// testCategories maps each clinical panel to its member test codes. Loaded
// once at startup; a broken embedded file is a build artifact problem, not a
// runtime condition, so it panics.
var testCategories = loadCategories()

func loadCategories() []categoryDef {
	var file categoryFile
	if err := yaml.Unmarshal(categoriesYAML, &file); err != nil {
		panic(fmt.Sprintf("invalid embedded category definitions: %v", err))
	}
	return file.Categories
}

// CategoryStat aggregates one clinical panel over a window.
type CategoryStat struct {
	Category   string  `json:"category"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// CategoryReport groups the network's test volume into clinical panels.
// Tests whose code belongs to no panel are left out, so percentages are
// shares of the categorized volume only.
type CategoryReport struct {
	Period     Period         `json:"period"`
	Categories []CategoryStat `json:"categories"`
}

// GetTestCategories sums test volume per clinical panel across all centers.
func GetTestCategories(db *gorm.DB, params QueryParams) (*CategoryReport, error) {
	window := params.Window
	report := &CategoryReport{Period: PeriodFromWindow(window)}

	var categorizedTotal int64
	totals := make([]CategoryStat, 0, len(testCategories))

	for _, def := range testCategories {
		var total int64
		query := `
        SELECT COALESCE(SUM(count), 0)
        FROM test_summaries
        WHERE date >= ? AND test_code IN ?
        `
		if err := db.Raw(query, window.Since, def.Codes).Scan(&total).Error; err != nil {
			return nil, fmt.Errorf("error fetching category %s: %w", def.Name, err)
		}
		if total == 0 {
			continue
		}
		totals = append(totals, CategoryStat{Category: def.Name, Total: total})
		categorizedTotal += total
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total > totals[j].Total
	})
	for i := range totals {
		totals[i].Percentage = Percentage(totals[i].Total, categorizedTotal)
	}

	report.Categories = totals
	return report, nil
}
