package geo

import "marketscope_backend/internal/scoring"

// National-average fallbacks substituted for missing demographic columns.
const (
	DefaultPopulation     = 9500.0
	DefaultMedianIncome   = 67500.0
	DefaultDensityPerSqMi = 500.0
	DefaultCollegePct     = 0.33
	DefaultAge25to54Pct   = 0.39
	DefaultOwnerOccPct    = 0.65
)

// EnrichResult reports what enrichment did to the ZIP universe.
type EnrichResult struct {
	Rows       []scoring.ZipDemographics
	Backfilled int      // rows whose lat/lon came from the centroid table
	Dropped    []string // ZIPs removed because no location could be resolved
}

// Enrich prepares raw demographic rows for scoring: duplicate ZIPs collapse to
// the first occurrence, missing lat/lon is backfilled from the centroid table,
// missing numeric columns take the national-average defaults, and rows that
// still have no location are dropped. Every surviving row has a location.
func Enrich(rows []scoring.ZipDemographics, table *Table) EnrichResult {
	deduped := scoring.DedupeByZip(rows)

	result := EnrichResult{Rows: make([]scoring.ZipDemographics, 0, len(deduped))}
	for _, row := range deduped {
		if !row.HasLocation {
			if c, ok := table.Lookup(row.Zip); ok {
				row.Lat = c.Lat
				row.Lon = c.Lon
				row.HasLocation = true
				result.Backfilled++
			} else {
				result.Dropped = append(result.Dropped, row.Zip)
				continue
			}
		}

		applyDefaults(&row)
		result.Rows = append(result.Rows, row)
	}
	return result
}

func applyDefaults(row *scoring.ZipDemographics) {
	if row.Population <= 0 {
		row.Population = DefaultPopulation
	}
	if row.MedianIncome <= 0 {
		row.MedianIncome = DefaultMedianIncome
	}
	if row.DensityPerSqMi <= 0 {
		row.DensityPerSqMi = DefaultDensityPerSqMi
	}
	if row.CollegePct <= 0 {
		row.CollegePct = DefaultCollegePct
	}
	if row.Age25to54Pct <= 0 {
		row.Age25to54Pct = DefaultAge25to54Pct
	}
	if row.OwnerOccPct <= 0 {
		row.OwnerOccPct = DefaultOwnerOccPct
	}
}
