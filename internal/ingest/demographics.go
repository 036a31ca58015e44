package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"marketscope_backend/internal/scoring"
)

// ParseDemographics reads the ZIP demographic table CSV. Only the zip column
// is required; missing numeric columns stay zero here and take the documented
// national-average defaults during geo enrichment. Lat/lon are optional and
// backfilled from the centroid table downstream.
func ParseDemographics(r io.Reader) ([]scoring.ZipDemographics, []Warning, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("unparseable demographics CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, errors.New("demographics file has no data rows")
	}

	header := records[0]
	zipIdx := columnIndex(header, "zip", "zip_code", "zipcode", "postal_code")
	if zipIdx < 0 {
		return nil, nil, errors.New("demographics file is missing required zip column")
	}
	latIdx := columnIndex(header, "lat", "latitude")
	lonIdx := columnIndex(header, "lon", "lng", "longitude")
	popIdx := columnIndex(header, "population", "pop")
	incomeIdx := columnIndex(header, "median_income", "median_household_income", "income")
	densityIdx := columnIndex(header, "density_per_sqmi", "density", "pop_density")
	collegeIdx := columnIndex(header, "college_pct", "college_educated_pct")
	ageIdx := columnIndex(header, "age_25_54_pct", "age_band_pct")
	ownerIdx := columnIndex(header, "owner_occ_pct", "owner_occupied_pct")

	rows := make([]scoring.ZipDemographics, 0, len(records)-1)
	dropped := 0
	for _, record := range records[1:] {
		zip := NormalizeZip(cell(record, zipIdx))
		if zip == "" {
			dropped++
			continue
		}

		row := scoring.ZipDemographics{
			Zip:            zip,
			Population:     parseNumeric(cell(record, popIdx)),
			MedianIncome:   parseNumeric(cell(record, incomeIdx)),
			DensityPerSqMi: parseNumeric(cell(record, densityIdx)),
			CollegePct:     parseNumeric(cell(record, collegeIdx)),
			Age25to54Pct:   parseNumeric(cell(record, ageIdx)),
			OwnerOccPct:    parseNumeric(cell(record, ownerIdx)),
		}

		lat, latOK := parseCoord(cell(record, latIdx))
		lon, lonOK := parseCoord(cell(record, lonIdx))
		if latOK && lonOK {
			row.Lat = lat
			row.Lon = lon
			row.HasLocation = true
		}

		rows = append(rows, row)
	}

	var warnings []Warning
	if dropped > 0 {
		warnings = append(warnings, Warning{
			Code:    WarnRowsDropped,
			Message: fmt.Sprintf("%d demographic rows dropped for unusable ZIPs", dropped),
		})
	}
	return rows, warnings, nil
}

func parseNumeric(raw string) float64 {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// parseCoord accepts any parseable float except exact zero, which in practice
// marks an unpopulated cell rather than a point in the Gulf of Guinea.
func parseCoord(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return value, true
}
