package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"

	"marketscope_backend/internal/scoring"
)

var fiveDigits = regexp.MustCompile(`^\d{5}$`)

// ParseCompetitors reads the competitor list CSV. Rows whose ZIP is not an
// exact 5-digit value are dropped (no padding or repair; a junk competitor
// row carries no other information worth salvaging).
func ParseCompetitors(r io.Reader) ([]scoring.Competitor, []Warning, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("unparseable competitor CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, errors.New("competitor file has no data rows")
	}

	zipIdx := columnIndex(records[0], "zip_code", "zip", "zipcode", "postal_code", "zip code")
	if zipIdx < 0 {
		return nil, nil, errors.New("competitor file is missing required zip_code column")
	}

	competitors := make([]scoring.Competitor, 0, len(records)-1)
	dropped := 0
	for _, record := range records[1:] {
		zip := cell(record, zipIdx)
		if !fiveDigits.MatchString(zip) {
			dropped++
			continue
		}
		competitors = append(competitors, scoring.Competitor{Zip: zip})
	}

	var warnings []Warning
	if dropped > 0 {
		warnings = append(warnings, Warning{
			Code:    WarnRowsDropped,
			Message: fmt.Sprintf("%d competitor rows dropped for non-5-digit ZIPs", dropped),
		})
	}
	return competitors, warnings, nil
}
