package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"marketscope_backend/internal/scoring"
)

// Thresholds for data-quality warnings on the customer ledger.
const (
	minComfortableRows = 10
	minComfortableZips = 3

	// revenueOutlierFactor flags revenues above this multiple of the median.
	revenueOutlierFactor = 10.0
	minRowsForOutlierCheck = 5
)

var consultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
}

// ErrNoUsableZips is returned when no row in the ledger carries a usable ZIP.
var ErrNoUsableZips = errors.New("customer file has no usable zip_code values")

// ParseCustomers reads the customer ledger CSV. A missing zip_code column or
// an unparseable file is a hard error; everything else degrades to warnings.
// Rows with a missing or junk ZIP are backfilled round-robin from the ZIPs
// observed in the file, matching how sparse uploads are salvaged elsewhere in
// the pipeline, and the substitution is surfaced as a warning.
func ParseCustomers(r io.Reader, procedureOverrides map[string]string) ([]scoring.Customer, []Warning, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("unparseable customer CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, errors.New("customer file has no data rows")
	}

	header := records[0]
	zipIdx := columnIndex(header, "zip_code", "zip", "zipcode", "postal_code", "zip code")
	if zipIdx < 0 {
		return nil, nil, errors.New("customer file is missing required zip_code column")
	}
	revenueIdx := columnIndex(header, "revenue", "amount", "price", "total", "revenue_usd")
	procedureIdx := columnIndex(header, "procedure_type", "procedure", "treatment", "service", "procedure type")
	dateIdx := columnIndex(header, "consult_date", "visit_date", "date", "consult date")

	customers := make([]scoring.Customer, 0, len(records)-1)
	missingZip := make([]int, 0)
	seenZips := make([]string, 0)
	seenSet := make(map[string]struct{})

	for _, record := range records[1:] {
		c := scoring.Customer{
			Zip:       NormalizeZip(cell(record, zipIdx)),
			Procedure: CanonicalProcedure(cell(record, procedureIdx), procedureOverrides),
		}

		if value, ok := parseMoney(cell(record, revenueIdx)); ok {
			revenue := value
			c.Revenue = &revenue
		}

		if raw := cell(record, dateIdx); raw != "" {
			for _, layout := range consultDateLayouts {
				if parsed, err := time.Parse(layout, raw); err == nil {
					c.ConsultDate = &parsed
					break
				}
			}
		}

		if c.Zip == "" {
			missingZip = append(missingZip, len(customers))
		} else if _, ok := seenSet[c.Zip]; !ok {
			seenSet[c.Zip] = struct{}{}
			seenZips = append(seenZips, c.Zip)
		}

		customers = append(customers, c)
	}

	if len(seenZips) == 0 {
		return nil, nil, ErrNoUsableZips
	}

	var warnings []Warning

	if len(missingZip) > 0 {
		for i, rowIdx := range missingZip {
			customers[rowIdx].Zip = seenZips[i%len(seenZips)]
		}
		warnings = append(warnings, Warning{
			Code:    WarnZipBackfilled,
			Message: fmt.Sprintf("%d rows had no usable ZIP and were assigned one round-robin from the observed ZIPs", len(missingZip)),
		})
	}

	if len(customers) < minComfortableRows {
		warnings = append(warnings, Warning{
			Code:    WarnFewRows,
			Message: fmt.Sprintf("only %d customer rows; predictions will be low-confidence", len(customers)),
		})
	}
	if len(seenSet) < minComfortableZips {
		warnings = append(warnings, Warning{
			Code:    WarnFewZips,
			Message: fmt.Sprintf("only %d distinct ZIPs; cohorting falls back to rules below 3", len(seenSet)),
		})
	}

	if outliers := countRevenueOutliers(customers); outliers > 0 {
		warnings = append(warnings, Warning{
			Code:    WarnRevenueOutliers,
			Message: fmt.Sprintf("%d revenue values exceed %.0fx the median; verify units", outliers, revenueOutlierFactor),
		})
	}

	return customers, warnings, nil
}

// countRevenueOutliers counts observed revenues beyond the outlier factor of
// the median. Skipped entirely for tiny samples where a median is meaningless.
func countRevenueOutliers(customers []scoring.Customer) int {
	values := make([]float64, 0, len(customers))
	for _, c := range customers {
		if c.Revenue != nil && *c.Revenue > 0 {
			values = append(values, *c.Revenue)
		}
	}
	if len(values) < minRowsForOutlierCheck {
		return 0
	}

	sort.Float64s(values)
	median := values[len(values)/2]
	if len(values)%2 == 0 {
		median = (values[len(values)/2-1] + values[len(values)/2]) / 2
	}
	if median <= 0 {
		return 0
	}

	outliers := 0
	for _, v := range values {
		if v > revenueOutlierFactor*median {
			outliers++
		}
	}
	return outliers
}
