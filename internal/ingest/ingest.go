package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// Warning is one non-fatal data-quality finding. Warnings never block a
// dataset; they are stored alongside it so the consumer can judge quality.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarnFewRows         = "few_rows"
	WarnFewZips         = "few_zips"
	WarnZipBackfilled   = "zip_backfilled"
	WarnRevenueOutliers = "revenue_outliers"
	WarnRowsDropped     = "rows_dropped"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeZip coerces a raw ZIP value to a 5-digit string: non-digit
// characters stripped, left-padded with zeros, ZIP+4 truncated to the prefix.
// Returns "" when nothing usable remains.
func NormalizeZip(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	if len(digits) > 5 {
		digits = digits[:5]
	}
	for len(digits) < 5 {
		digits = "0" + digits
	}
	return digits
}

// parseMoney parses a revenue cell, tolerating currency symbols and thousands
// separators. Unparseable or negative values return (0, false): missing, not
// zero.
func parseMoney(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, "$€£ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

// columnIndex finds the first header matching any of the aliases,
// case-insensitively. Returns -1 when absent.
func columnIndex(header []string, aliases ...string) int {
	for i, col := range header {
		normalized := strings.ToLower(strings.TrimSpace(col))
		for _, alias := range aliases {
			if normalized == alias {
				return i
			}
		}
	}
	return -1
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
