// Package scoring implements the ZIP-code market scoring pipeline: geographic
// accessibility, lifestyle cohort assignment, psychographic affinity with
// empirical-Bayes shrinkage, a ridge-regression market-penetration model, and
// isotonic booking calibration.
//
// All joins between stages are performed by explicit ZIP key, never by
// positional index. Stage outputs that must align with an input table are
// documented as such and tested for order preservation.
package scoring

import "time"

// Customer is one normalized ledger row (one transaction/visit).
// Rows are immutable once ingested.
type Customer struct {
	Zip         string
	Revenue     *float64 // nil when missing or unparseable; never coerced to zero
	Procedure   string   // canonicalized procedure/treatment label, may be empty
	ConsultDate *time.Time
}

// DefaultRevenue is substituted when a concrete revenue value is required
// downstream (weighting, totals for the regression target) and the observed
// value is missing.
const DefaultRevenue = 500.0

// RevenueOrDefault returns the observed revenue or DefaultRevenue when missing.
func (c Customer) RevenueOrDefault() float64 {
	if c.Revenue == nil {
		return DefaultRevenue
	}
	return *c.Revenue
}

// ZipDemographics is one row of the ZIP universe after enrichment.
// Lat/Lon are populated for every row the pipeline sees; rows that cannot be
// geocoded are dropped during enrichment.
type ZipDemographics struct {
	Zip            string
	Lat            float64
	Lon            float64
	HasLocation    bool
	Population     float64
	MedianIncome   float64
	DensityPerSqMi float64
	CollegePct     float64
	Age25to54Pct   float64
	OwnerOccPct    float64
}

// Competitor is one known competitor location. Only the ZIP matters; the
// pipeline aggregates to a per-ZIP count.
type Competitor struct {
	Zip string
}

// CompetitorCounts aggregates competitor rows to a per-ZIP count.
func CompetitorCounts(competitors []Competitor) map[string]int {
	counts := make(map[string]int, len(competitors))
	for _, comp := range competitors {
		counts[comp.Zip]++
	}
	return counts
}
