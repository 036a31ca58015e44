package scoring

import (
	"errors"
	"sort"

	"marketscope_backend/platform/logger"
)

// Composite match-score weights. When no ridge model is available the
// penetration weight is redistributed across the remaining terms.
const (
	weightAccessibility = 0.35
	weightAffinity      = 0.25
	weightPenetration   = 0.40

	fallbackWeightAccessibility = 0.55
	fallbackWeightAffinity      = 0.45
)

// PipelineConfig carries the per-run knobs. RunID is only used for log
// correlation.
type PipelineConfig struct {
	RunID       string
	Vertical    string
	Focus       string
	PracticeZip string
	Seed        int64
	TopN        int
}

// PipelineInput is everything one analysis run operates on. The pipeline
// never mutates the input tables.
type PipelineInput struct {
	Customers   []Customer
	Zips        []ZipDemographics
	Competitors []Competitor
	Config      PipelineConfig
}

// HeadlineMetrics summarizes the customer ledger for the run.
type HeadlineMetrics struct {
	TotalPatients  int     `json:"total_patients"`
	TotalRevenue   float64 `json:"total_revenue"`
	AvgRevenue     float64 `json:"avg_revenue"`
	HighValueCount int     `json:"high_value_count"`
	UniqueZips     int     `json:"unique_zips"`
}

// BookingRange is the calibrated expected-bookings distribution.
type BookingRange struct {
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
}

// ZipScore is the full derived row for one ZIP in one run.
type ZipScore struct {
	Zip                string       `json:"zip"`
	Lat                float64      `json:"lat"`
	Lon                float64      `json:"lon"`
	DistanceMiles      float64      `json:"distance_miles"`
	Accessibility      float64      `json:"accessibility"`
	Competitors        int          `json:"competitors"`
	CompetitorsPer10k  float64      `json:"competitors_per_10k"`
	Cohort             string       `json:"cohort"`
	Affinity           float64      `json:"affinity"`
	PredictedPen       float64      `json:"predicted_penetration"`
	MatchScore         float64      `json:"match_score"`
	ExpectedBookings   BookingRange `json:"expected_bookings"`
	Why                []string     `json:"why"`
	HistoricalPatients int          `json:"historical_patients"`
}

// MapPoint is a minimal per-ZIP row for map rendering.
type MapPoint struct {
	Zip   string  `json:"zip"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Score float64 `json:"score"`
}

// PipelineResult is the complete output of one analysis run.
type PipelineResult struct {
	Headline             HeadlineMetrics
	ZipScores            []ZipScore
	TopSegments          []ZipScore
	MapPoints            []MapPoint
	Confidence           Confidence
	CohortMethod         CohortMethod
	CohortFallbackReason string
	ModelAvailable       bool
	ModelReason          string
}

// ErrNoGeocodedZips is returned when no ZIP in the universe has a location;
// this is a run-level failure, not a degraded mode.
var ErrNoGeocodedZips = errors.New("no geocoded zips in demographic table")

// Run executes the full scoring pipeline synchronously. Stage-level
// degradations (rule-based cohorts, no ridge model, no calibrator) continue
// with documented fallbacks; only unusable input is an error.
func Run(in PipelineInput, log *logger.Logger) (*PipelineResult, error) {
	cfg := in.Config
	if cfg.TopN < 1 {
		cfg.TopN = 10
	}

	vertical := Vertical(cfg.Vertical)
	rule, err := FocusRuleFor(vertical, cfg.Focus)
	if err != nil {
		return nil, err
	}

	zips := DedupeByZip(in.Zips)
	located := make([]ZipDemographics, 0, len(zips))
	for _, z := range zips {
		if z.HasLocation {
			located = append(located, z)
		}
	}
	if len(located) == 0 {
		return nil, ErrNoGeocodedZips
	}

	competitorCounts := CompetitorCounts(in.Competitors)

	// Stage 1: geo accessibility.
	accessRows := ScoreAccessibility(located, cfg.PracticeZip, competitorCounts)
	accessByZip := make(map[string]AccessibilityRow, len(accessRows))
	for _, row := range accessRows {
		accessByZip[row.Zip] = row
	}

	// Stage 2: lifestyle cohorts.
	cohortFeatures := make([]CohortFeatures, len(located))
	for i, z := range located {
		access := accessByZip[z.Zip]
		cohortFeatures[i] = CohortFeatures{
			Zip:           z.Zip,
			Population:    z.Population,
			MedianIncome:  z.MedianIncome,
			Competitors:   float64(access.Competitors),
			DistanceMiles: access.DistanceMiles,
		}
	}
	cohorts := AssignCohorts(cohortFeatures, cfg.Seed)
	if log != nil {
		log.PipelineStage(cfg.RunID, "cohorts", cohorts.Method == CohortFallback, cohorts.FallbackReason)
	}

	cohortByZip := make(map[string]string, len(located))
	zipOrder := make([]string, len(located))
	for i, z := range located {
		zipOrder[i] = z.Zip
		cohortByZip[z.Zip] = cohorts.Labels[i]
	}

	// Stage 3: psychographic affinity.
	affinity := EstimateAffinity(AffinityInput{
		Zips:      zipOrder,
		Cohorts:   cohortByZip,
		Customers: in.Customers,
		Rule:      rule,
	})
	affinityByZip := make(map[string]float64, len(zipOrder))
	for i, zip := range zipOrder {
		affinityByZip[zip] = affinity[i]
	}

	// Per-ZIP customer aggregates, joined by explicit key.
	patientCounts := make(map[string]int)
	revenueTotals := make(map[string]float64)
	for _, c := range in.Customers {
		patientCounts[c.Zip]++
		revenueTotals[c.Zip] += c.RevenueOrDefault()
	}

	// Stage 4: ridge penetration model.
	featureNames, vectors := buildFeatureMatrix(located, accessByZip, cohortByZip, affinityByZip, cohorts)
	trainRows, trainTargets, trainingZips := trainingSet(located, vectors, patientCounts, revenueTotals)
	outcome := FitRidge(trainRows, trainTargets, featureNames, trainingZips)
	if log != nil {
		log.PipelineStage(cfg.RunID, "ridge", outcome.Model == nil, outcome.Reason)
	}

	predictions := make([]float64, len(located))
	if outcome.Model != nil {
		for i := range located {
			predictions[i] = outcome.Model.Predict(vectors[i])
		}
	}
	predNorm := minMaxNormalize(predictions)

	// Composite match score.
	matchByZip := make(map[string]float64, len(located))
	for i, z := range located {
		access := accessByZip[z.Zip]
		var match float64
		if outcome.Model != nil {
			match = weightAccessibility*access.Accessibility +
				weightAffinity*affinity[i] +
				weightPenetration*predNorm[i]
		} else {
			match = fallbackWeightAccessibility*access.Accessibility +
				fallbackWeightAffinity*affinity[i]
		}
		matchByZip[z.Zip] = clamp01(match)
	}

	// Stage 5: booking calibration.
	actualCounts := make(map[string]float64, len(patientCounts))
	for zip, count := range patientCounts {
		actualCounts[zip] = float64(count)
	}
	calibration := Calibrate(matchByZip, actualCounts)
	if log != nil {
		log.PipelineStage(cfg.RunID, "calibration", calibration.Calibrator == nil, calibration.Confidence.Status)
	}

	meanMonthly := meanMonthlyBookings(located, actualCounts)
	band := bookingBand(calibration.Confidence.Level)

	scores := make([]ZipScore, len(located))
	for i, z := range located {
		access := accessByZip[z.Zip]
		match := matchByZip[z.Zip]

		var p50 float64
		if calibration.Calibrator != nil {
			p50 = calibration.Calibrator.Predict(match)
		} else {
			p50 = match * meanMonthly
		}

		var why []string
		if outcome.Model != nil {
			why = Explain(outcome.Model, vectors[i])
		} else {
			why = FallbackExplanations(access, affinity[i])
		}

		scores[i] = ZipScore{
			Zip:               z.Zip,
			Lat:               z.Lat,
			Lon:               z.Lon,
			DistanceMiles:     access.DistanceMiles,
			Accessibility:     access.Accessibility,
			Competitors:       access.Competitors,
			CompetitorsPer10k: access.CompetitorsPer10k,
			Cohort:            cohortByZip[z.Zip],
			Affinity:          affinity[i],
			PredictedPen:      predictions[i],
			MatchScore:        match,
			ExpectedBookings: BookingRange{
				P10: maxFloat(0, p50*(1-band)),
				P50: p50,
				P90: p50 * (1 + band),
			},
			Why:                why,
			HistoricalPatients: patientCounts[z.Zip],
		}
	}

	top := append([]ZipScore(nil), scores...)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].MatchScore != top[j].MatchScore {
			return top[i].MatchScore > top[j].MatchScore
		}
		return top[i].Zip < top[j].Zip
	})
	if len(top) > cfg.TopN {
		top = top[:cfg.TopN]
	}

	mapPoints := make([]MapPoint, len(scores))
	for i, s := range scores {
		mapPoints[i] = MapPoint{Zip: s.Zip, Lat: s.Lat, Lon: s.Lon, Score: s.MatchScore}
	}

	return &PipelineResult{
		Headline:             headlineMetrics(in.Customers, vertical),
		ZipScores:            scores,
		TopSegments:          top,
		MapPoints:            mapPoints,
		Confidence:           calibration.Confidence,
		CohortMethod:         cohorts.Method,
		CohortFallbackReason: cohorts.FallbackReason,
		ModelAvailable:       outcome.Model != nil,
		ModelReason:          outcome.Reason,
	}, nil
}

// buildFeatureMatrix constructs the ordered feature vectors for every located
// ZIP: numeric demographics, accessibility, affinity, and one-hot cohort
// dummies for the cohorts present in this run.
func buildFeatureMatrix(
	zips []ZipDemographics,
	accessByZip map[string]AccessibilityRow,
	cohortByZip map[string]string,
	affinityByZip map[string]float64,
	cohorts CohortResult,
) (names []string, vectors [][]float64) {
	present := make(map[string]bool)
	for _, label := range cohorts.Labels {
		present[label] = true
	}
	dummyCohorts := make([]string, 0, len(cohortNames))
	for _, name := range cohortNames {
		if present[name] {
			dummyCohorts = append(dummyCohorts, name)
		}
	}

	names = []string{
		"accessibility", "population", "median_income", "density_per_sqmi",
		"college_pct", "age_25_54_pct", "owner_occ_pct", "affinity",
	}
	for _, cohort := range dummyCohorts {
		names = append(names, cohortFeaturePrefix+cohort)
	}

	vectors = make([][]float64, len(zips))
	for i, z := range zips {
		access := accessByZip[z.Zip]
		vector := []float64{
			access.Accessibility, z.Population, z.MedianIncome, z.DensityPerSqMi,
			z.CollegePct, z.Age25to54Pct, z.OwnerOccPct, affinityByZip[z.Zip],
		}
		for _, cohort := range dummyCohorts {
			if cohortByZip[z.Zip] == cohort {
				vector = append(vector, 1)
			} else {
				vector = append(vector, 0)
			}
		}
		vectors[i] = vector
	}
	return names, vectors
}

// trainingSet selects the rows with customer history and computes the
// revenue-per-1k-residents target. ZIPs without population are unusable as
// training rows.
func trainingSet(
	zips []ZipDemographics,
	vectors [][]float64,
	patientCounts map[string]int,
	revenueTotals map[string]float64,
) (rows [][]float64, targets []float64, trainingZips int) {
	for i, z := range zips {
		count := patientCounts[z.Zip]
		if count == 0 {
			continue
		}
		trainingZips++
		if z.Population <= 0 {
			continue
		}
		rows = append(rows, vectors[i])
		targets = append(targets, revenueTotals[z.Zip]/(z.Population/1000.0))
	}
	return rows, targets, trainingZips
}

// headlineMetrics summarizes the ledger. Missing revenue is excluded from
// totals and averages, never treated as zero.
func headlineMetrics(customers []Customer, vertical VerticalConfig) HeadlineMetrics {
	metrics := HeadlineMetrics{TotalPatients: len(customers)}

	uniqueZips := make(map[string]struct{})
	withRevenue := 0
	for _, c := range customers {
		uniqueZips[c.Zip] = struct{}{}
		if c.Revenue == nil {
			continue
		}
		withRevenue++
		metrics.TotalRevenue += *c.Revenue
		if *c.Revenue >= vertical.HighValueRevenue {
			metrics.HighValueCount++
		}
	}
	if withRevenue > 0 {
		metrics.AvgRevenue = metrics.TotalRevenue / float64(withRevenue)
	}
	metrics.UniqueZips = len(uniqueZips)
	return metrics
}

// meanMonthlyBookings is the uncalibrated fallback scale for expected
// bookings: the mean monthly proxy across ZIPs with observed volume.
func meanMonthlyBookings(zips []ZipDemographics, actualCounts map[string]float64) float64 {
	total := 0.0
	n := 0
	for _, z := range zips {
		if actual := actualCounts[z.Zip]; actual > 0 {
			total += actual * monthlyBookingFactor
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// bookingBand widens the p10/p90 interval as confidence drops.
func bookingBand(level string) float64 {
	switch level {
	case "high":
		return 0.25
	case "medium":
		return 0.40
	default:
		return 0.60
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
