package scoring

import (
	"fmt"
	"testing"
)

// testUniverse builds a small but realistic run input: a practice in 78701
// with customer history across several nearby ZIPs.
func testUniverse(nZips, customersPerZip int) PipelineInput {
	zips := make([]ZipDemographics, nZips)
	customers := make([]Customer, 0, nZips*customersPerZip)
	competitors := make([]Competitor, 0)

	for i := 0; i < nZips; i++ {
		zip := fmt.Sprintf("787%02d", i+1)
		zips[i] = ZipDemographics{
			Zip:            zip,
			Lat:            30.27 + float64(i)*0.02,
			Lon:            -97.74 - float64(i)*0.015,
			HasLocation:    true,
			Population:     float64(8000 + i*2100),
			MedianIncome:   float64(45000 + (i%6)*12000),
			DensityPerSqMi: float64(500 + i*90),
			CollegePct:     0.25 + float64(i%4)*0.1,
			Age25to54Pct:   0.38,
			OwnerOccPct:    0.6,
		}
		for j := 0; j < customersPerZip; j++ {
			revenue := float64(300 + (i+j)*150)
			procedure := "botox"
			if (i+j)%3 == 0 {
				procedure = "liposuction"
				revenue += 2000
			}
			customers = append(customers, Customer{Zip: zip, Revenue: &revenue, Procedure: procedure})
		}
		if i%2 == 0 {
			competitors = append(competitors, Competitor{Zip: zip})
		}
	}

	return PipelineInput{
		Customers:   customers,
		Zips:        zips,
		Competitors: competitors,
		Config: PipelineConfig{
			Vertical:    "medspa",
			Focus:       "surgical",
			PracticeZip: "78701",
			Seed:        42,
			TopN:        5,
		},
	}
}

func TestRun_ErrorsWithoutGeocodedZips(t *testing.T) {
	in := testUniverse(5, 3)
	for i := range in.Zips {
		in.Zips[i].HasLocation = false
	}

	if _, err := Run(in, nil); err != ErrNoGeocodedZips {
		t.Fatalf("expected ErrNoGeocodedZips, got %v", err)
	}
}

func TestRun_ErrorsOnUnknownFocus(t *testing.T) {
	in := testUniverse(5, 3)
	in.Config.Focus = "does_not_exist"

	if _, err := Run(in, nil); err == nil {
		t.Fatal("expected error for unknown focus")
	}
}

func TestRun_DeterministicForSameInput(t *testing.T) {
	in := testUniverse(20, 4)

	first, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.ZipScores) != len(second.ZipScores) {
		t.Fatalf("score count differs: %d vs %d", len(first.ZipScores), len(second.ZipScores))
	}
	for i := range first.ZipScores {
		a, b := first.ZipScores[i], second.ZipScores[i]
		if a.Zip != b.Zip || a.MatchScore != b.MatchScore || a.Cohort != b.Cohort {
			t.Fatalf("row %d differs between identical runs: %+v vs %+v", i, a, b)
		}
	}
}

func TestRun_ScoresEveryLocatedZip(t *testing.T) {
	in := testUniverse(20, 4)
	result, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.ZipScores) != 20 {
		t.Fatalf("expected 20 scored zips, got %d", len(result.ZipScores))
	}
	if len(result.MapPoints) != 20 {
		t.Fatalf("expected 20 map points, got %d", len(result.MapPoints))
	}
	for _, s := range result.ZipScores {
		if s.MatchScore < 0 || s.MatchScore > 1 {
			t.Fatalf("match score out of [0,1] for %s: %f", s.Zip, s.MatchScore)
		}
		if len(s.Why) == 0 {
			t.Fatalf("expected explanations for %s", s.Zip)
		}
		if s.ExpectedBookings.P10 > s.ExpectedBookings.P50 || s.ExpectedBookings.P50 > s.ExpectedBookings.P90 {
			t.Fatalf("booking range out of order for %s: %+v", s.Zip, s.ExpectedBookings)
		}
	}
}

func TestRun_TopSegmentsSortedAndTruncated(t *testing.T) {
	in := testUniverse(20, 4)
	result, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.TopSegments) != 5 {
		t.Fatalf("expected top 5, got %d", len(result.TopSegments))
	}
	for i := 1; i < len(result.TopSegments); i++ {
		prev, cur := result.TopSegments[i-1], result.TopSegments[i]
		if cur.MatchScore > prev.MatchScore {
			t.Fatalf("top segments not sorted at %d: %f > %f", i, cur.MatchScore, prev.MatchScore)
		}
		if cur.MatchScore == prev.MatchScore && cur.Zip < prev.Zip {
			t.Fatalf("tie not broken by zip at %d: %s before %s", i, prev.Zip, cur.Zip)
		}
	}
}

func TestRun_ModelAvailableWithBroadHistory(t *testing.T) {
	in := testUniverse(20, 4)
	result, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.ModelAvailable {
		t.Fatalf("expected a penetration model with 20 history zips, reason: %s", result.ModelReason)
	}
	if result.Confidence.Level != "high" {
		t.Fatalf("expected high confidence, got %s", result.Confidence.Level)
	}
	if result.CohortMethod != CohortKMeans {
		t.Fatalf("expected kmeans cohorts, got %s (%s)", result.CohortMethod, result.CohortFallbackReason)
	}
}

func TestRun_DegradesGracefullyWithSparseHistory(t *testing.T) {
	in := testUniverse(4, 1)
	result, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ModelAvailable {
		t.Fatal("expected no model with 4 history zips")
	}
	if result.Confidence.Level == "high" {
		t.Fatal("expected degraded confidence with sparse history")
	}
	// Scores must still exist on the fallback path.
	if len(result.ZipScores) != 4 {
		t.Fatalf("expected 4 scored zips, got %d", len(result.ZipScores))
	}
}

func TestRun_NoHistoryYieldsZeroBookings(t *testing.T) {
	in := testUniverse(6, 1)
	in.Customers = nil

	result, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range result.ZipScores {
		if s.ExpectedBookings.P50 != 0 {
			t.Fatalf("expected zero booking estimate without history, got %f for %s", s.ExpectedBookings.P50, s.Zip)
		}
		if s.HistoricalPatients != 0 {
			t.Fatalf("expected zero historical patients, got %d", s.HistoricalPatients)
		}
	}
	if result.Headline.TotalPatients != 0 {
		t.Fatalf("expected empty headline, got %+v", result.Headline)
	}
}

func TestRun_HeadlineMetrics(t *testing.T) {
	rev1, rev2 := 2000.0, 400.0
	in := testUniverse(6, 1)
	in.Customers = []Customer{
		{Zip: "78701", Revenue: &rev1, Procedure: "surgery"},
		{Zip: "78702", Revenue: &rev2, Procedure: "botox"},
		{Zip: "78702", Procedure: "botox"}, // missing revenue
	}

	result, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := result.Headline
	if h.TotalPatients != 3 {
		t.Fatalf("expected 3 patients, got %d", h.TotalPatients)
	}
	if h.TotalRevenue != 2400 {
		t.Fatalf("expected missing revenue excluded from totals, got %f", h.TotalRevenue)
	}
	if h.HighValueCount != 1 {
		t.Fatalf("expected 1 high-value patient, got %d", h.HighValueCount)
	}
	if h.UniqueZips != 2 {
		t.Fatalf("expected 2 unique zips, got %d", h.UniqueZips)
	}
}

func TestRun_DefaultTopN(t *testing.T) {
	in := testUniverse(20, 4)
	in.Config.TopN = 0

	result, err := Run(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.TopSegments) != 10 {
		t.Fatalf("expected default top 10, got %d", len(result.TopSegments))
	}
}
