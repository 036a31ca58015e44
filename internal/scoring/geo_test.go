package scoring

import (
	"math"
	"testing"
)

func TestHaversine_ZeroDistanceForSamePoint(t *testing.T) {
	d := Haversine(30.2672, -97.7431, 30.2672, -97.7431)
	if d != 0 {
		t.Fatalf("expected zero distance, got %f", d)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Austin downtown to Round Rock, roughly 17 miles.
	d := Haversine(30.2672, -97.7431, 30.5083, -97.6789)
	if d < 14 || d > 20 {
		t.Fatalf("expected distance near 17 miles, got %f", d)
	}
}

func TestScoreAccessibility_ProximityFullWithinFloor(t *testing.T) {
	zips := []ZipDemographics{
		{Zip: "78701", Lat: 30.27, Lon: -97.74, HasLocation: true, Population: 10000},
		{Zip: "78702", Lat: 30.26, Lon: -97.72, HasLocation: true, Population: 10000},
	}

	rows := ScoreAccessibility(zips, "78701", nil)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.DistanceMiles > 10 {
			t.Fatalf("test zips should be within the proximity floor, got %f miles", row.DistanceMiles)
		}
		if row.Proximity != 1.0 {
			t.Fatalf("expected full proximity within 10 miles, got %f for %s", row.Proximity, row.Zip)
		}
	}
}

func TestScoreAccessibility_PressureIsOneWithoutCompetitors(t *testing.T) {
	zips := []ZipDemographics{
		{Zip: "78701", Lat: 30.27, Lon: -97.74, HasLocation: true, Population: 25000},
	}

	rows := ScoreAccessibility(zips, "78701", map[string]int{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Pressure != 1.0 {
		t.Fatalf("expected pressure 1.0 with zero competitors, got %f", rows[0].Pressure)
	}
	if rows[0].Accessibility != 1.0 {
		t.Fatalf("expected accessibility 1.0, got %f", rows[0].Accessibility)
	}
}

func TestScoreAccessibility_ScoresStayInUnitRange(t *testing.T) {
	zips := []ZipDemographics{
		{Zip: "78701", Lat: 30.27, Lon: -97.74, HasLocation: true, Population: 5000},
		{Zip: "10021", Lat: 40.77, Lon: -73.96, HasLocation: true, Population: 40000},
		{Zip: "90210", Lat: 34.09, Lon: -118.41, HasLocation: true, Population: 200},
	}
	competitors := map[string]int{"78701": 12, "10021": 3, "90210": 40}

	for _, row := range ScoreAccessibility(zips, "78701", competitors) {
		if row.Accessibility < 0 || row.Accessibility > 1 {
			t.Fatalf("accessibility out of [0,1] for %s: %f", row.Zip, row.Accessibility)
		}
	}
}

func TestScoreAccessibility_PressureMatchesFormula(t *testing.T) {
	zips := []ZipDemographics{
		{Zip: "78701", Lat: 30.27, Lon: -97.74, HasLocation: true, Population: 20000},
	}

	rows := ScoreAccessibility(zips, "78701", map[string]int{"78701": 4})
	per10k := 4.0 / 2.0
	want := 1.0 / (1.0 + 0.9*per10k)
	if math.Abs(rows[0].Pressure-want) > 1e-12 {
		t.Fatalf("expected pressure %f, got %f", want, rows[0].Pressure)
	}
}

func TestPracticeLocation_FallsBackToMeanWhenZipAbsent(t *testing.T) {
	zips := []ZipDemographics{
		{Zip: "78701", Lat: 30.0, Lon: -97.0, HasLocation: true},
		{Zip: "78702", Lat: 32.0, Lon: -99.0, HasLocation: true},
		{Zip: "00000"}, // no location, must be ignored
	}

	lat, lon, ok := PracticeLocation(zips, "99999")
	if !ok {
		t.Fatal("expected a location")
	}
	if lat != 31.0 || lon != -98.0 {
		t.Fatalf("expected mean centroid (31, -98), got (%f, %f)", lat, lon)
	}
}

func TestPracticeLocation_NoLocatedRows(t *testing.T) {
	zips := []ZipDemographics{{Zip: "78701"}, {Zip: "78702"}}
	if _, _, ok := PracticeLocation(zips, "78701"); ok {
		t.Fatal("expected no location when nothing is geocoded")
	}
}

func TestDedupeByZip_KeepsFirstOccurrence(t *testing.T) {
	zips := []ZipDemographics{
		{Zip: "78701", Population: 100},
		{Zip: "78702", Population: 200},
		{Zip: "78701", Population: 999},
	}

	out := DedupeByZip(zips)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows after dedupe, got %d", len(out))
	}
	if out[0].Population != 100 {
		t.Fatalf("expected first occurrence to win, got population %f", out[0].Population)
	}
}
