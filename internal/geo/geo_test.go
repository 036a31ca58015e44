package geo

import (
	"os"
	"path/filepath"
	"testing"

	"marketscope_backend/internal/scoring"
)

func TestLoadTable_EmbeddedSeed(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() == 0 {
		t.Fatal("expected embedded seed rows")
	}

	c, ok := table.Lookup("78701")
	if !ok {
		t.Fatal("expected seed to cover 78701")
	}
	if c.Lat != 30.2703 || c.Lon != -97.7426 {
		t.Fatalf("unexpected centroid for 78701: %+v", c)
	}

	if _, ok := table.Lookup("00000"); ok {
		t.Fatal("expected miss for unknown zip")
	}
}

func TestLoadTable_ExternalRowsOverrideSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centroids.csv")
	csv := "zip,lat,lon\n78701,31.0,-98.0\n99990,61.2,-149.9\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, ok := table.Lookup("78701")
	if !ok || c.Lat != 31.0 {
		t.Fatalf("expected external row to win, got %+v ok=%v", c, ok)
	}
	if _, ok := table.Lookup("99990"); !ok {
		t.Fatal("expected external-only zip to be present")
	}
	// Seed zips outside the override survive the merge.
	if _, ok := table.Lookup("10001"); !ok {
		t.Fatal("expected untouched seed zip to survive")
	}
}

func TestLoadTable_BadExternalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centroids.csv")
	if err := os.WriteFile(path, []byte("zip,lat,lon\n78701,not-a-number,0\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Fatal("expected error for invalid latitude")
	}
	if _, err := LoadTable(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnrich_BackfillsFromCentroidTable(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := []scoring.ZipDemographics{
		{Zip: "78701", Lat: 30.5, Lon: -97.5, HasLocation: true},
		{Zip: "78702"}, // backfilled from the table
		{Zip: "00000"}, // unresolvable, dropped
	}

	result := Enrich(rows, table)
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", len(result.Rows))
	}
	if result.Backfilled != 1 {
		t.Fatalf("expected 1 backfilled row, got %d", result.Backfilled)
	}
	if len(result.Dropped) != 1 || result.Dropped[0] != "00000" {
		t.Fatalf("expected 00000 dropped, got %v", result.Dropped)
	}

	// Uploaded coordinates are kept over the centroid table.
	if result.Rows[0].Lat != 30.5 {
		t.Fatalf("expected uploaded lat preserved, got %f", result.Rows[0].Lat)
	}
	if !result.Rows[1].HasLocation || result.Rows[1].Lat != 30.2631 {
		t.Fatalf("expected 78702 backfilled, got %+v", result.Rows[1])
	}
}

func TestEnrich_AppliesNationalDefaults(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := []scoring.ZipDemographics{
		{Zip: "78701", HasLocation: true, Lat: 30.27, Lon: -97.74, MedianIncome: 90000},
	}

	result := Enrich(rows, table)
	row := result.Rows[0]
	if row.MedianIncome != 90000 {
		t.Fatalf("expected provided income untouched, got %f", row.MedianIncome)
	}
	if row.Population != DefaultPopulation {
		t.Fatalf("expected default population, got %f", row.Population)
	}
	if row.CollegePct != DefaultCollegePct || row.OwnerOccPct != DefaultOwnerOccPct {
		t.Fatalf("unexpected defaults: %+v", row)
	}
}

func TestEnrich_CollapsesDuplicateZips(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := []scoring.ZipDemographics{
		{Zip: "78701", HasLocation: true, Lat: 1, Lon: 1, Population: 100},
		{Zip: "78701", HasLocation: true, Lat: 2, Lon: 2, Population: 200},
	}

	result := Enrich(rows, table)
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row after dedupe, got %d", len(result.Rows))
	}
	if result.Rows[0].Population != 100 {
		t.Fatalf("expected first occurrence to win, got %f", result.Rows[0].Population)
	}
}
