// Package geo holds the offline ZIP centroid table and the demographic
// enrichment step that prepares the ZIP universe for scoring.
package geo

import (
	"bytes"
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

//go:embed data/zip_centroids.csv
var seedData embed.FS

// Centroid is the geographic center of one ZIP code.
type Centroid struct {
	Lat float64
	Lon float64
}

// Table is an in-memory ZIP -> centroid lookup.
type Table struct {
	byZip map[string]Centroid
}

// LoadTable builds the centroid table from the embedded seed data, optionally
// merged with an external CSV at extraPath (same zip,lat,lon format). External
// rows win on conflict, so a full national table can override the seed.
func LoadTable(extraPath string) (*Table, error) {
	seed, err := seedData.ReadFile("data/zip_centroids.csv")
	if err != nil {
		return nil, fmt.Errorf("read embedded centroids: %w", err)
	}

	byZip, err := parseCentroids(bytes.NewReader(seed))
	if err != nil {
		return nil, fmt.Errorf("parse embedded centroids: %w", err)
	}

	if extraPath != "" {
		f, err := os.Open(extraPath)
		if err != nil {
			return nil, fmt.Errorf("open centroid table %s: %w", extraPath, err)
		}
		defer f.Close()

		extra, err := parseCentroids(f)
		if err != nil {
			return nil, fmt.Errorf("parse centroid table %s: %w", extraPath, err)
		}
		for zip, c := range extra {
			byZip[zip] = c
		}
	}

	return &Table{byZip: byZip}, nil
}

// Lookup returns the centroid for a 5-digit ZIP.
func (t *Table) Lookup(zip string) (Centroid, bool) {
	c, ok := t.byZip[zip]
	return c, ok
}

// Len reports the number of ZIPs in the table.
func (t *Table) Len() int { return len(t.byZip) }

func parseCentroids(r io.Reader) (map[string]Centroid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	byZip := make(map[string]Centroid, len(records))
	for i, record := range records {
		if i == 0 && record[0] == "zip" {
			continue
		}
		lat, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid latitude %q", i+1, record[1])
		}
		lon, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid longitude %q", i+1, record[2])
		}
		byZip[record[0]] = Centroid{Lat: lat, Lon: lon}
	}
	return byZip, nil
}
