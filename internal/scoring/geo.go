package scoring

import "math"

const (
	// earthRadiusMiles is the great-circle radius used for haversine distances.
	earthRadiusMiles = 3956.0

	// proximityFloorMiles is the distance within which proximity stays at 1.0.
	proximityFloorMiles = 10.0

	// proximityDecay controls the exponential falloff beyond the floor.
	proximityDecay = 0.14

	// pressureCoefficient scales competitor density into competitive pressure.
	pressureCoefficient = 0.9
)

// AccessibilityRow is the geo-accessibility output for one ZIP.
type AccessibilityRow struct {
	Zip               string
	DistanceMiles     float64
	Proximity         float64
	Competitors       int
	CompetitorsPer10k float64
	Pressure          float64
	Accessibility     float64
}

// Haversine returns the great-circle distance in miles between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180.0

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}

// PracticeLocation resolves the practice coordinates. If the practice ZIP is
// present in the universe its centroid is used; otherwise the mean lat/lon of
// all located rows. The second return is false when no row has a location.
func PracticeLocation(zips []ZipDemographics, practiceZip string) (lat, lon float64, ok bool) {
	var sumLat, sumLon float64
	located := 0

	for _, z := range zips {
		if !z.HasLocation {
			continue
		}
		if z.Zip == practiceZip {
			return z.Lat, z.Lon, true
		}
		sumLat += z.Lat
		sumLon += z.Lon
		located++
	}

	if located == 0 {
		return 0, 0, false
	}
	return sumLat / float64(located), sumLon / float64(located), true
}

// ScoreAccessibility computes the geo-accessibility score for every located
// ZIP: distance decay toward the practice blended with competitive pressure.
// Input rows are deduplicated by ZIP (first occurrence wins) and rows without
// a location are excluded from the output. Output order follows the
// deduplicated input order.
func ScoreAccessibility(zips []ZipDemographics, practiceZip string, competitorCounts map[string]int) []AccessibilityRow {
	deduped := DedupeByZip(zips)

	practiceLat, practiceLon, ok := PracticeLocation(deduped, practiceZip)
	if !ok {
		return nil
	}

	rows := make([]AccessibilityRow, 0, len(deduped))
	for _, z := range deduped {
		if !z.HasLocation {
			continue
		}

		distance := Haversine(z.Lat, z.Lon, practiceLat, practiceLon)

		proximity := 1.0
		if distance > proximityFloorMiles {
			proximity = math.Exp(-proximityDecay * (distance - proximityFloorMiles))
		}

		competitors := competitorCounts[z.Zip]
		per10k := 0.0
		if z.Population > 0 {
			per10k = float64(competitors) / (z.Population / 10000.0)
		}

		pressure := 1.0 / (1.0 + pressureCoefficient*per10k)

		rows = append(rows, AccessibilityRow{
			Zip:               z.Zip,
			DistanceMiles:     distance,
			Proximity:         proximity,
			Competitors:       competitors,
			CompetitorsPer10k: per10k,
			Pressure:          pressure,
			Accessibility:     clamp01(proximity * pressure),
		})
	}

	return rows
}

// DedupeByZip removes duplicate ZIP rows, keeping the first occurrence.
// Duplicates would otherwise multiply downstream key joins.
func DedupeByZip(zips []ZipDemographics) []ZipDemographics {
	seen := make(map[string]struct{}, len(zips))
	out := make([]ZipDemographics, 0, len(zips))
	for _, z := range zips {
		if _, dup := seen[z.Zip]; dup {
			continue
		}
		seen[z.Zip] = struct{}{}
		out = append(out, z)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
