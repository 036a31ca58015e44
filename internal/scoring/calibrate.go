package scoring

import "sort"

const (
	// monthlyBookingFactor converts total observed procedure counts into a
	// monthly-booking proxy.
	monthlyBookingFactor = 0.8

	// Confidence tier thresholds on the number of ZIPs with observed volume.
	highConfidenceZips   = 15
	mediumConfidenceZips = 7
	minCalibrationZips   = 3
)

// Confidence describes how trustworthy the calibrated predictions are.
// It is always populated, whether or not a calibrator could be fit.
type Confidence struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Status  string `json:"status"`
	NZips   int    `json:"n_zips"`
}

// confidenceFor derives the tier purely from the count of ZIPs with volume.
func confidenceFor(nZips int) Confidence {
	switch {
	case nZips >= highConfidenceZips:
		return Confidence{
			Level:   "high",
			Message: "Predictions calibrated against a broad booking history.",
			Status:  "calibrated",
			NZips:   nZips,
		}
	case nZips >= mediumConfidenceZips:
		return Confidence{
			Level:   "medium",
			Message: "Predictions calibrated against a moderate booking history; expect wider ranges.",
			Status:  "calibrated",
			NZips:   nZips,
		}
	default:
		return Confidence{
			Level:   "early",
			Message: "Limited booking history; predictions are directional only.",
			Status:  "early",
			NZips:   nZips,
		}
	}
}

// CalibrationOutcome is a tagged calibration result. Calibrator is nil when
// too few ZIPs have observed volume; Confidence is populated regardless.
type CalibrationOutcome struct {
	Calibrator *Isotonic
	Confidence Confidence
}

// Calibrate fits an isotonic regression of monthly booking volume on match
// score, using only ZIPs with observed procedure volume. matchScores and
// actualCounts are keyed by ZIP; ZIPs missing from actualCounts count as
// zero history.
func Calibrate(matchScores map[string]float64, actualCounts map[string]float64) CalibrationOutcome {
	type sample struct{ x, y float64 }
	samples := make([]sample, 0, len(actualCounts))
	for zip, actual := range actualCounts {
		if actual <= 0 {
			continue
		}
		score, ok := matchScores[zip]
		if !ok {
			continue
		}
		samples = append(samples, sample{x: score, y: actual * monthlyBookingFactor})
	}

	confidence := confidenceFor(len(samples))
	if len(samples) < minCalibrationZips {
		confidence.Status = "insufficient_data"
		return CalibrationOutcome{Confidence: confidence}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].x < samples[j].x })

	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.x
		ys[i] = s.y
	}

	return CalibrationOutcome{
		Calibrator: fitIsotonic(xs, ys),
		Confidence: confidence,
	}
}

// Isotonic is a fitted non-decreasing regression. Predictions interpolate
// linearly between fitted points and clip to the observed output range for
// out-of-bounds inputs.
type Isotonic struct {
	X    []float64
	Y    []float64
	YMin float64
	YMax float64
}

// fitIsotonic runs the pool-adjacent-violators algorithm over samples sorted
// ascending by x.
func fitIsotonic(xs, ys []float64) *Isotonic {
	n := len(ys)

	// Each block holds a running weighted mean; violators merge leftward.
	values := make([]float64, 0, n)
	weights := make([]float64, 0, n)
	for _, y := range ys {
		values = append(values, y)
		weights = append(weights, 1)
		for len(values) > 1 && values[len(values)-2] > values[len(values)-1] {
			last := len(values) - 1
			mergedWeight := weights[last-1] + weights[last]
			mergedValue := (values[last-1]*weights[last-1] + values[last]*weights[last]) / mergedWeight
			values = values[:last]
			weights = weights[:last]
			values[last-1] = mergedValue
			weights[last-1] = mergedWeight
		}
	}

	// Expand block means back to per-sample fitted values.
	fitted := make([]float64, 0, n)
	for i, w := range weights {
		for j := 0; j < int(w); j++ {
			fitted = append(fitted, values[i])
		}
	}

	iso := &Isotonic{X: xs, Y: fitted, YMin: fitted[0], YMax: fitted[len(fitted)-1]}
	return iso
}

// Predict returns the calibrated monthly booking volume for a match score.
func (iso *Isotonic) Predict(x float64) float64 {
	n := len(iso.X)
	if x <= iso.X[0] {
		return iso.YMin
	}
	if x >= iso.X[n-1] {
		return iso.YMax
	}

	idx := sort.SearchFloat64s(iso.X, x)
	lo, hi := idx-1, idx
	if iso.X[hi] == iso.X[lo] {
		return iso.Y[hi]
	}
	t := (x - iso.X[lo]) / (iso.X[hi] - iso.X[lo])
	return clampRange(iso.Y[lo]+t*(iso.Y[hi]-iso.Y[lo]), iso.YMin, iso.YMax)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
