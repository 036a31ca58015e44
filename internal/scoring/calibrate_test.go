package scoring

import (
	"fmt"
	"math"
	"testing"
)

func TestConfidenceFor_Tiers(t *testing.T) {
	tests := []struct {
		nZips      int
		wantLevel  string
		wantStatus string
	}{
		{0, "early", "early"},
		{2, "early", "early"},
		{3, "early", "early"},
		{6, "early", "early"},
		{7, "medium", "calibrated"},
		{14, "medium", "calibrated"},
		{15, "high", "calibrated"},
		{40, "high", "calibrated"},
	}

	for _, tt := range tests {
		got := confidenceFor(tt.nZips)
		if got.Level != tt.wantLevel {
			t.Fatalf("nZips=%d: expected level %s, got %s", tt.nZips, tt.wantLevel, got.Level)
		}
		if got.Status != tt.wantStatus {
			t.Fatalf("nZips=%d: expected status %s, got %s", tt.nZips, tt.wantStatus, got.Status)
		}
		if got.NZips != tt.nZips {
			t.Fatalf("nZips=%d: NZips not propagated, got %d", tt.nZips, got.NZips)
		}
	}
}

func TestCalibrate_InsufficientData(t *testing.T) {
	matchScores := map[string]float64{"78701": 0.9, "78702": 0.4}
	actual := map[string]float64{"78701": 12, "78702": 3}

	outcome := Calibrate(matchScores, actual)
	if outcome.Calibrator != nil {
		t.Fatal("expected no calibrator with only 2 observed zips")
	}
	if outcome.Confidence.Status != "insufficient_data" {
		t.Fatalf("expected insufficient_data status, got %s", outcome.Confidence.Status)
	}
}

func TestCalibrate_IgnoresZeroVolumeZips(t *testing.T) {
	matchScores := map[string]float64{"a": 0.1, "b": 0.5, "c": 0.9, "d": 0.7}
	actual := map[string]float64{"a": 2, "b": 5, "c": 9, "d": 0}

	outcome := Calibrate(matchScores, actual)
	if outcome.Calibrator == nil {
		t.Fatal("expected a calibrator from 3 observed zips")
	}
	if outcome.Confidence.NZips != 3 {
		t.Fatalf("expected 3 counted zips, got %d", outcome.Confidence.NZips)
	}
}

func TestCalibrate_PredictionsAreMonotone(t *testing.T) {
	matchScores := make(map[string]float64)
	actual := make(map[string]float64)
	for i := 0; i < 20; i++ {
		zip := fmt.Sprintf("787%02d", i)
		matchScores[zip] = float64(i) / 19.0
		// Noisy but increasing volume.
		actual[zip] = float64(i) + math.Sin(float64(i))*2 + 3
	}

	outcome := Calibrate(matchScores, actual)
	if outcome.Calibrator == nil {
		t.Fatal("expected a calibrator")
	}
	if outcome.Confidence.Level != "high" {
		t.Fatalf("expected high confidence with 20 zips, got %s", outcome.Confidence.Level)
	}

	prev := math.Inf(-1)
	for x := 0.0; x <= 1.0; x += 0.05 {
		pred := outcome.Calibrator.Predict(x)
		if pred < prev-1e-9 {
			t.Fatalf("prediction decreased at x=%f: %f < %f", x, pred, prev)
		}
		prev = pred
	}
}

func TestIsotonic_ClipsOutOfRangeInputs(t *testing.T) {
	iso := fitIsotonic([]float64{0.2, 0.5, 0.8}, []float64{2, 4, 6})

	if got := iso.Predict(-1); got != 2 {
		t.Fatalf("expected clip to min 2, got %f", got)
	}
	if got := iso.Predict(2); got != 6 {
		t.Fatalf("expected clip to max 6, got %f", got)
	}
}

func TestIsotonic_InterpolatesBetweenPoints(t *testing.T) {
	iso := fitIsotonic([]float64{0, 1}, []float64{0, 10})
	if got := iso.Predict(0.5); math.Abs(got-5) > 1e-9 {
		t.Fatalf("expected 5 at midpoint, got %f", got)
	}
}

func TestFitIsotonic_MergesViolators(t *testing.T) {
	// A decreasing pair must be pooled to its mean.
	iso := fitIsotonic([]float64{0, 1, 2}, []float64{4, 2, 9})
	if math.Abs(iso.Y[0]-3) > 1e-9 || math.Abs(iso.Y[1]-3) > 1e-9 {
		t.Fatalf("expected pooled values [3 3], got %v", iso.Y[:2])
	}
	if iso.Y[2] != 9 {
		t.Fatalf("expected untouched final value 9, got %f", iso.Y[2])
	}
}
