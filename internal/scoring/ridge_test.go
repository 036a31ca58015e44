package scoring

import (
	"math"
	"testing"
)

func TestFitRidge_TooFewTrainingZips(t *testing.T) {
	rows := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	target := []float64{1, 2, 3}

	outcome := FitRidge(rows, target, []string{"a", "b"}, 4)
	if outcome.Model != nil {
		t.Fatal("expected no model below the training-zip minimum")
	}
	if outcome.Reason == "" {
		t.Fatal("expected a degradation reason")
	}
}

func TestFitRidge_TooFewFeatureRows(t *testing.T) {
	rows := [][]float64{{1, 2}, {3, 4}}
	target := []float64{1, 2}

	outcome := FitRidge(rows, target, []string{"a", "b"}, 10)
	if outcome.Model != nil {
		t.Fatal("expected no model with fewer than 3 feature rows")
	}
}

func TestFitRidge_RecoversLinearTrend(t *testing.T) {
	// y = 2*x0 + noiseless intercept; regularization biases slightly toward
	// zero but the ranking must survive.
	rows := make([][]float64, 20)
	target := make([]float64, 20)
	for i := range rows {
		x := float64(i)
		rows[i] = []float64{x, float64(i % 3)}
		target[i] = 2 * x
	}

	outcome := FitRidge(rows, target, []string{"x", "junk"}, 20)
	if outcome.Model == nil {
		t.Fatalf("expected a model, got reason %q", outcome.Reason)
	}

	low := outcome.Model.Predict([]float64{1, 0})
	high := outcome.Model.Predict([]float64{18, 0})
	if high <= low {
		t.Fatalf("expected increasing predictions along the trend: %f vs %f", low, high)
	}
	if outcome.Model.Coef[0] <= 0 {
		t.Fatalf("expected positive coefficient on the trend feature, got %f", outcome.Model.Coef[0])
	}
	if math.Abs(outcome.Model.Coef[0]) <= math.Abs(outcome.Model.Coef[1]) {
		t.Fatalf("expected trend feature to dominate: %f vs %f", outcome.Model.Coef[0], outcome.Model.Coef[1])
	}
}

func TestFitRidge_InterceptIsTargetMean(t *testing.T) {
	rows := [][]float64{{1, 0}, {2, 1}, {3, 0}, {4, 1}, {5, 0}}
	target := []float64{10, 20, 30, 40, 50}

	outcome := FitRidge(rows, target, []string{"a", "b"}, 5)
	if outcome.Model == nil {
		t.Fatalf("expected a model, got reason %q", outcome.Reason)
	}
	if math.Abs(outcome.Model.Intercept-30) > 1e-9 {
		t.Fatalf("expected intercept 30, got %f", outcome.Model.Intercept)
	}
}

func TestSolveLinearSystem_Identity(t *testing.T) {
	a := [][]float64{{1, 0}, {0, 1}}
	b := []float64{3, 7}

	solution, err := solveLinearSystem(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if solution[0] != 3 || solution[1] != 7 {
		t.Fatalf("expected [3 7], got %v", solution)
	}
}

func TestSolveLinearSystem_Singular(t *testing.T) {
	a := [][]float64{{1, 1}, {2, 2}}
	b := []float64{1, 2}

	if _, err := solveLinearSystem(a, b); err == nil {
		t.Fatal("expected error for singular system")
	}
}
