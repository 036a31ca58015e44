package scoring

import (
	"errors"
	"math"
)

const (
	// ridgeAlpha is the fixed L2 penalty for the penetration model.
	ridgeAlpha = 2.0

	// minTrainingZips is the minimum number of ZIPs with customer history
	// required to fit the model.
	minTrainingZips = 5

	// minFeatureRows is the minimum usable feature rows after filtering.
	minFeatureRows = 3
)

// Scaler stores per-feature standardization parameters so feature vectors can
// be scaled identically at explanation time.
type Scaler struct {
	Means []float64
	Stds  []float64
}

// Apply returns the standardized copy of one feature vector.
func (s Scaler) Apply(vector []float64) []float64 {
	scaled := make([]float64, len(vector))
	for j, v := range vector {
		scaled[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return scaled
}

// RidgeModel is a fitted L2-regularized linear model over standardized
// features, retained together with its scaler and ordered feature names.
type RidgeModel struct {
	FeatureNames []string
	Coef         []float64
	Intercept    float64
	Scaler       Scaler
}

// Predict returns the model output for one raw (unscaled) feature vector.
func (m *RidgeModel) Predict(vector []float64) float64 {
	scaled := m.Scaler.Apply(vector)
	out := m.Intercept
	for j, v := range scaled {
		out += m.Coef[j] * v
	}
	return out
}

// RidgeOutcome is a tagged fit result: Model is nil on the degraded path and
// Reason explains why, so callers must handle the fallback explicitly.
type RidgeOutcome struct {
	Model  *RidgeModel
	Reason string
}

// FitRidge fits the market-penetration model. rows must all have
// len(featureNames) entries; target is revenue per 1,000 residents per ZIP.
// trainingZips counts distinct ZIPs with customer history; below the minimum
// no model is returned (a degraded-mode continuation, not an error).
func FitRidge(rows [][]float64, target []float64, featureNames []string, trainingZips int) RidgeOutcome {
	if trainingZips < minTrainingZips {
		return RidgeOutcome{Reason: "fewer than 5 zips with customer history"}
	}
	if len(rows) < minFeatureRows || len(rows) != len(target) {
		return RidgeOutcome{Reason: "not enough feature rows"}
	}

	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		matrix[i] = append([]float64(nil), row...)
	}

	means, stds := standardize(matrix)
	scaler := Scaler{Means: means, Stds: stds}

	coef, intercept, err := solveRidge(matrix, target, ridgeAlpha)
	if err != nil {
		return RidgeOutcome{Reason: "ridge solve failed: " + err.Error()}
	}

	return RidgeOutcome{Model: &RidgeModel{
		FeatureNames: append([]string(nil), featureNames...),
		Coef:         coef,
		Intercept:    intercept,
		Scaler:       scaler,
	}}
}

// solveRidge solves (XᵀX + αI) w = Xᵀ(y - mean(y)) on standardized X.
// The intercept is the target mean since the features are centered.
func solveRidge(x [][]float64, y []float64, alpha float64) (coef []float64, intercept float64, err error) {
	n := len(x)
	p := len(x[0])

	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	// Normal equations.
	gram := make([][]float64, p)
	rhs := make([]float64, p)
	for j := 0; j < p; j++ {
		gram[j] = make([]float64, p)
	}
	for i := 0; i < n; i++ {
		centered := y[i] - yMean
		for j := 0; j < p; j++ {
			rhs[j] += x[i][j] * centered
			for l := j; l < p; l++ {
				gram[j][l] += x[i][j] * x[i][l]
			}
		}
	}
	for j := 0; j < p; j++ {
		for l := 0; l < j; l++ {
			gram[j][l] = gram[l][j]
		}
		gram[j][j] += alpha
	}

	coef, err = solveLinearSystem(gram, rhs)
	if err != nil {
		return nil, 0, err
	}
	return coef, yMean, nil
}

// solveLinearSystem solves Av = b by Gaussian elimination with partial
// pivoting. A is modified in place.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	rhs := append([]float64(nil), b...)

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errors.New("singular system")
		}
		a[col], a[pivot] = a[pivot], a[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			rhs[row] -= factor * rhs[col]
		}
	}

	solution := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := rhs[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * solution[k]
		}
		solution[row] = sum / a[row][row]
	}
	return solution, nil
}
