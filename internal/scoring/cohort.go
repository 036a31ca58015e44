package scoring

import (
	"math"
	"sort"
)

// Cohort labels, ordered from highest to lowest cluster-mean income.
var cohortNames = []string{"Premium", "Affluent", "Emerging", "Value", "Niche"}

// CohortMethod identifies how cohort labels were produced.
type CohortMethod string

const (
	// CohortKMeans means labels came from standardized K-means clustering.
	CohortKMeans CohortMethod = "kmeans"
	// CohortFallback means labels came from the deterministic rule set.
	CohortFallback CohortMethod = "fallback"
)

// CohortFeatures is the per-ZIP feature vector used for cohort assignment.
type CohortFeatures struct {
	Zip           string
	Population    float64
	MedianIncome  float64
	Competitors   float64
	DistanceMiles float64
}

// CohortResult is a tagged assignment outcome: callers can distinguish a
// clustered result from the rule-based fallback and surface the reason.
type CohortResult struct {
	// Labels holds one cohort label per input row, in input order.
	Labels []string
	Method CohortMethod
	// FallbackReason is set when Method is CohortFallback.
	FallbackReason string
}

// minVarianceEpsilon guards against clustering a feature matrix with
// effectively no spread.
const minVarianceEpsilon = 1e-9

// AssignCohorts clusters ZIPs into named lifestyle cohorts. Small or
// degenerate inputs, and any clustering failure, use the rule-based fallback
// instead of propagating an error. Output is aligned to the input order.
func AssignCohorts(features []CohortFeatures, seed int64) CohortResult {
	n := len(features)
	if n == 0 {
		return CohortResult{Labels: []string{}, Method: CohortFallback, FallbackReason: "no zips"}
	}
	if n < 3 {
		return ruleBasedCohorts(features, "fewer than 3 zips")
	}

	matrix := make([][]float64, n)
	for i, f := range features {
		matrix[i] = []float64{f.Population, f.MedianIncome, f.Competitors, f.DistanceMiles}
	}

	if totalSpread(matrix) < minVarianceEpsilon {
		return ruleBasedCohorts(features, "near-zero feature variance")
	}

	standardize(matrix)

	k := clusterCount(n)
	assignments, err := kMeans(matrix, k, seed)
	if err != nil {
		return ruleBasedCohorts(features, "clustering failed: "+err.Error())
	}

	names := nameClustersByIncome(features, assignments, k)

	labels := make([]string, n)
	for i, cluster := range assignments {
		labels[i] = names[cluster]
	}

	return CohortResult{Labels: labels, Method: CohortKMeans}
}

// clusterCount picks k: min(5, n) for n >= 10, otherwise min(3, n-1).
func clusterCount(n int) int {
	if n >= 10 {
		return 5
	}
	k := n - 1
	if k > 3 {
		k = 3
	}
	return k
}

// ruleBasedCohorts is the deterministic fallback assignment.
func ruleBasedCohorts(features []CohortFeatures, reason string) CohortResult {
	labels := make([]string, len(features))
	for i, f := range features {
		switch {
		case f.MedianIncome > 75000 && f.Competitors <= 2:
			labels[i] = "Premium"
		case f.MedianIncome > 60000:
			labels[i] = "Affluent"
		case f.Competitors <= 1:
			labels[i] = "Emerging"
		default:
			labels[i] = "Value"
		}
	}
	return CohortResult{Labels: labels, Method: CohortFallback, FallbackReason: reason}
}

// nameClustersByIncome maps cluster indices to cohort names by sorting
// cluster-mean income descending: the richest cluster becomes Premium.
func nameClustersByIncome(features []CohortFeatures, assignments []int, k int) []string {
	sums := make([]float64, k)
	counts := make([]int, k)
	for i, cluster := range assignments {
		sums[cluster] += features[i].MedianIncome
		counts[cluster]++
	}

	type clusterIncome struct {
		cluster int
		mean    float64
	}
	ranked := make([]clusterIncome, 0, k)
	for c := 0; c < k; c++ {
		mean := 0.0
		if counts[c] > 0 {
			mean = sums[c] / float64(counts[c])
		}
		ranked = append(ranked, clusterIncome{cluster: c, mean: mean})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].mean > ranked[j].mean })

	names := make([]string, k)
	for rank, entry := range ranked {
		if rank < len(cohortNames) {
			names[entry.cluster] = cohortNames[rank]
		} else {
			names[entry.cluster] = cohortNames[len(cohortNames)-1]
		}
	}
	return names
}

// totalSpread sums per-column standard deviations of the raw feature matrix.
func totalSpread(matrix [][]float64) float64 {
	if len(matrix) == 0 {
		return 0
	}
	cols := len(matrix[0])
	n := float64(len(matrix))

	total := 0.0
	for j := 0; j < cols; j++ {
		sum := 0.0
		for _, row := range matrix {
			sum += row[j]
		}
		mean := sum / n

		variance := 0.0
		for _, row := range matrix {
			d := row[j] - mean
			variance += d * d
		}
		total += math.Sqrt(variance / n)
	}
	return total
}
