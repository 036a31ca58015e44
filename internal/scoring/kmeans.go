package scoring

import (
	"errors"
	"math"
	"math/rand"
)

// errDegenerateClustering is returned when K-means cannot produce k non-empty
// clusters, which happens on tiny or collapsed feature matrices.
var errDegenerateClustering = errors.New("degenerate clustering input")

const kmeansMaxIterations = 100

// standardize transforms columns to zero mean and unit variance in place and
// returns the per-column mean and standard deviation. Columns with zero
// spread keep a unit divisor so they pass through centered.
func standardize(matrix [][]float64) (means, stds []float64) {
	if len(matrix) == 0 {
		return nil, nil
	}
	cols := len(matrix[0])
	n := float64(len(matrix))

	means = make([]float64, cols)
	stds = make([]float64, cols)

	for j := 0; j < cols; j++ {
		sum := 0.0
		for _, row := range matrix {
			sum += row[j]
		}
		means[j] = sum / n

		variance := 0.0
		for _, row := range matrix {
			d := row[j] - means[j]
			variance += d * d
		}
		stds[j] = math.Sqrt(variance / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	for _, row := range matrix {
		for j := 0; j < cols; j++ {
			row[j] = (row[j] - means[j]) / stds[j]
		}
	}

	return means, stds
}

// kMeans clusters rows into k groups using Lloyd's algorithm with
// k-means++ seeding. The seed makes the result reproducible for a fixed
// input. Returns one cluster index per row.
func kMeans(rows [][]float64, k int, seed int64) ([]int, error) {
	n := len(rows)
	if k < 1 || n < k {
		return nil, errDegenerateClustering
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(rows, k, rng)

	assignments := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, row := range rows {
			best := nearestCentroid(row, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, len(rows[0]))
		}
		for i, row := range rows {
			c := assignments[i]
			counts[c]++
			for j, v := range row {
				next[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				return nil, errDegenerateClustering
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		centroids = next
	}

	return assignments, nil
}

// seedCentroids picks initial centroids with k-means++ weighting: each new
// centroid is sampled proportionally to squared distance from the nearest
// chosen one.
func seedCentroids(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := rows[rng.Intn(len(rows))]
	centroids = append(centroids, append([]float64(nil), first...))

	for len(centroids) < k {
		weights := make([]float64, len(rows))
		total := 0.0
		for i, row := range rows {
			d := distanceToNearest(row, centroids)
			weights[i] = d * d
			total += weights[i]
		}

		if total == 0 {
			// All points coincide with existing centroids; fall back to
			// picking an arbitrary remaining row.
			centroids = append(centroids, append([]float64(nil), rows[rng.Intn(len(rows))]...))
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		chosen := len(rows) - 1
		for i, w := range weights {
			cumulative += w
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), rows[chosen]...))
	}

	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		d := squaredDistance(row, centroid)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func distanceToNearest(row []float64, centroids [][]float64) float64 {
	best := math.Inf(1)
	for _, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < best {
			best = d
		}
	}
	return math.Sqrt(best)
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
