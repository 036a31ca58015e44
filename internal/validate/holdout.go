// Package validate measures how well the scoring pipeline's ZIP ranking
// agrees with held-out booking history. The split is by ZIP membership, not
// by customer, and test ZIPs can coincide with train-derived picks by chance;
// treat the resulting concordance as an approximate quality signal, not a
// rigorous evaluation.
package validate

import (
	"errors"
	"math/rand"
	"sort"

	"marketscope_backend/internal/scoring"
	"marketscope_backend/platform/logger"
)

const (
	// trainFraction of unique customer ZIPs goes to the training side.
	trainFraction = 0.7

	// minHoldoutZips is the smallest ZIP universe worth splitting.
	minHoldoutZips = 5
)

// ErrTooFewZips is returned when the customer history spans too few ZIPs to
// form a meaningful holdout split.
var ErrTooFewZips = errors.New("too few customer zips for a holdout split")

// HoldoutReport summarizes one train/test concordance measurement.
type HoldoutReport struct {
	TrainZips      int     `json:"train_zips"`
	TestZips       int     `json:"test_zips"`
	TopN           int     `json:"top_n"`
	HitRate        float64 `json:"hit_rate"`
	VolumeCaptured float64 `json:"volume_captured"`
}

// Holdout splits customer ZIPs into train/test, reruns the pipeline on the
// train-side ledger only, and measures how much of the test-side booking
// volume lands in the train-derived top segments. The seed fixes both the
// split and the pipeline's clustering.
func Holdout(in scoring.PipelineInput, log *logger.Logger) (HoldoutReport, error) {
	uniqueZips := customerZips(in.Customers)
	if len(uniqueZips) < minHoldoutZips {
		return HoldoutReport{}, ErrTooFewZips
	}

	rng := rand.New(rand.NewSource(in.Config.Seed))
	shuffled := append([]string(nil), uniqueZips...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	cut := int(float64(len(shuffled)) * trainFraction)
	if cut < 1 {
		cut = 1
	}
	if cut >= len(shuffled) {
		cut = len(shuffled) - 1
	}

	trainSet := make(map[string]struct{}, cut)
	for _, zip := range shuffled[:cut] {
		trainSet[zip] = struct{}{}
	}

	trainCustomers := make([]scoring.Customer, 0, len(in.Customers))
	testVolume := make(map[string]int)
	totalTestVolume := 0
	for _, c := range in.Customers {
		if _, ok := trainSet[c.Zip]; ok {
			trainCustomers = append(trainCustomers, c)
			continue
		}
		testVolume[c.Zip]++
		totalTestVolume++
	}

	trainInput := in
	trainInput.Customers = trainCustomers
	result, err := scoring.Run(trainInput, log)
	if err != nil {
		return HoldoutReport{}, err
	}

	picked := make(map[string]struct{}, len(result.TopSegments))
	for _, segment := range result.TopSegments {
		picked[segment.Zip] = struct{}{}
	}

	report := HoldoutReport{
		TrainZips: cut,
		TestZips:  len(shuffled) - cut,
		TopN:      len(result.TopSegments),
	}

	hits := 0
	captured := 0
	for zip, volume := range testVolume {
		if _, ok := picked[zip]; ok {
			hits++
			captured += volume
		}
	}
	if len(testVolume) > 0 {
		report.HitRate = float64(hits) / float64(len(testVolume))
	}
	if totalTestVolume > 0 {
		report.VolumeCaptured = float64(captured) / float64(totalTestVolume)
	}
	return report, nil
}

// customerZips returns the distinct ZIPs in the ledger in sorted order so the
// seeded shuffle is reproducible across runs.
func customerZips(customers []scoring.Customer) []string {
	seen := make(map[string]struct{})
	for _, c := range customers {
		seen[c.Zip] = struct{}{}
	}
	zips := make([]string, 0, len(seen))
	for zip := range seen {
		zips = append(zips, zip)
	}
	sort.Strings(zips)
	return zips
}
