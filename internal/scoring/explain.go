package scoring

import (
	"fmt"
	"sort"
	"strings"
)

const explanationTopK = 3

// featurePhrases maps model feature names to human-readable explanations.
// Cohort dummy columns are handled separately (de-prefixed).
var featurePhrases = map[string]string{
	"accessibility":    "Easy access to your practice",
	"population":       "Large addressable population",
	"median_income":    "High household income area",
	"density_per_sqmi": "Dense, walkable market",
	"college_pct":      "Highly educated population",
	"age_25_54_pct":    "Strong core-demographic presence",
	"owner_occ_pct":    "Established homeowner community",
	"affinity":         "Strong treatment-focus fit",
}

const cohortFeaturePrefix = "cohort_"

// Explain produces up to explanationTopK human-readable reasons why a ZIP
// scored well, ranked by absolute coefficient contribution. vector must be
// the raw feature vector in the model's feature order.
func Explain(model *RidgeModel, vector []float64) []string {
	if model == nil || len(vector) != len(model.Coef) {
		return nil
	}

	scaled := model.Scaler.Apply(vector)

	type contribution struct {
		name  string
		value float64
	}
	contributions := make([]contribution, len(scaled))
	for j, v := range scaled {
		contributions[j] = contribution{
			name:  model.FeatureNames[j],
			value: v * model.Coef[j],
		}
	}
	sort.SliceStable(contributions, func(i, j int) bool {
		return abs(contributions[i].value) > abs(contributions[j].value)
	})

	reasons := make([]string, 0, explanationTopK)
	for _, c := range contributions {
		if len(reasons) == explanationTopK {
			break
		}
		reasons = append(reasons, phraseFor(c.name))
	}
	return reasons
}

// phraseFor maps a feature name to its display phrase. Cohort dummies become
// "{cohort} lifestyle segment"; unmapped numeric features get a generic
// fallback phrase.
func phraseFor(feature string) string {
	if cohort, ok := strings.CutPrefix(feature, cohortFeaturePrefix); ok {
		return fmt.Sprintf("%s lifestyle segment", cohort)
	}
	if phrase, ok := featurePhrases[feature]; ok {
		return phrase
	}
	return fmt.Sprintf("Strong %s", strings.ReplaceAll(feature, "_", " "))
}

// FallbackExplanations produces canned threshold-based reasons when no ridge
// model is available.
func FallbackExplanations(access AccessibilityRow, affinity float64) []string {
	reasons := make([]string, 0, 3)
	if access.Accessibility > 0.7 {
		reasons = append(reasons, "High accessibility score")
	}
	if affinity > 0.6 {
		reasons = append(reasons, "Strong treatment-focus fit")
	}
	if access.CompetitorsPer10k < 1.0 {
		reasons = append(reasons, "Low competitor density")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Growing market opportunity")
	}
	return reasons
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
