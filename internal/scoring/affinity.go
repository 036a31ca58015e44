package scoring

// AffinityInput bundles everything the psychographic affinity estimator needs.
// Zips is the canonical ZIP order; the output slice aligns to it exactly.
type AffinityInput struct {
	Zips      []string
	Cohorts   map[string]string // zip -> cohort label
	Customers []Customer
	Rule      FocusRule
}

// focusStats accumulates revenue-weighted and count-based focus rates.
type focusStats struct {
	weightedFocus float64
	weightedTotal float64
	countFocus    int
	count         int
}

func (s *focusStats) add(c Customer, inFocus bool) {
	revenue := c.RevenueOrDefault()
	if revenue > 0 {
		s.weightedTotal += revenue
		if inFocus {
			s.weightedFocus += revenue
		}
	}
	s.count++
	if inFocus {
		s.countFocus++
	}
}

// rate returns the revenue-weighted focus rate, falling back to the simple
// count rate when revenue is degenerate (all zero or negative-coerced).
func (s *focusStats) rate() (float64, bool) {
	if s.weightedTotal > 0 {
		return s.weightedFocus / s.weightedTotal, true
	}
	if s.count > 0 {
		return float64(s.countFocus) / float64(s.count), true
	}
	return 0, false
}

// EstimateAffinity computes a [0,1] psychographic affinity score per ZIP for
// the selected focus. Observed per-ZIP rates are shrunk toward their cohort's
// rate via empirical Bayes; ZIPs without history take the cohort prior (or the
// global rate when the cohort itself is empty). The result is min-max
// normalized across the run, with a neutral 0.5 when there is no spread.
//
// The returned slice has exactly len(in.Zips) entries in the same order.
func EstimateAffinity(in AffinityInput) []float64 {
	return minMaxNormalize(affinityRaw(in))
}

// affinityRaw computes the shrunk, un-normalized posterior rate per ZIP.
func affinityRaw(in AffinityInput) []float64 {
	perZip := make(map[string]*focusStats, len(in.Zips))
	perCohort := make(map[string]*focusStats)
	global := &focusStats{}

	for _, c := range in.Customers {
		inFocus := in.Rule.Matches(c)
		global.add(c, inFocus)

		zs, ok := perZip[c.Zip]
		if !ok {
			zs = &focusStats{}
			perZip[c.Zip] = zs
		}
		zs.add(c, inFocus)

		if cohort, ok := in.Cohorts[c.Zip]; ok {
			cs, ok := perCohort[cohort]
			if !ok {
				cs = &focusStats{}
				perCohort[cohort] = cs
			}
			cs.add(c, inFocus)
		}
	}

	globalRate, _ := global.rate()

	// Shrinkage strength: sparse ZIPs regress toward their cohort's behavior
	// instead of overfitting on one or two observations.
	alpha := float64(len(in.Customers)) * 0.05
	if alpha < 5 {
		alpha = 5
	}

	raw := make([]float64, len(in.Zips))
	for i, zip := range in.Zips {
		prior := globalRate
		if cohort, ok := in.Cohorts[zip]; ok {
			if cs, ok := perCohort[cohort]; ok {
				if cohortRate, valid := cs.rate(); valid {
					prior = cohortRate
				}
			}
		}

		stats, observed := perZip[zip]
		if !observed || stats.count == 0 {
			raw[i] = prior
			continue
		}

		zipRate, valid := stats.rate()
		if !valid {
			raw[i] = prior
			continue
		}

		nZip := float64(stats.count)
		if nZip < 1 {
			nZip = 1
		}
		raw[i] = (zipRate*nZip + alpha*prior) / (nZip + alpha)
	}

	return raw
}

// minMaxNormalize rescales values to [0,1]; a spread-free input maps every
// entry to the neutral 0.5 instead of dividing by zero.
func minMaxNormalize(values []float64) []float64 {
	if len(values) == 0 {
		return values
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(values))
	if hi-lo < 1e-12 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
