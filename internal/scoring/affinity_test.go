package scoring

import (
	"math"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func surgicalRule(t *testing.T) FocusRule {
	t.Helper()
	rule, err := FocusRuleFor(Vertical("medspa"), "surgical")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rule
}

func TestEstimateAffinity_OutputAlignsToZipOrder(t *testing.T) {
	in := AffinityInput{
		Zips:    []string{"78701", "78702", "78703"},
		Cohorts: map[string]string{"78701": "Premium", "78702": "Value", "78703": "Value"},
		Customers: []Customer{
			{Zip: "78701", Revenue: floatPtr(5000), Procedure: "facelift surgery"},
			{Zip: "78702", Revenue: floatPtr(300), Procedure: "botox"},
		},
		Rule: surgicalRule(t),
	}

	out := EstimateAffinity(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(out))
	}
	for i, v := range out {
		if v < 0 || v > 1 {
			t.Fatalf("score %d out of [0,1]: %f", i, v)
		}
	}
}

func TestEstimateAffinity_SurgicalZipRanksHighest(t *testing.T) {
	// One ZIP dominated by surgical revenue, one by injectables, one unseen.
	customers := []Customer{
		{Zip: "78701", Revenue: floatPtr(8000), Procedure: "rhinoplasty"},
		{Zip: "78701", Revenue: floatPtr(6000), Procedure: "breast augmentation"},
		{Zip: "78702", Revenue: floatPtr(400), Procedure: "botox"},
		{Zip: "78702", Revenue: floatPtr(500), Procedure: "filler"},
	}
	in := AffinityInput{
		Zips:      []string{"78701", "78702", "78703"},
		Cohorts:   map[string]string{"78701": "Premium", "78702": "Value", "78703": "Value"},
		Customers: customers,
		Rule:      surgicalRule(t),
	}

	out := EstimateAffinity(in)
	if out[0] <= out[1] {
		t.Fatalf("expected surgical-heavy zip to outrank injectable zip: %f vs %f", out[0], out[1])
	}
	if out[0] != 1.0 {
		t.Fatalf("expected max-normalized top score 1.0, got %f", out[0])
	}
}

func TestAffinityRaw_UnseenZipTakesCohortPrior(t *testing.T) {
	customers := []Customer{
		{Zip: "78701", Revenue: floatPtr(1000), Procedure: "surgery"},
		{Zip: "78701", Revenue: floatPtr(1000), Procedure: "botox"},
	}
	in := AffinityInput{
		Zips:      []string{"78701", "78702"},
		Cohorts:   map[string]string{"78701": "Premium", "78702": "Premium"},
		Customers: customers,
		Rule:      surgicalRule(t),
	}

	raw := affinityRaw(in)
	// 78702 has no history and shares 78701's cohort, so it takes the cohort
	// rate exactly.
	if math.Abs(raw[1]-0.5) > 1e-12 {
		t.Fatalf("expected cohort prior 0.5 for unseen zip, got %f", raw[1])
	}
}

func TestAffinityRaw_ShrinkagePullsSparseZipTowardPrior(t *testing.T) {
	// A single surgical observation should not drive the zip rate to 1.0;
	// the cohort has mixed behavior, so the posterior lands between.
	customers := []Customer{
		{Zip: "78701", Revenue: floatPtr(1000), Procedure: "surgery"},
		{Zip: "78709", Revenue: floatPtr(1000), Procedure: "botox"},
	}
	in := AffinityInput{
		Zips:      []string{"78701"},
		Cohorts:   map[string]string{"78701": "Premium", "78709": "Premium"},
		Customers: customers,
		Rule:      surgicalRule(t),
	}

	raw := affinityRaw(in)
	if raw[0] >= 1.0 {
		t.Fatalf("expected shrinkage below the observed rate 1.0, got %f", raw[0])
	}
	if raw[0] <= 0.5 {
		t.Fatalf("expected posterior above the cohort prior 0.5, got %f", raw[0])
	}
}

func TestEstimateAffinity_NoSpreadYieldsNeutralScores(t *testing.T) {
	in := AffinityInput{
		Zips:    []string{"78701", "78702"},
		Cohorts: map[string]string{},
		Rule:    surgicalRule(t),
	}

	out := EstimateAffinity(in)
	for i, v := range out {
		if v != 0.5 {
			t.Fatalf("expected neutral 0.5 at %d, got %f", i, v)
		}
	}
}

func TestMinMaxNormalize_Empty(t *testing.T) {
	if out := minMaxNormalize(nil); len(out) != 0 {
		t.Fatalf("expected empty output, got %v", out)
	}
}
