package scoring

import "testing"

func TestVertical_UnknownFallsBackToMedspa(t *testing.T) {
	cfg := Vertical("dentistry")
	if cfg.Name != "medspa" {
		t.Fatalf("expected medspa fallback, got %s", cfg.Name)
	}
	if Vertical(" MedSpa ").Name != "medspa" {
		t.Fatal("expected case-insensitive, trimmed lookup")
	}
}

func TestFocusRuleFor_KeywordFocus(t *testing.T) {
	rule, err := FocusRuleFor(Vertical("medspa"), "non_invasive")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.Kind != FocusKeyword {
		t.Fatalf("expected keyword rule, got %s", rule.Kind)
	}

	if !rule.Matches(Customer{Procedure: "Botox Touch-Up"}) {
		t.Fatal("expected case-insensitive substring match")
	}
	if rule.Matches(Customer{Procedure: "facelift surgery"}) {
		t.Fatal("expected surgical procedure to miss non_invasive focus")
	}
	if rule.Matches(Customer{}) {
		t.Fatal("expected empty procedure to miss keyword focus")
	}
}

func TestFocusRuleFor_RevenueFocus(t *testing.T) {
	rule, err := FocusRuleFor(Vertical("medspa"), "high_value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	high := 2000.0
	low := 200.0
	if !rule.Matches(Customer{Revenue: &high}) {
		t.Fatal("expected 2000 to match high_value for medspa")
	}
	if rule.Matches(Customer{Revenue: &low}) {
		t.Fatal("expected 200 to miss high_value")
	}
	// Missing revenue uses the default, which sits below the medspa threshold.
	if rule.Matches(Customer{}) {
		t.Fatal("expected default revenue to miss high_value")
	}
}

func TestFocusRuleFor_UnknownFocus(t *testing.T) {
	if _, err := FocusRuleFor(Vertical("medspa"), "laser_eyes"); err == nil {
		t.Fatal("expected error for unknown focus")
	}
}

func TestVerticalNames_Sorted(t *testing.T) {
	names := VerticalNames()
	if len(names) != 2 || names[0] != "medspa" || names[1] != "mortgage" {
		t.Fatalf("unexpected vertical list: %v", names)
	}
}

func TestExplain_ReturnsTopContributors(t *testing.T) {
	model := &RidgeModel{
		FeatureNames: []string{"median_income", "affinity", "cohort_Premium", "population"},
		Coef:         []float64{5, 0.1, 2, 0.01},
		Scaler: Scaler{
			Means: []float64{0, 0, 0, 0},
			Stds:  []float64{1, 1, 1, 1},
		},
	}

	reasons := Explain(model, []float64{1, 1, 1, 1})
	if len(reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %d", len(reasons))
	}
	if reasons[0] != "High household income area" {
		t.Fatalf("expected income first, got %q", reasons[0])
	}
	if reasons[1] != "Premium lifestyle segment" {
		t.Fatalf("expected cohort phrase second, got %q", reasons[1])
	}
}

func TestExplain_NilModel(t *testing.T) {
	if reasons := Explain(nil, []float64{1}); reasons != nil {
		t.Fatalf("expected nil, got %v", reasons)
	}
}

func TestFallbackExplanations_NeverEmpty(t *testing.T) {
	reasons := FallbackExplanations(AccessibilityRow{Accessibility: 0.1, CompetitorsPer10k: 5}, 0.1)
	if len(reasons) != 1 || reasons[0] != "Growing market opportunity" {
		t.Fatalf("expected single generic reason, got %v", reasons)
	}

	reasons = FallbackExplanations(AccessibilityRow{Accessibility: 0.9, CompetitorsPer10k: 0.2}, 0.9)
	if len(reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %v", reasons)
	}
}
