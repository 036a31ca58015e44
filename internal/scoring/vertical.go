package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// FocusKind selects how customer rows are classified for a focus.
type FocusKind string

const (
	// FocusKeyword classifies by substring match against the lowercased
	// procedure label.
	FocusKeyword FocusKind = "keyword"
	// FocusRevenueAbove classifies rows with revenue at or above the threshold.
	FocusRevenueAbove FocusKind = "revenue_above"
	// FocusRevenueBelow classifies rows with revenue below the threshold.
	FocusRevenueBelow FocusKind = "revenue_below"
)

// FocusRule classifies a customer row as in-focus or not.
type FocusRule struct {
	Kind      FocusKind
	Keywords  []string
	Threshold float64
}

// Matches reports whether the customer row is in focus under this rule.
// Missing revenue uses the concrete default, never zero.
func (r FocusRule) Matches(c Customer) bool {
	switch r.Kind {
	case FocusKeyword:
		procedure := strings.ToLower(c.Procedure)
		if procedure == "" {
			return false
		}
		for _, kw := range r.Keywords {
			if strings.Contains(procedure, kw) {
				return true
			}
		}
		return false
	case FocusRevenueAbove:
		return c.RevenueOrDefault() >= r.Threshold
	case FocusRevenueBelow:
		return c.RevenueOrDefault() < r.Threshold
	default:
		return false
	}
}

// VerticalConfig carries the vertical-specific keyword sets and thresholds
// used for focus classification and headline metrics.
type VerticalConfig struct {
	Name             string
	FocusKeywords    map[string][]string
	HighValueRevenue float64
}

var verticals = map[string]VerticalConfig{
	"medspa": {
		Name: "medspa",
		FocusKeywords: map[string][]string{
			"non_invasive": {
				"botox", "tox", "filler", "laser", "facial", "peel",
				"microneedling", "hydrafacial", "injectable", "sculpting",
			},
			"surgical": {
				"surgery", "surgical", "lift", "implant", "rhinoplasty",
				"liposuction", "augmentation", "tuck",
			},
		},
		HighValueRevenue: 1500,
	},
	"mortgage": {
		Name: "mortgage",
		FocusKeywords: map[string][]string{
			"non_invasive": {"refi", "refinance", "heloc", "equity"},
			"surgical":     {"purchase", "jumbo", "construction"},
		},
		HighValueRevenue: 3000,
	},
}

// Vertical returns the configuration for the named vertical, falling back to
// medspa defaults for unknown names.
func Vertical(name string) VerticalConfig {
	if cfg, ok := verticals[strings.ToLower(strings.TrimSpace(name))]; ok {
		return cfg
	}
	return verticals["medspa"]
}

// VerticalNames lists the supported verticals in sorted order.
func VerticalNames() []string {
	names := make([]string, 0, len(verticals))
	for name := range verticals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FocusRuleFor resolves a focus selector against a vertical.
func FocusRuleFor(vertical VerticalConfig, focus string) (FocusRule, error) {
	switch focus {
	case "high_value":
		return FocusRule{Kind: FocusRevenueAbove, Threshold: vertical.HighValueRevenue}, nil
	case "low_value":
		return FocusRule{Kind: FocusRevenueBelow, Threshold: vertical.HighValueRevenue}, nil
	default:
		keywords, ok := vertical.FocusKeywords[focus]
		if !ok {
			return FocusRule{}, fmt.Errorf("unknown focus %q for vertical %q", focus, vertical.Name)
		}
		return FocusRule{Kind: FocusKeyword, Keywords: keywords}, nil
	}
}
