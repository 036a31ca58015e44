// Package ingest parses and validates the three tabular inputs of an analysis
// dataset: the customer ledger, the competitor list, and the ZIP demographic
// table. Hard failures (missing required columns, unparseable CSV) abort the
// upload; data-quality issues become warnings and processing continues with
// best-effort substitutions.
package ingest

import "strings"

// canonicalProcedures maps common free-text variants to canonical labels so
// the keyword-based focus rules see consistent text.
var canonicalProcedures = map[string]string{
	"btx":              "botox",
	"botox injection":  "botox",
	"neurotoxin":       "botox",
	"tox":              "botox",
	"dermal filler":    "filler",
	"lip filler":       "filler",
	"juvederm":         "filler",
	"restylane":        "filler",
	"laser hair":       "laser hair removal",
	"lhr":              "laser hair removal",
	"hydra facial":     "hydrafacial",
	"micro needling":   "microneedling",
	"chemical peel":    "peel",
	"coolsculpting":    "body sculpting",
	"emsculpt":         "body sculpting",
	"breast aug":       "breast augmentation",
	"nose job":         "rhinoplasty",
	"tummy tuck":       "abdominoplasty tuck",
	"lipo":             "liposuction",
	"refi":             "refinance",
	"cash-out refi":    "refinance",
	"home equity line": "heloc",
}

// CanonicalProcedure normalizes a raw procedure label: trimmed, lowercased,
// then resolved through the per-tenant overrides and the built-in taxonomy.
// Unknown labels pass through cleaned, so novel procedures still work with
// substring-based focus rules.
func CanonicalProcedure(raw string, overrides map[string]string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return ""
	}
	if canonical, ok := overrides[label]; ok {
		return canonical
	}
	if canonical, ok := canonicalProcedures[label]; ok {
		return canonical
	}
	return label
}
