package email

import (
	"strings"
	"testing"
)

func TestRenderRunCompletedTemplate(t *testing.T) {
	html, err := renderEmailTemplate("run_completed.html", runCompletedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Analysis ready",
			Heading:  "Your market analysis is ready",
			CTALabel: "View results",
			CTAURL:   "https://app.example.com/runs/abc",
		},
		DatasetName:     "Q1 Ledger",
		Focus:           "surgical",
		TopZip:          "78701",
		ConfidenceLevel: "high",
		ZipCount:        42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Q1 Ledger", "surgical", "78701", "high", "42", "https://app.example.com/runs/abc", "View results"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered email missing %q", want)
		}
	}
}

func TestRenderRunCompletedTemplate_OmitsCTAWithoutURL(t *testing.T) {
	html, err := renderEmailTemplate("run_completed.html", runCompletedEmailData{
		baseEmailData: baseEmailData{Title: "t", Heading: "h", CTALabel: "View results"},
		DatasetName:   "Q1 Ledger",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "View results") {
		t.Fatal("expected CTA block omitted without a URL")
	}
}

func TestRenderRunFailedTemplate_EscapesErrorMessage(t *testing.T) {
	html, err := renderEmailTemplate("run_failed.html", runFailedEmailData{
		baseEmailData: baseEmailData{Title: "t", Heading: "h"},
		DatasetName:   "Q1 Ledger",
		Focus:         "surgical",
		ErrorMessage:  "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("expected error message to be HTML-escaped")
	}
	if !strings.Contains(html, "Q1 Ledger") {
		t.Fatal("rendered email missing dataset name")
	}
}

func TestRenderEmailTemplate_UnknownTemplate(t *testing.T) {
	if _, err := renderEmailTemplate("does_not_exist.html", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
