package resolve

import (
	"strings"
	"testing"

	"startup-revenue-alerts/internal/mention"
	"startup-revenue-alerts/internal/textnorm"
)

func candidateFor(t *testing.T, text textnorm.NormalizedText, raw string) mention.AmountCandidate {
	t.Helper()
	start := strings.Index(text.Text, raw)
	if start < 0 {
		t.Fatalf("%q not found in %q", raw, text.Text)
	}
	return mention.AmountCandidate{
		RawText: raw,
		Span:    mention.Span{Start: start, End: start + len(raw)},
	}
}

func TestResolveSubjectPosition(t *testing.T) {
	text := textnorm.Normalize("TechCorp reported $75M in ARR this quarter.")
	candidate := candidateFor(t, text, "$75M in ARR")

	company, confidence := New(DefaultWindowTokens).Resolve(candidate, text)
	if company != "TechCorp" {
		t.Fatalf("want TechCorp, got %q", company)
	}
	if confidence != ConfidenceSubject {
		t.Fatalf("subject position should score %.1f, got %.1f", ConfidenceSubject, confidence)
	}
}

func TestResolveSubjectBeatsCloserProximity(t *testing.T) {
	text := textnorm.Normalize("Acme Systems announced the Flagship product drove $45 million in revenue.")
	candidate := candidateFor(t, text, "$45 million in revenue")

	company, confidence := New(DefaultWindowTokens).Resolve(candidate, text)
	if company != "Acme Systems" {
		t.Fatalf("subject phrase should win over the closer one, got %q", company)
	}
	if confidence != ConfidenceSubject {
		t.Fatalf("want subject confidence, got %.1f", confidence)
	}
}

func TestResolveProximityFallback(t *testing.T) {
	text := textnorm.Normalize("The filing shows revenue of $45 million at Acme Systems.")
	candidate := candidateFor(t, text, "$45 million")

	company, confidence := New(DefaultWindowTokens).Resolve(candidate, text)
	if company != "Acme Systems" {
		t.Fatalf("want Acme Systems, got %q", company)
	}
	if confidence != ConfidenceProximity {
		t.Fatalf("proximity match should score %.1f, got %.1f", ConfidenceProximity, confidence)
	}
}

func TestResolveNoCandidate(t *testing.T) {
	text := textnorm.Normalize("revenue of $45 million was reported across the industry last year.")
	candidate := candidateFor(t, text, "$45 million")

	company, confidence := New(DefaultWindowTokens).Resolve(candidate, text)
	if company != "" || confidence != 0 {
		t.Fatalf("no capitalized phrase in window should resolve, got %q/%.1f", company, confidence)
	}
}

func TestResolveStripsPossessive(t *testing.T) {
	text := textnorm.Normalize("TechCorp's revenue hit $90 million during the fiscal year.")
	candidate := candidateFor(t, text, "$90 million")

	company, _ := New(DefaultWindowTokens).Resolve(candidate, text)
	if company != "TechCorp" {
		t.Fatalf("possessive suffix should be stripped, got %q", company)
	}
}

func TestResolveIgnoresStopwordsAndMetricTokens(t *testing.T) {
	text := textnorm.Normalize("The company said Q2 ARR reached $60 million, analysts at Gartner noted.")
	candidate := candidateFor(t, text, "$60 million")

	company, _ := New(DefaultWindowTokens).Resolve(candidate, text)
	if company == "Q2" || company == "ARR" || company == "The" {
		t.Fatalf("metric and stopword tokens must not resolve as companies, got %q", company)
	}
	if company != "Gartner" {
		t.Fatalf("want Gartner, got %q", company)
	}
}

func TestResolveWindowBound(t *testing.T) {
	// The only capitalized phrase sits outside a 2-token window.
	text := textnorm.Normalize("Acme Systems grew while its subsidiary kept reporting revenue of $35 million.")
	candidate := candidateFor(t, text, "$35 million")

	company, _ := New(2).Resolve(candidate, text)
	if company != "" {
		t.Fatalf("phrase outside the window should not resolve, got %q", company)
	}
}
