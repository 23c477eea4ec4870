package extract

import (
	"testing"

	"github.com/shopspring/decimal"

	"startup-revenue-alerts/internal/mention"
	"startup-revenue-alerts/internal/textnorm"
)

func extractOne(t *testing.T, text string) mention.AmountCandidate {
	t.Helper()
	candidates := Extract(textnorm.Normalize(text), DefaultRules())
	if len(candidates) != 1 {
		t.Fatalf("want exactly one candidate in %q, got %d: %#v", text, len(candidates), candidates)
	}
	return candidates[0]
}

func TestExtractUnitEquivalence(t *testing.T) {
	cases := []string{
		"The company posted $75M in revenue for the year.",
		"The company posted $0.075B in revenue for the year.",
		"The company posted $75,000K in revenue for the year.",
	}

	want := decimal.NewFromInt(75)
	for _, text := range cases {
		candidate := extractOne(t, text)
		if !candidate.Value.Equal(want) {
			t.Fatalf("%q: want 75 million, got %s", text, candidate.Value)
		}
		if candidate.Kind != mention.KindRevenue {
			t.Fatalf("%q: want revenue kind, got %s", text, candidate.Kind)
		}
	}
}

func TestExtractSpelledUnits(t *testing.T) {
	candidate := extractOne(t, "The startup generated 45 million dollars in bookings last quarter.")
	if !candidate.Value.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("want 45, got %s", candidate.Value)
	}
	if candidate.Kind != mention.KindBookings {
		t.Fatalf("want bookings, got %s", candidate.Kind)
	}
}

func TestExtractSpelledARR(t *testing.T) {
	candidate := extractOne(t, "The vendor closed the year with $12 million in annual recurring revenue.")
	if candidate.Kind != mention.KindARR {
		t.Fatalf("spelled-out ARR should map to arr, got %s", candidate.Kind)
	}
	if !candidate.Value.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("want 12, got %s", candidate.Value)
	}
}

func TestExtractKindVerbAmount(t *testing.T) {
	candidate := extractOne(t, "Quarterly sales reached $2.5 billion across all regions.")
	if candidate.Kind != mention.KindSales {
		t.Fatalf("want sales, got %s", candidate.Kind)
	}
	if !candidate.Value.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("want 2500 million, got %s", candidate.Value)
	}
}

func TestExtractKindFromTrailingWindow(t *testing.T) {
	candidate := extractOne(t, "The company crossed $40M, driven by strong revenue growth in Europe.")
	if candidate.Kind != mention.KindRevenue {
		t.Fatalf("window rule should pick up revenue keyword, got %s", candidate.Kind)
	}
	if !candidate.Value.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("want 40, got %s", candidate.Value)
	}
}

func TestExtractDiscardsFigureWithoutKind(t *testing.T) {
	candidates := Extract(textnorm.Normalize("The startup was valued at $50M by late-stage investors."), DefaultRules())
	if len(candidates) != 0 {
		t.Fatalf("valuation figure without metric keyword should be discarded, got %#v", candidates)
	}
}

func TestExtractNoFigures(t *testing.T) {
	candidates := Extract(textnorm.Normalize("The founding team announced a partnership with a large retailer."), DefaultRules())
	if len(candidates) != 0 {
		t.Fatalf("text without figures should yield nothing, got %#v", candidates)
	}
}

func TestExtractSkipsZeroAmount(t *testing.T) {
	candidates := Extract(textnorm.Normalize("The division reported $0M in revenue after the divestiture."), DefaultRules())
	if len(candidates) != 0 {
		t.Fatalf("non-positive amounts should be skipped, got %#v", candidates)
	}
}

func TestExtractOverlapKeepsLongestMatch(t *testing.T) {
	// The bare-currency rule also matches "$75M"; the keyword-anchored
	// match must win because it is longer.
	candidate := extractOne(t, "TechCorp reported $75M in ARR this quarter.")
	if candidate.Kind != mention.KindARR {
		t.Fatalf("want arr from the anchored rule, got %s", candidate.Kind)
	}
	if candidate.RawText != "$75M in ARR" {
		t.Fatalf("want the full anchored match, got %q", candidate.RawText)
	}
}

func TestExtractLeftToRightOrder(t *testing.T) {
	text := "Acme posted $30M in revenue while Beta posted $90M in revenue over the same period."
	candidates := Extract(textnorm.Normalize(text), DefaultRules())
	if len(candidates) != 2 {
		t.Fatalf("want two candidates, got %d", len(candidates))
	}
	if !candidates[0].Value.Equal(decimal.NewFromInt(30)) || !candidates[1].Value.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("candidates out of order: %s, %s", candidates[0].Value, candidates[1].Value)
	}
	if candidates[0].Span.End > candidates[1].Span.Start {
		t.Fatalf("spans should not overlap: %#v", candidates)
	}
}

func TestNormalizeAmountRejectsGarbage(t *testing.T) {
	if _, ok := normalizeAmount("not-a-number", "million"); ok {
		t.Fatal("malformed amount should be rejected")
	}
	if _, ok := normalizeAmount("10", "parsecs"); ok {
		t.Fatal("unknown unit should be rejected")
	}
}
