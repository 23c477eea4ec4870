package mention

import (
	"testing"

	"github.com/shopspring/decimal"
)

func newMention(company string, amount float64, kind Kind, confidence float64, start int) RevenueMention {
	return RevenueMention{
		ArticleID:      "a1",
		Company:        company,
		AmountMillions: decimal.NewFromFloat(amount),
		Kind:           kind,
		Confidence:     confidence,
		Span:           Span{Start: start, End: start + 10},
	}
}

func TestKindFromString(t *testing.T) {
	cases := map[string]Kind{
		"revenue":                  KindRevenue,
		"Revenues":                 KindRevenue,
		"ARR":                      KindARR,
		"annual recurring revenue": KindARR,
		"Annual  Recurring\nRevenue": KindARR,
		"bookings":                   KindBookings,
		"sales":                      KindSales,
		"valuation":                  KindUnknown,
	}
	for input, want := range cases {
		if got := KindFromString(input); got != want {
			t.Fatalf("KindFromString(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestDedupKeyNormalizesCaseAndRounding(t *testing.T) {
	a := newMention("TechCorp", 75.0, KindARR, 1.0, 0)
	b := newMention("techcorp", 75.4, KindARR, 0.6, 50)

	if a.DedupKey() != b.DedupKey() {
		t.Fatalf("case and sub-million differences should collapse: %q vs %q", a.DedupKey(), b.DedupKey())
	}

	c := newMention("TechCorp", 75.0, KindRevenue, 1.0, 0)
	if a.DedupKey() == c.DedupKey() {
		t.Fatal("different kinds must not share a dedup key")
	}
}

func TestAssembleThresholdInclusive(t *testing.T) {
	threshold := decimal.NewFromInt(30)
	mentions := []RevenueMention{
		newMention("AtLimit", 30.0, KindRevenue, 1.0, 0),
		newMention("Below", 29.99, KindRevenue, 1.0, 50),
	}

	got := Assemble(mentions, threshold)
	if len(got) != 1 {
		t.Fatalf("want exactly the at-threshold mention, got %d", len(got))
	}
	if got[0].Company != "AtLimit" {
		t.Fatalf("threshold must be inclusive, got %q", got[0].Company)
	}
}

func TestAssembleDropsUnresolvedCompany(t *testing.T) {
	got := Assemble([]RevenueMention{newMention("", 80.0, KindRevenue, 0, 0)}, decimal.NewFromInt(30))
	if len(got) != 0 {
		t.Fatalf("mentions without a company must be dropped, got %#v", got)
	}
}

func TestAssembleDeduplicatesKeepingHigherConfidence(t *testing.T) {
	mentions := []RevenueMention{
		newMention("TechCorp", 75.0, KindARR, 0.6, 0),
		newMention("TechCorp", 75.0, KindARR, 1.0, 40),
	}

	got := Assemble(mentions, decimal.NewFromInt(30))
	if len(got) != 1 {
		t.Fatalf("duplicate keys should collapse, got %d", len(got))
	}
	if got[0].Confidence != 1.0 {
		t.Fatalf("higher confidence should win, got %.1f", got[0].Confidence)
	}
}

func TestAssembleDeduplicatesEarlierSpanOnTie(t *testing.T) {
	mentions := []RevenueMention{
		newMention("TechCorp", 75.0, KindARR, 0.6, 40),
		newMention("TechCorp", 75.0, KindARR, 0.6, 0),
	}

	got := Assemble(mentions, decimal.NewFromInt(30))
	if len(got) != 1 {
		t.Fatalf("duplicate keys should collapse, got %d", len(got))
	}
	if got[0].Span.Start != 0 {
		t.Fatalf("earliest span should win confidence ties, got start %d", got[0].Span.Start)
	}
}

func TestAssembleOrdersByAmountDescending(t *testing.T) {
	mentions := []RevenueMention{
		newMention("Small", 35.0, KindRevenue, 1.0, 0),
		newMention("Big", 900.0, KindRevenue, 1.0, 50),
		newMention("Middle", 120.0, KindARR, 0.6, 100),
	}

	got := Assemble(mentions, decimal.NewFromInt(30))
	if len(got) != 3 {
		t.Fatalf("want 3 mentions, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].AmountMillions.GreaterThan(got[i-1].AmountMillions) {
			t.Fatalf("mentions out of order at %d: %#v", i, got)
		}
	}
	if got[0].Company != "Big" {
		t.Fatalf("largest amount first, got %q", got[0].Company)
	}
}
