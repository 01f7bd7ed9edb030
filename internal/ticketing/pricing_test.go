package ticketing

import (
	"testing"

	"github.com/shopspring/decimal"
)

// TestBuildQuoteReferenceScenario is the pipeline's worked example:
// $100 subtotal, 20% promo, no bulk tier, 10% tax = $88.00.
func TestBuildQuoteReferenceScenario(t *testing.T) {
	ruleID := int64(3)
	quote := BuildQuote(10000, 2000, nil, &TaxRule{
		ID:      &ruleID,
		TaxType: "percentage",
		Rate:    decimal.NewFromInt(10),
	})

	if quote.TaxableCents != 8000 {
		t.Fatalf("expected taxable 8000, got %d", quote.TaxableCents)
	}
	if quote.TaxCents != 800 {
		t.Fatalf("expected tax 800, got %d", quote.TaxCents)
	}
	if quote.TotalCents != 8800 {
		t.Fatalf("expected total 8800, got %d", quote.TotalCents)
	}
	if FormatCents(quote.TotalCents) != "88.00" {
		t.Fatalf("expected formatted total 88.00, got %s", FormatCents(quote.TotalCents))
	}
	if quote.TaxRuleID == nil || *quote.TaxRuleID != ruleID {
		t.Fatalf("expected tax rule id carried on quote")
	}
}

// TestBuildQuoteDeterminism runs the same inputs repeatedly and demands
// identical totals every time.
func TestBuildQuoteDeterminism(t *testing.T) {
	bulk := &BulkTier{MinQuantity: 10, DiscountType: "percentage", DiscountValue: 5}
	tax := &TaxRule{TaxType: "percentage", Rate: decimal.RequireFromString("8.25")}

	first := BuildQuote(123456, 1000, bulk, tax)
	for i := 0; i < 50; i++ {
		next := BuildQuote(123456, 1000, bulk, tax)
		if next != first {
			t.Fatalf("pipeline not deterministic: %#v vs %#v", next, first)
		}
	}
}

func TestBuildQuoteStageOrder(t *testing.T) {
	// Promo applies to the subtotal, bulk to the post-promo amount,
	// tax to the post-discount amount. 10000 - 2000 = 8000, bulk 10%
	// of 8000 = 800, tax 10% of 7200 = 720.
	bulk := &BulkTier{MinQuantity: 5, DiscountType: "percentage", DiscountValue: 10}
	tax := &TaxRule{TaxType: "percentage", Rate: decimal.NewFromInt(10)}
	quote := BuildQuote(10000, 2000, bulk, tax)

	if quote.BulkDiscountCents != 800 {
		t.Fatalf("expected bulk discount 800, got %d", quote.BulkDiscountCents)
	}
	if quote.TaxCents != 720 {
		t.Fatalf("expected tax 720, got %d", quote.TaxCents)
	}
	if quote.TotalCents != 7920 {
		t.Fatalf("expected total 7920, got %d", quote.TotalCents)
	}
}

func TestBuildQuoteClampsPromo(t *testing.T) {
	quote := BuildQuote(1000, 5000, nil, nil)
	if quote.PromoDiscountCents != 1000 || quote.TotalCents != 0 {
		t.Fatalf("expected promo clamped to subtotal, got %#v", quote)
	}

	quote = BuildQuote(1000, -50, nil, nil)
	if quote.PromoDiscountCents != 0 || quote.TotalCents != 1000 {
		t.Fatalf("expected negative promo ignored, got %#v", quote)
	}
}

func TestSelectBulkTierPicksHighestSatisfied(t *testing.T) {
	tiers := []BulkTier{
		{ID: 1, MinQuantity: 5, DiscountType: "percentage", DiscountValue: 5},
		{ID: 2, MinQuantity: 10, DiscountType: "percentage", DiscountValue: 10},
		{ID: 3, MinQuantity: 20, DiscountType: "percentage", DiscountValue: 15},
	}

	if tier := SelectBulkTier(tiers, 4); tier != nil {
		t.Fatalf("expected no tier for quantity 4, got %d", tier.ID)
	}
	if tier := SelectBulkTier(tiers, 12); tier == nil || tier.ID != 2 {
		t.Fatalf("expected tier 2 for quantity 12")
	}
	if tier := SelectBulkTier(tiers, 50); tier == nil || tier.ID != 3 {
		t.Fatalf("expected tier 3 for quantity 50")
	}
}

func TestComputeTaxFallbacks(t *testing.T) {
	if tax := ComputeTax(nil, 8000); tax != 0 {
		t.Fatalf("expected zero-rate default, got %d", tax)
	}
	fixed := &TaxRule{TaxType: "fixed", Rate: decimal.RequireFromString("2.50")}
	if tax := ComputeTax(fixed, 8000); tax != 250 {
		t.Fatalf("expected fixed tax 250, got %d", tax)
	}
}

func TestComputeTaxRoundsToMinorUnits(t *testing.T) {
	rule := &TaxRule{TaxType: "percentage", Rate: decimal.RequireFromString("8.25")}
	// 8.25% of $33.33 = $2.749725, rounds to $2.75.
	if tax := ComputeTax(rule, 3333); tax != 275 {
		t.Fatalf("expected 275, got %d", tax)
	}
}

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		2000:  "20.00",
		8800:  "88.00",
		12345: "123.45",
	}
	for cents, want := range cases {
		if got := FormatCents(cents); got != want {
			t.Fatalf("FormatCents(%d) = %s, want %s", cents, got, want)
		}
	}
}
