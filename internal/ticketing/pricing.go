package ticketing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BulkTier is one quantity threshold for an event's group discount.
type BulkTier struct {
	ID            int64
	MinQuantity   int
	DiscountType  string
	DiscountValue int64
}

// TaxRule is the resolved tax configuration for an order's locale. Rate
// is a percent for percentage rules and a currency amount for fixed
// rules. A nil rule means the zero-rate default.
type TaxRule struct {
	ID      *int64
	TaxType string
	Rate    decimal.Decimal
}

// Quote is the deterministic output of the pricing pipeline. Stage
// order is fixed: promo, then bulk discount, then tax.
type Quote struct {
	SubtotalCents      int64
	PromoDiscountCents int64
	BulkDiscountCents  int64
	TaxableCents       int64
	TaxCents           int64
	TotalCents         int64
	TaxRuleID          *int64
}

// SelectBulkTier picks the single applicable tier: the highest
// MinQuantity satisfied by the purchase quantity. Tiers never stack.
func SelectBulkTier(tiers []BulkTier, quantity int) *BulkTier {
	var best *BulkTier
	for i := range tiers {
		tier := tiers[i]
		if tier.MinQuantity > quantity {
			continue
		}
		if best == nil || tier.MinQuantity > best.MinQuantity {
			best = &tiers[i]
		}
	}
	return best
}

// ComputeTax applies a tax rule to a post-discount subtotal, rounded to
// currency minor units.
func ComputeTax(rule *TaxRule, subtotalCents int64) int64 {
	if rule == nil || subtotalCents <= 0 {
		return 0
	}
	switch NormalizeDiscountType(rule.TaxType) {
	case "percentage":
		return decimal.NewFromInt(subtotalCents).
			Mul(rule.Rate).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case "fixed":
		// Fixed rates are configured in major units.
		return rule.Rate.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	default:
		return 0
	}
}

// BuildQuote runs the pipeline stages in their fixed order. The promo
// discount is computed against the raw subtotal (stage one); the bulk
// tier applies to the post-promo amount (stage two); tax applies to the
// post-discount subtotal (stage three).
func BuildQuote(subtotalCents int64, promoDiscountCents int64, bulk *BulkTier, tax *TaxRule) Quote {
	quote := Quote{SubtotalCents: subtotalCents}

	if promoDiscountCents > subtotalCents {
		promoDiscountCents = subtotalCents
	}
	if promoDiscountCents < 0 {
		promoDiscountCents = 0
	}
	quote.PromoDiscountCents = promoDiscountCents
	running := subtotalCents - promoDiscountCents

	if bulk != nil {
		amount, ok := discountCents(bulk.DiscountType, bulk.DiscountValue, running)
		if ok {
			quote.BulkDiscountCents = amount
			running -= amount
		}
	}

	quote.TaxableCents = running
	quote.TaxCents = ComputeTax(tax, running)
	if tax != nil {
		quote.TaxRuleID = tax.ID
	}
	quote.TotalCents = running + quote.TaxCents
	return quote
}

// FormatCents renders cents as a two-decimal amount string.
func FormatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// ParseRate parses a decimal rate string such as "8.25".
func ParseRate(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(raw))
}

// NormalizeDiscountType lowers and trims a stored discount or tax type.
func NormalizeDiscountType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
