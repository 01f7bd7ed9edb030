package ticketing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromoRule mirrors a promo code row for validation without touching
// storage. DiscountValue is a percent for percentage codes and cents
// for fixed codes.
type PromoRule struct {
	Code             string
	DiscountType     string
	DiscountValue    int64
	MaxUses          int
	CurrentUses      int
	ValidFrom        *time.Time
	ValidUntil       *time.Time
	EventID          *int64
	MinPurchaseCents int64
	IsActive         bool
}

// PromoInput carries the order-side facts a promo is checked against.
type PromoInput struct {
	Now           time.Time
	EventID       int64
	SubtotalCents int64
}

// PromoResult is the stage-one output of the pricing pipeline.
type PromoResult struct {
	Valid         bool
	DiscountCents int64
	TotalCents    int64
	Reason        string
}

const (
	PromoReasonOK          = ""
	PromoReasonInactive    = "inactive"
	PromoReasonOutOfWindow = "out_of_window"
	PromoReasonExhausted   = "exhausted"
	PromoReasonEventScope  = "event_not_allowed"
	PromoReasonMinPurchase = "below_min_purchase"
	PromoReasonBadDiscount = "unsupported_discount_type"
	PromoReasonBadSubtotal = "invalid_subtotal"
)

// ValidatePromo applies every promo gate in order: active flag,
// validity window, usage limit, event scope, minimum purchase. It never
// mutates usage counters; redemption is the repository's atomic guard.
func ValidatePromo(rule PromoRule, in PromoInput) PromoResult {
	if in.SubtotalCents <= 0 {
		return PromoResult{Reason: PromoReasonBadSubtotal}
	}
	if !rule.IsActive {
		return PromoResult{Reason: PromoReasonInactive}
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if rule.ValidFrom != nil && now.Before(rule.ValidFrom.UTC()) {
		return PromoResult{Reason: PromoReasonOutOfWindow}
	}
	if rule.ValidUntil != nil && now.After(rule.ValidUntil.UTC()) {
		return PromoResult{Reason: PromoReasonOutOfWindow}
	}
	if rule.MaxUses > 0 && rule.CurrentUses >= rule.MaxUses {
		return PromoResult{Reason: PromoReasonExhausted}
	}
	if rule.EventID != nil && *rule.EventID > 0 && *rule.EventID != in.EventID {
		return PromoResult{Reason: PromoReasonEventScope}
	}
	if rule.MinPurchaseCents > 0 && in.SubtotalCents < rule.MinPurchaseCents {
		return PromoResult{Reason: PromoReasonMinPurchase}
	}
	discount, ok := discountCents(rule.DiscountType, rule.DiscountValue, in.SubtotalCents)
	if !ok {
		return PromoResult{Reason: PromoReasonBadDiscount}
	}
	return PromoResult{
		Valid:         true,
		DiscountCents: discount,
		TotalCents:    in.SubtotalCents - discount,
	}
}

// discountCents computes a discount in cents, clamped to the subtotal.
func discountCents(discountType string, value int64, subtotalCents int64) (int64, bool) {
	if value <= 0 || subtotalCents <= 0 {
		return 0, true
	}
	switch NormalizeDiscountType(discountType) {
	case "percentage":
		if value > 100 {
			value = 100
		}
		amount := decimal.NewFromInt(subtotalCents).
			Mul(decimal.NewFromInt(value)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
		return amount, true
	case "fixed":
		if value > subtotalCents {
			return subtotalCents, true
		}
		return value, true
	default:
		return 0, false
	}
}
