package ticketing

import (
	"testing"
	"time"
)

// TestValidatePromoPercentage covers the SAVE20 reference scenario: a
// 20 percent code against a $100 order.
func TestValidatePromoPercentage(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	result := ValidatePromo(PromoRule{
		Code:          "SAVE20",
		DiscountType:  "percentage",
		DiscountValue: 20,
		MaxUses:       1,
		CurrentUses:   0,
		IsActive:      true,
	}, PromoInput{
		Now:           now,
		EventID:       42,
		SubtotalCents: 10000,
	})

	if !result.Valid {
		t.Fatalf("expected promo to be valid, got reason=%s", result.Reason)
	}
	if result.DiscountCents != 2000 {
		t.Fatalf("expected discount 2000, got %d", result.DiscountCents)
	}
	if result.TotalCents != 8000 {
		t.Fatalf("expected total 8000, got %d", result.TotalCents)
	}
}

func TestValidatePromoExhausted(t *testing.T) {
	result := ValidatePromo(PromoRule{
		Code:          "SAVE20",
		DiscountType:  "percentage",
		DiscountValue: 20,
		MaxUses:       1,
		CurrentUses:   1,
		IsActive:      true,
	}, PromoInput{
		Now:           time.Now().UTC(),
		EventID:       42,
		SubtotalCents: 10000,
	})
	if result.Valid {
		t.Fatalf("expected promo to be invalid")
	}
	if result.Reason != PromoReasonExhausted {
		t.Fatalf("expected reason=%s, got %s", PromoReasonExhausted, result.Reason)
	}
}

func TestValidatePromoOutOfWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	from := now.Add(time.Hour)
	result := ValidatePromo(PromoRule{
		DiscountType:  "fixed",
		DiscountValue: 500,
		ValidFrom:     &from,
		IsActive:      true,
	}, PromoInput{Now: now, EventID: 1, SubtotalCents: 3000})
	if result.Valid || result.Reason != PromoReasonOutOfWindow {
		t.Fatalf("expected out_of_window, got valid=%v reason=%s", result.Valid, result.Reason)
	}

	until := now.Add(-time.Hour)
	result = ValidatePromo(PromoRule{
		DiscountType:  "fixed",
		DiscountValue: 500,
		ValidUntil:    &until,
		IsActive:      true,
	}, PromoInput{Now: now, EventID: 1, SubtotalCents: 3000})
	if result.Valid || result.Reason != PromoReasonOutOfWindow {
		t.Fatalf("expected out_of_window, got valid=%v reason=%s", result.Valid, result.Reason)
	}
}

func TestValidatePromoEventScope(t *testing.T) {
	scoped := int64(7)
	result := ValidatePromo(PromoRule{
		DiscountType:  "fixed",
		DiscountValue: 500,
		EventID:       &scoped,
		IsActive:      true,
	}, PromoInput{Now: time.Now().UTC(), EventID: 8, SubtotalCents: 3000})
	if result.Valid || result.Reason != PromoReasonEventScope {
		t.Fatalf("expected event_not_allowed, got valid=%v reason=%s", result.Valid, result.Reason)
	}
}

func TestValidatePromoMinPurchase(t *testing.T) {
	result := ValidatePromo(PromoRule{
		DiscountType:     "percentage",
		DiscountValue:    10,
		MinPurchaseCents: 5000,
		IsActive:         true,
	}, PromoInput{Now: time.Now().UTC(), EventID: 1, SubtotalCents: 4999})
	if result.Valid || result.Reason != PromoReasonMinPurchase {
		t.Fatalf("expected below_min_purchase, got valid=%v reason=%s", result.Valid, result.Reason)
	}
}

// TestValidatePromoFixedClamped checks a fixed discount never exceeds
// the order amount.
func TestValidatePromoFixedClamped(t *testing.T) {
	result := ValidatePromo(PromoRule{
		DiscountType:  "fixed",
		DiscountValue: 9999,
		IsActive:      true,
	}, PromoInput{Now: time.Now().UTC(), EventID: 1, SubtotalCents: 2500})
	if !result.Valid {
		t.Fatalf("expected promo to be valid, got reason=%s", result.Reason)
	}
	if result.DiscountCents != 2500 || result.TotalCents != 0 {
		t.Fatalf("expected discount clamped to 2500, got %d", result.DiscountCents)
	}
}

func TestValidatePromoUnknownDiscountType(t *testing.T) {
	result := ValidatePromo(PromoRule{
		DiscountType:  "bogof",
		DiscountValue: 1,
		IsActive:      true,
	}, PromoInput{Now: time.Now().UTC(), EventID: 1, SubtotalCents: 1000})
	if result.Valid || result.Reason != PromoReasonBadDiscount {
		t.Fatalf("expected unsupported_discount_type, got valid=%v reason=%s", result.Valid, result.Reason)
	}
}
