package ticketing

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundPolicy is the resolved per-event refund configuration.
type RefundPolicy struct {
	RefundAllowed      bool
	RefundBeforeHours  int
	RefundPercentage   decimal.Decimal
	ProcessingFeeCents int64
}

// DefaultRefundPolicy is the permissive fallback used when an event has
// no configured policy: full refund, no fee, 24h cutoff.
func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		RefundAllowed:      true,
		RefundBeforeHours:  24,
		RefundPercentage:   decimal.NewFromInt(100),
		ProcessingFeeCents: 0,
	}
}

// ComputeRefund returns max(0, original * percentage/100 - fee) in
// cents. The result is never negative regardless of inputs.
func ComputeRefund(policy RefundPolicy, originalCents int64) int64 {
	if originalCents <= 0 {
		return 0
	}
	gross := decimal.NewFromInt(originalCents).
		Mul(policy.RefundPercentage).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	amount := gross - policy.ProcessingFeeCents
	if amount < 0 {
		return 0
	}
	return amount
}

// ProratedPaidCents derives what was actually paid for one unit priced
// at unitCents, scaling by the order's post-adjustment total so promo
// and bulk discounts and tax all flow into the refund base. A fully
// discounted order prorates to zero.
func ProratedPaidCents(unitCents, subtotalCents, paidTotalCents int64) int64 {
	if unitCents <= 0 || subtotalCents <= 0 || paidTotalCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(unitCents).
		Mul(decimal.NewFromInt(paidTotalCents)).
		Div(decimal.NewFromInt(subtotalCents)).
		Round(0).
		IntPart()
}

// WithinRefundWindow reports whether a refund request at now still
// meets the policy's cutoff before the event start.
func WithinRefundWindow(policy RefundPolicy, eventStart, now time.Time) bool {
	if policy.RefundBeforeHours <= 0 {
		return now.Before(eventStart)
	}
	cutoff := eventStart.Add(-time.Duration(policy.RefundBeforeHours) * time.Hour)
	return now.Before(cutoff)
}
