package ticketing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// TestComputeRefundNeverNegative sweeps fee/percentage combinations
// that would otherwise drive the amount below zero.
func TestComputeRefundNeverNegative(t *testing.T) {
	cases := []struct {
		original   int64
		percentage string
		feeCents   int64
		want       int64
	}{
		{10000, "100", 0, 10000},
		{10000, "50", 500, 4500},
		{10000, "0", 0, 0},
		{1000, "10", 500, 0},
		{500, "100", 1000, 0},
		{0, "100", 0, 0},
		{-100, "100", 0, 0},
		{10000, "75", 250, 7250},
	}
	for _, tc := range cases {
		policy := RefundPolicy{
			RefundAllowed:      true,
			RefundPercentage:   decimal.RequireFromString(tc.percentage),
			ProcessingFeeCents: tc.feeCents,
		}
		got := ComputeRefund(policy, tc.original)
		if got != tc.want {
			t.Fatalf("ComputeRefund(%d, %s%%, fee=%d) = %d, want %d",
				tc.original, tc.percentage, tc.feeCents, got, tc.want)
		}
		if got < 0 {
			t.Fatalf("refund amount went negative: %d", got)
		}
	}
}

func TestComputeRefundRoundsPercentage(t *testing.T) {
	policy := RefundPolicy{
		RefundPercentage: decimal.RequireFromString("33.33"),
	}
	// 33.33% of $100.00 = $33.33.
	if got := ComputeRefund(policy, 10000); got != 3333 {
		t.Fatalf("expected 3333, got %d", got)
	}
}

func TestDefaultRefundPolicy(t *testing.T) {
	policy := DefaultRefundPolicy()
	if !policy.RefundAllowed || policy.RefundBeforeHours != 24 || policy.ProcessingFeeCents != 0 {
		t.Fatalf("unexpected default policy: %#v", policy)
	}
	if ComputeRefund(policy, 4200) != 4200 {
		t.Fatalf("expected full refund under default policy")
	}
}

// TestProratedPaidCents checks the refund base reflects the order's
// discounts and tax rather than the unit list price.
func TestProratedPaidCents(t *testing.T) {
	cases := []struct {
		unit     int64
		subtotal int64
		paid     int64
		want     int64
	}{
		// No adjustments: the unit's list price.
		{2500, 5000, 5000, 2500},
		// 20% promo on the whole order.
		{2500, 5000, 4000, 2000},
		// 100% promo: nothing was paid, nothing refunds.
		{2500, 5000, 0, 0},
		// 8% tax raises the paid amount above list price.
		{2500, 5000, 5400, 2700},
		// Uneven split rounds to whole cents.
		{3333, 9999, 5000, 1667},
		{0, 5000, 5000, 0},
		{2500, 0, 5000, 0},
	}
	for _, tc := range cases {
		got := ProratedPaidCents(tc.unit, tc.subtotal, tc.paid)
		if got != tc.want {
			t.Fatalf("ProratedPaidCents(%d, %d, %d) = %d, want %d",
				tc.unit, tc.subtotal, tc.paid, got, tc.want)
		}
	}
}

func TestWithinRefundWindow(t *testing.T) {
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)
	policy := RefundPolicy{RefundBeforeHours: 24}

	if !WithinRefundWindow(policy, start, start.Add(-25*time.Hour)) {
		t.Fatalf("expected request 25h before start to be allowed")
	}
	if WithinRefundWindow(policy, start, start.Add(-23*time.Hour)) {
		t.Fatalf("expected request 23h before start to be rejected")
	}

	// Zero cutoff means refunds close at the event start.
	open := RefundPolicy{RefundBeforeHours: 0}
	if !WithinRefundWindow(open, start, start.Add(-time.Minute)) {
		t.Fatalf("expected request before start to be allowed")
	}
	if WithinRefundWindow(open, start, start.Add(time.Minute)) {
		t.Fatalf("expected request after start to be rejected")
	}
}
