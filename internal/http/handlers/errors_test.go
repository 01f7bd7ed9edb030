package handlers

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/repository"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/ticketing"
)

// TestInvariantViolationsReturnBadRequest pins the status for rejected
// invariant violations: oversell, double check-in, double refund and
// an exhausted promo all answer 400, not 409.
func TestInvariantViolationsReturnBadRequest(t *testing.T) {
	h := newTestHandler()

	for _, err := range []error{
		repository.ErrInsufficientInventory,
		repository.ErrTicketAlreadyUsed,
		repository.ErrRefundExists,
		repository.ErrPromoExhausted,
	} {
		rec := httptest.NewRecorder()
		h.handleTicketingError(slog.Default(), rec, "error_mapping", err)
		if rec.Code != 400 {
			t.Fatalf("%v: got status %d, want 400", err, rec.Code)
		}
	}
}

// TestForgedTicketStaysOpaque checks a hash mismatch answers with the
// generic message and never echoes the expected hash.
func TestForgedTicketStaysOpaque(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.handleTicketingError(slog.Default(), rec, "validate_ticket", ticketing.ErrHashMismatch)
	if rec.Code != 400 {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "invalid ticket") {
		t.Fatalf("expected opaque invalid-ticket body, got %q", body)
	}
}
