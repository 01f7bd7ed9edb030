package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/config"
	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/models"
)

func newTestHandler() *Handler {
	return New(nil, nil, nil, nil, nil, &config.Config{CacheSigningSecret: "test-secret"}, nil)
}

func TestCreateTicketTypeRejectsInvalidJSON(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/ticket-types", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.CreateTicketType(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateTicketTypeRejectsMissingFields(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/ticket-types", strings.NewReader(`{"name":"GA"}`))
	rec := httptest.NewRecorder()
	h.CreateTicketType(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected validation failure, got %d", rec.Code)
	}
}

func TestValidatePromoCodeRequiresCodeAndSubtotal(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/promo-codes/validate", strings.NewReader(`{"eventId":1}`))
	rec := httptest.NewRecorder()
	h.ValidatePromoCode(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/orders", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.CreateOrder(rec, req)

	if rec.Code != 401 {
		t.Fatalf("expected 401 without auth context, got %d", rec.Code)
	}
}

func TestApplyPromoRequiresCode(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/orders/abc/apply-promo", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ApplyPromo(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400 without a promo code, got %d", rec.Code)
	}
}

func TestValidateOfflineTicketRequiresDeviceAndCode(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/tickets/offline/validate", strings.NewReader(`{"deviceId":"d-1"}`))
	rec := httptest.NewRecorder()
	h.ValidateOfflineTicket(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400 without a qr code, got %d", rec.Code)
	}
}

func TestRegisterDeviceRejectsShortSecret(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/offline/devices", strings.NewReader(`{"eventId":1,"name":"Gate A","secret":"short"}`))
	rec := httptest.NewRecorder()
	h.RegisterDevice(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400 for short secret, got %d", rec.Code)
	}
}

// TestSignBundleStableAcrossURLFields checks the signature ignores the
// mutable signature and download fields.
func TestSignBundleStableAcrossURLFields(t *testing.T) {
	bundle := models.OfflineBundle{
		CacheID:     "cache-1",
		EventID:     42,
		DeviceID:    "device-1",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
	}

	base, err := signBundle("secret", bundle)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	bundle.Signature = "something"
	bundle.DownloadURL = "https://example.com/bundle"
	again, err := signBundle("secret", bundle)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if base != again {
		t.Fatalf("signature changed with mutable fields")
	}

	other, err := signBundle("other-secret", bundle)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if other == base {
		t.Fatalf("different secrets must produce different signatures")
	}
}
