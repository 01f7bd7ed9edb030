package ticketing

import (
	"errors"
	"testing"
	"time"
)

func TestCacheValidUntilBoundedByEventEnd(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	eventEnd := now.Add(6 * time.Hour)
	if got := CacheValidUntil(eventEnd, now, DefaultCacheTTL); !got.Equal(eventEnd) {
		t.Fatalf("expected event end to bound validity, got %v", got)
	}

	farEnd := now.Add(72 * time.Hour)
	if got := CacheValidUntil(farEnd, now, DefaultCacheTTL); !got.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("expected ttl to bound validity, got %v", got)
	}

	if got := CacheValidUntil(farEnd, now, 0); !got.Equal(now.Add(DefaultCacheTTL)) {
		t.Fatalf("expected default ttl fallback, got %v", got)
	}
}

// TestValidateCachedTicketExpiredCache checks an expired cache rejects
// even an otherwise-valid ticket.
func TestValidateCachedTicketExpiredCache(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	err := ValidateCachedTicket("active", now.Add(time.Hour), now.Add(-time.Minute), now)
	if !errors.Is(err, ErrCacheExpired) {
		t.Fatalf("expected ErrCacheExpired, got %v", err)
	}
}

func TestValidateCachedTicketStatusAndWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cacheExpiry := now.Add(12 * time.Hour)

	if err := ValidateCachedTicket("active", now.Add(time.Hour), cacheExpiry, now); err != nil {
		t.Fatalf("expected valid ticket to pass, got %v", err)
	}
	if err := ValidateCachedTicket("used", now.Add(time.Hour), cacheExpiry, now); !errors.Is(err, ErrOfflineTicketInvalid) {
		t.Fatalf("expected used ticket to fail, got %v", err)
	}
	if err := ValidateCachedTicket("cancelled", now.Add(time.Hour), cacheExpiry, now); !errors.Is(err, ErrOfflineTicketInvalid) {
		t.Fatalf("expected cancelled ticket to fail, got %v", err)
	}
	if err := ValidateCachedTicket("active", now.Add(-time.Minute), cacheExpiry, now); !errors.Is(err, ErrOfflineTicketLapsed) {
		t.Fatalf("expected lapsed ticket to fail, got %v", err)
	}
}

func TestResolveConflictServerWinsTerminalStates(t *testing.T) {
	if got := ResolveConflict("active", "cancelled"); got != "cancelled" {
		t.Fatalf("expected server cancellation to win, got %s", got)
	}
	if got := ResolveConflict("active", "used"); got != "used" {
		t.Fatalf("expected server used to win, got %s", got)
	}
	if got := ResolveConflict("used", "cancelled"); got != "cancelled" {
		t.Fatalf("expected server cancellation to beat local used, got %s", got)
	}
}

func TestResolveConflictLocalUsedUploads(t *testing.T) {
	if got := ResolveConflict("used", "active"); got != "used" {
		t.Fatalf("expected local used mark to be uploaded, got %s", got)
	}
	if got := ResolveConflict("active", "active"); got != "active" {
		t.Fatalf("expected active to remain, got %s", got)
	}
}
