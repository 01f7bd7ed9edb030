package ticketing

import (
	"errors"
	"time"
)

// DefaultCacheTTL bounds how long an offline bundle stays usable.
const DefaultCacheTTL = 24 * time.Hour

var (
	ErrCacheExpired         = errors.New("validation cache expired")
	ErrOfflineTicketInvalid = errors.New("ticket not valid for offline check-in")
	ErrOfflineTicketLapsed  = errors.New("ticket validity window passed")
)

// CacheValidUntil bounds a cached ticket's validity by the event end
// and the cache TTL, whichever comes first.
func CacheValidUntil(eventEnd, now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	limit := now.Add(ttl)
	if !eventEnd.IsZero() && eventEnd.Before(limit) {
		return eventEnd
	}
	return limit
}

// ValidateCachedTicket applies the offline acceptance rules: the cache
// itself must be unexpired, the cached status must be active, and the
// per-ticket validity window must not have lapsed.
func ValidateCachedTicket(status string, validUntil, cacheExpiresAt, now time.Time) error {
	if !cacheExpiresAt.IsZero() && now.After(cacheExpiresAt) {
		return ErrCacheExpired
	}
	if status != "active" {
		return ErrOfflineTicketInvalid
	}
	if now.After(validUntil) {
		return ErrOfflineTicketLapsed
	}
	return nil
}

// ResolveConflict merges a device's offline belief with the server's
// status at sync time. The server is authoritative for terminal states;
// the one exception is a local "used" mark against a server "active",
// which must be uploaded so offline admissions are never lost.
func ResolveConflict(local, server string) string {
	switch server {
	case "used", "cancelled":
		return server
	}
	if local == "used" {
		return "used"
	}
	return server
}
