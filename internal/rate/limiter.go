package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter hands out one token bucket per key. Scan endpoints use
// the device or staff id as the key so one hot gate cannot starve the
// rest.
type KeyedLimiter struct {
	mu              sync.Mutex
	perMinute       int
	burst           int
	items           map[string]*keyedEntry
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter creates a limiter allowing perMinute events per key
// with a burst of the same size.
func NewKeyedLimiter(perMinute int) *KeyedLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &KeyedLimiter{
		perMinute:       perMinute,
		burst:           perMinute,
		items:           make(map[string]*keyedEntry),
		lastCleanup:     time.Now(),
		cleanupInterval: 5 * time.Minute,
	}
}

// Allow reports whether the key may proceed now.
func (l *KeyedLimiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeCleanup(now)

	entry, ok := l.items[key]
	if !ok {
		entry = &keyedEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst),
		}
		l.items[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

// maybeCleanup drops buckets idle for two cleanup intervals.
func (l *KeyedLimiter) maybeCleanup(now time.Time) {
	if l.cleanupInterval <= 0 {
		return
	}
	if !l.lastCleanup.IsZero() && now.Sub(l.lastCleanup) < l.cleanupInterval {
		return
	}
	for key, entry := range l.items {
		if now.Sub(entry.lastSeen) >= 2*l.cleanupInterval {
			delete(l.items, key)
		}
	}
	l.lastCleanup = now
}
