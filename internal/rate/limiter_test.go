package rate

import "testing"

func TestKeyedLimiterIsolatesKeys(t *testing.T) {
	l := NewKeyedLimiter(2)

	if !l.Allow("gate-a") || !l.Allow("gate-a") {
		t.Fatalf("expected burst of 2 for gate-a")
	}
	if l.Allow("gate-a") {
		t.Fatalf("expected gate-a to be limited after burst")
	}
	if !l.Allow("gate-b") {
		t.Fatalf("expected gate-b to have its own bucket")
	}
}
