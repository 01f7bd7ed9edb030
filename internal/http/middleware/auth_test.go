package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SansaarEventUniverse/sansaar-backend-sub001/internal/auth"
)

const testSecret = "middleware-test-secret"

func protectedEndpoint(t *testing.T) (http.Handler, *int64, *string) {
	t.Helper()
	var gotUser int64
	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserIDFromContext(r.Context())
		gotRole, _ = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	return AuthMiddleware(testSecret)(next), &gotUser, &gotRole
}

func TestAuthMiddlewareAdmitsSignedToken(t *testing.T) {
	handler, gotUser, gotRole := protectedEndpoint(t)

	token, err := auth.SignAccessToken(testSecret, 42, auth.RoleStaff)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest("GET", "/tickets/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
	if *gotUser != 42 || *gotRole != auth.RoleStaff {
		t.Fatalf("claims not propagated: user=%d role=%s", *gotUser, *gotRole)
	}
}

func TestAuthMiddlewareRejectsForeignToken(t *testing.T) {
	handler, _, _ := protectedEndpoint(t)

	token, err := auth.SignAccessToken("some-other-secret", 42, auth.RoleStaff)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest("GET", "/tickets/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a foreign signature, got %d", rec.Code)
	}
}

func TestRequireRoleGatesCheckInSurface(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AuthMiddleware(testSecret)(RequireRole(auth.RoleStaff, auth.RoleOrganizer)(next))

	cases := []struct {
		role string
		want int
	}{
		{auth.RoleStaff, http.StatusNoContent},
		{auth.RoleOrganizer, http.StatusNoContent},
		{auth.RoleAttendee, http.StatusForbidden},
	}
	for _, tc := range cases {
		token, err := auth.SignAccessToken(testSecret, 7, tc.role)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		req := httptest.NewRequest("POST", "/tickets/validate", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("role %s: got %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}
