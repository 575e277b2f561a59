package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voltswap/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func issueToken(t *testing.T, tokens *auth.TokenService, userID, role string) string {
	t.Helper()
	token, err := tokens.GenerateToken(userID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	var gotUser string
	handler := Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		gotUser = claims.UserID
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/walkin/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, tokens, "U1", "staff"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUser != "U1" {
		t.Fatalf("expected claims for U1, got %q", gotUser)
	}
}

func TestAuthRejectsMissingAndMalformedHeaders(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	handler := Auth(tokens)(okHandler())

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthRejectsForgedSignature(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	other := auth.NewTokenService("other-secret", time.Hour)
	handler := Auth(tokens)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, other, "U1", "staff"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireStaffByRole(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	handler := Auth(tokens)(RequireStaff(okHandler()))

	cases := []struct {
		role string
		want int
	}{
		{"staff", http.StatusOK},
		{"admin", http.StatusOK},
		{"driver", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/walkin/sessions", nil)
			req.Header.Set("Authorization", "Bearer "+issueToken(t, tokens, "U1", tc.role))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("role %s: expected %d, got %d", tc.role, tc.want, rec.Code)
			}
		})
	}
}
