package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func captureUser(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestUserJWTAnonymousPassesThrough(t *testing.T) {
	var got string
	rec := httptest.NewRecorder()
	UserJWT("secret")(captureUser(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusNoContent || got != "" {
		t.Fatalf("expected anonymous pass-through, got %d user=%q", rec.Code, got)
	}
}

func TestUserJWTValidToken(t *testing.T) {
	var got string
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "secret", "user-42"))
	rec := httptest.NewRecorder()
	UserJWT("secret")(captureUser(&got)).ServeHTTP(rec, req)
	if got != "user-42" {
		t.Fatalf("expected user-42, got %q", got)
	}
}

func TestUserJWTRejectsBadSignature(t *testing.T) {
	var got string
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "other", "user-42"))
	rec := httptest.NewRecorder()
	UserJWT("secret")(captureUser(&got)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUserJWTWithoutSecretReadsSubject(t *testing.T) {
	var got string
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", signed(t, "whatever", "user-7"))
	rec := httptest.NewRecorder()
	UserJWT("")(captureUser(&got)).ServeHTTP(rec, req)
	if got != "user-7" {
		t.Fatalf("expected user-7, got %q", got)
	}
}
