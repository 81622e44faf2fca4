package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aisitebuildapp/aisitebuild/config"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret"}
}

func signToken(t *testing.T, secret string, expiry time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"email": "user@example.com",
		"exp":   time.Now().Add(expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func protectedHandler(t *testing.T, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			t.Error("claims missing from request context")
			return
		}
		if user.Sub != "user-1" || user.Email != "user@example.com" {
			t.Errorf("unexpected claims: %+v", user)
		}
	})
}

func TestAuthMiddlewareBearerHeader(t *testing.T) {
	cfg := testConfig()
	var called bool
	handler := AuthMiddleware(cfg)(protectedHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, cfg.JWTSecret, time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("handler not called, status %d", rec.Code)
	}
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	cfg := testConfig()
	var called bool
	handler := AuthMiddleware(cfg)(protectedHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/projects/p1/progress?token="+signToken(t, cfg.JWTSecret, time.Hour), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("handler not called for query token, status %d", rec.Code)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing credentials", func(r *http.Request) {}},
		{"malformed header", func(r *http.Request) {
			r.Header.Set("Authorization", "token abc")
		}},
		{"garbage token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not-a-jwt")
		}},
		{"wrong secret", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", time.Hour))
		}},
		{"expired token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, cfg.JWTSecret, -time.Hour))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			handler := AuthMiddleware(cfg)(protectedHandler(t, &called))

			req := httptest.NewRequest(http.MethodGet, "/projects", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if called {
				t.Error("handler should not run")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}
