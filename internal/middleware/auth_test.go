package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/database"
	"github.com/dukerupert/crewdeck/internal/store"
)

func setupAuthMiddleware(t *testing.T) (*auth.Authenticator, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := store.NewUserStore(db)
	authenticator := auth.NewAuthenticator(users, store.NewRevokedTokenStore(db), "test-secret", time.Hour, logger)

	u, err := users.Create("Alice", "alice@example.com", "hash", "", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := authenticator.IssueToken(u.ID, "user")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return authenticator, token
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"user_id": id.UserID, "role": id.Role})
	})
}

func TestRequireAuthValidToken(t *testing.T) {
	authenticator, token := setupAuthMiddleware(t)
	handler := RequireAuth(authenticator, nil)(echoIdentity())

	req := httptest.NewRequest("GET", "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["user_id"] != float64(1) {
		t.Errorf("user_id = %v, want 1", body["user_id"])
	}
}

func TestRequireAuthMissingToken(t *testing.T) {
	authenticator, _ := setupAuthMiddleware(t)
	handler := RequireAuth(authenticator, nil)(echoIdentity())

	req := httptest.NewRequest("GET", "/api/projects", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthRevokedToken(t *testing.T) {
	authenticator, token := setupAuthMiddleware(t)
	handler := RequireAuth(authenticator, nil)(echoIdentity())

	if err := authenticator.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for revoked token", rec.Code)
	}
}

func TestRequireAuthWrongScheme(t *testing.T) {
	authenticator, token := setupAuthMiddleware(t)
	handler := RequireAuth(authenticator, nil)(echoIdentity())

	req := httptest.NewRequest("GET", "/api/projects", nil)
	req.Header.Set("Authorization", "Basic "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for non-bearer scheme", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/users", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 1, Role: "user"}))
	rec := httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for user role", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/users", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 2, Role: "admin"}))
	rec = httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for admin", rec.Code)
	}
}
