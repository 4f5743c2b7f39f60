package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/metrics"
)

// BearerToken extracts the token from the Authorization header, or ""
// when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireAuth validates the bearer token and attaches the identity to the
// request context. Revoked and malformed tokens are both 401; the client
// cannot distinguish why a token stopped working.
func RequireAuth(authenticator *auth.Authenticator, collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticator.Authenticate(BearerToken(r))
			if err != nil {
				if collector != nil {
					collector.RecordAuthFailure()
				}
				switch {
				case errors.Is(err, auth.ErrUnauthorized),
					errors.Is(err, auth.ErrTokenRevoked),
					errors.Is(err, auth.ErrTokenInvalid):
					writeError(w, http.StatusUnauthorized, "authentication required")
				default:
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin identities. It must run inside
// RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		if !ok || auth.RequireRole(identity, "admin") != nil {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
