package websocket

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/crewdeck/internal/auth"
)

// HandleWebSocket upgrades authenticated connections and runs them as Hub
// clients. The token comes from the Authorization header or, since
// browsers cannot set headers on WebSocket requests, a token query
// parameter.
func HandleWebSocket(hub *Hub, authenticator *auth.Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		identity, err := authenticator.Authenticate(token)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, auth.ErrTokenRevoked) || errors.Is(err, auth.ErrTokenInvalid) || errors.Is(err, auth.ErrUnauthorized) {
				http.Error(w, "unauthorized", status)
			} else {
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Origin checks are handled by the reverse proxy
		})
		if err != nil {
			logger.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, identity.UserID)
		client.Run(r.Context())
	}
}
