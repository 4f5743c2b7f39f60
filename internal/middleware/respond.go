package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError emits the standard error envelope. Duplicated from the
// handler package to keep the middleware free of handler imports.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
		"data":    nil,
	})
}
