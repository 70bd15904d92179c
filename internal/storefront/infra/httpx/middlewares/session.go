package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

const maxSessionIDLength = 128

// RequireSession rejects requests without an X-Session-ID header and stores
// the id in the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(constants.HeaderXSessionID))
		if id == "" || len(id) > maxSessionIDLength {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "session_required",
				"message": "a " + constants.HeaderXSessionID + " header of at most 128 characters is required",
			})
			return
		}
		ctx := context.WithValue(r.Context(), constants.ContextKeySessionID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
