package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/session"
)

// SessionSource reports the logged-in user, or nil when nobody is.
type SessionSource interface {
	Current(ctx context.Context) (*model.User, error)
}

// RequireSession loads the current user into the request context and
// rejects the request with 401 when nobody is logged in.
func RequireSession(src SessionSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := src.Current(r.Context())
			if err != nil {
				logger.Error("load session", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to load session")
				return
			}
			if u == nil {
				writeError(w, http.StatusUnauthorized, "not logged in")
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithUser(r.Context(), *u)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
