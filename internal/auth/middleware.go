package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lunara-app/lunara/internal/platform/httpx"
	"github.com/lunara-app/lunara/internal/shared"
)

// Middleware verifies bearer tokens before protected handlers run.
type Middleware struct {
	Tokens *TokenManager
	Logger *slog.Logger
}

// Require rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Access token required.")
			return
		}
		claims, err := m.Tokens.Verify(raw)
		if err != nil {
			if m.Logger != nil && !errors.Is(err, ErrTokenExpired) {
				m.Logger.Warn("token rejected", slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "Invalid or expired token.")
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{
			UserID:   claims.UserID,
			Username: claims.Username,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
