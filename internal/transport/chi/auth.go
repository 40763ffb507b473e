package chi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/logger"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type userKey struct{}

// ContextWithUser stores the resolved tenant in the context.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the tenant resolved by BearerAuthMiddleware.
// Empty means every tenant.
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// BearerAuthMiddleware resolves the tenant from a Bearer API key.
// apiKeys maps each key to its user id. If apiKeys is empty, authentication is
// disabled and every request runs as defaultUser.
func BearerAuthMiddleware(apiKeys map[string]string, defaultUser string) func(http.Handler) http.Handler {
	validKeys := make(map[string]string, len(apiKeys))
	for k, u := range apiKeys {
		if k != "" && u != "" {
			validKeys[k] = u
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled, single tenant
		if len(validKeys) == 0 {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), defaultUser)))
			})
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					CodeUnauthenticated, "authorization header must use Bearer scheme")
				return
			}

			userID, ok := validKeys[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthenticated, "invalid api key")
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
		})
	}
}

func withUser(ctx context.Context, userID string) context.Context {
	if userID != "" {
		ctx = logger.With(ctx, zap.String("user_id", userID))
	}
	return ContextWithUser(ctx, userID)
}
