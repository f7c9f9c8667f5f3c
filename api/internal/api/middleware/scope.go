package middleware

import (
	"log/slog"
	"net/http"

	"github.com/irgordon/insight/api/internal/core/services"
)

// RequireScope rejects callers whose token grants none of scopes.
// It must run after RequireAuthentication.
func RequireScope(logger *slog.Logger, scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, `{"message": "Unauthorized"}`, http.StatusUnauthorized)
				return
			}

			for _, scope := range scopes {
				if claims.HasScope(scope) {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("Scope check failed",
				slog.String("subject", claims.Subject),
				slog.String("path", r.URL.Path),
				slog.Any("required", scopes))
			http.Error(w, `{"message": "Forbidden"}`, http.StatusForbidden)
		})
	}
}

// MutationGuard requires the write scope on every mutating method, so a
// route that forgets its own check still cannot be used by a read-only token.
func MutationGuard(logger *slog.Logger) func(http.Handler) http.Handler {
	requireWrite := RequireScope(logger, services.ScopeWrite)
	return func(next http.Handler) http.Handler {
		guarded := requireWrite(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				guarded.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
