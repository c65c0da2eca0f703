package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// Authenticator resolves a bearer token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// RequireAuth validates the bearer token and attaches the caller to the request context.
// Reset-scoped tokens pass only when allowReset is set.
func RequireAuth(authenticator Authenticator, allowReset bool, logger *logrus.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				respondWithError(w, http.StatusUnauthorized, "missing token")
				return
			}

			p, err := authenticator.Authenticate(r.Context(), tokenString)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
				respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if p.Scope == auth.ScopeReset && !allowReset {
				respondWithError(w, http.StatusUnauthorized, auth.ErrScope.Error())
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the caller attached by RequireAuth
func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return p.UserID, true
}

// WithPrincipal attaches a caller to ctx
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
