// Package middleware provides the HTTP middleware stack: session
// authentication, per-user rate limiting and CORS.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alphadesk/alphadesk/internal/app/services/accounts"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	emailKey  contextKey = "email"
)

// TokenVerifier validates a session token and returns its claims.
type TokenVerifier interface {
	VerifyToken(token string) (accounts.Claims, error)
}

// Auth authenticates requests with a Bearer session token.
type Auth struct {
	verifier  TokenVerifier
	log       *logger.Logger
	skipPaths []string
}

// NewAuth creates the authentication middleware. Requests to skipPaths pass
// through unauthenticated; an entry ending in "/" skips its whole subtree.
func NewAuth(verifier TokenVerifier, log *logger.Logger, skipPaths []string) *Auth {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Auth{verifier: verifier, log: log, skipPaths: skipPaths}
}

func (a *Auth) skip(path string) bool {
	for _, p := range a.skipPaths {
		if p == path || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// Handler returns the middleware handler.
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		claims, err := a.verifier.VerifyToken(token)
		if err != nil {
			a.log.WithError(err).WithField("path", r.URL.Path).Debug("token rejected")
			unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, emailKey, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// UserID extracts the authenticated user's ID from the request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Email extracts the authenticated user's email from the request context.
func Email(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}
