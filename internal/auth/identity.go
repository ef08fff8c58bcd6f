// Package auth provides identity adapters for the portfolio engine.
//
// Authentication itself happens upstream (a gateway or proxy); this package
// only carries the authenticated user id from the request to the engine.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Static is an identity fixed to one user id
type Static string

// CurrentUserID implements domain.IdentityProvider
func (s Static) CurrentUserID() (string, bool) {
	return string(s), s != ""
}

type contextKey struct{}

// WithUserID returns a context carrying userID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserIDFromContext returns the user id stored by WithUserID
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Context is an identity read from a request context
type Context struct {
	ctx context.Context
}

// FromContext returns the identity carried by ctx
func FromContext(ctx context.Context) Context {
	return Context{ctx: ctx}
}

// CurrentUserID implements domain.IdentityProvider
func (c Context) CurrentUserID() (string, bool) {
	return UserIDFromContext(c.ctx)
}

// HeaderMiddleware reads the user id from header and rejects requests
// without one with 401
func HeaderMiddleware(header string, log zerolog.Logger) func(http.Handler) http.Handler {
	log = log.With().Str("component", "auth").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(header))
			if userID == "" {
				log.Debug().Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthenticated"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
