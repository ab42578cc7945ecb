package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/kailas-cloud/poisearch/internal/domain/place"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type scopeKey struct{}

// ScopeFromContext returns the caller's visibility scope. Unauthenticated
// requests are public.
func ScopeFromContext(ctx context.Context) place.Scope {
	if s, ok := ctx.Value(scopeKey{}).(place.Scope); ok {
		return s
	}
	return place.ScopePublic
}

func contextWithScope(ctx context.Context, s place.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// Auth resolves bearer tokens into a visibility scope.
type Auth struct {
	keys map[string]place.Scope
}

// NewAuth builds an authenticator. Keys in privileged see every place status
// and may ingest. With no keys at all authentication is disabled.
func NewAuth(apiKeys, privileged []string) *Auth {
	keys := make(map[string]place.Scope, len(apiKeys)+len(privileged))
	for _, k := range apiKeys {
		if k != "" {
			keys[k] = place.ScopePublic
		}
	}
	for _, k := range privileged {
		if k != "" {
			keys[k] = place.ScopePrivileged
		}
	}
	return &Auth{keys: keys}
}

// Enabled reports whether any key is configured.
func (a *Auth) Enabled() bool { return len(a.keys) > 0 }

// Middleware validates the Bearer token and stores the caller's scope.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	// Auth disabled: everyone is public
	if !a.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := exemptPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(auth, bearerPrefix) {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header must use Bearer scheme")
			return
		}

		scope, ok := a.keys[auth[len(bearerPrefix):]]
		if !ok {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithScope(r.Context(), scope)))
	})
}

// RequirePrivileged rejects non-privileged callers when authentication is enabled.
func (a *Auth) RequirePrivileged(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ScopeFromContext(r.Context()) != place.ScopePrivileged {
			writeError(w, http.StatusForbidden, CodeForbidden, "privileged api key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
