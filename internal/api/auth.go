package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"darpsim/internal/auth"
)

// IdentityDB lets authConfig fall back to a durable identity store when the
// in-memory one was just restarted, mirroring the teacher's IdentityDB.
type IdentityDB interface {
	Lookup(ctx context.Context, token string) (auth.Identity, bool, error)
}

type authConfig struct {
	store *auth.InMemoryStore
	db    IdentityDB
	ttl   time.Duration
}

func newAuthConfig(store *auth.InMemoryStore, db IdentityDB, ttl time.Duration) authConfig {
	return authConfig{store: store, db: db, ttl: ttl}
}

func (a authConfig) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.store == nil && a.db == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := parseToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing token")
			return
		}
		identity, ok := a.lookup(r.Context(), token)
		if !ok {
			respondError(w, http.StatusForbidden, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), identityCtxKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorized returns the identity for the request's token, if any.
func (a authConfig) authorized(r *http.Request) (auth.Identity, bool) {
	token := parseToken(r)
	if token == "" {
		return auth.Identity{}, false
	}
	return a.lookup(r.Context(), token)
}

type identityCtxKey struct{}

func identityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(auth.Identity)
	return id, ok
}

func (a authConfig) lookup(ctx context.Context, token string) (auth.Identity, bool) {
	if a.store != nil {
		if id, ok := a.store.Lookup(token); ok {
			return id, true
		}
	}
	if a.db != nil {
		id, ok, err := a.db.Lookup(ctx, token)
		if err == nil && ok {
			return id, true
		}
	}
	return auth.Identity{}, false
}

func parseToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return ""
}
