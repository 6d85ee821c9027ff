package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// RouterClaimsKey is the router locals key the jwt middleware stores claims under.
const RouterClaimsKey = "user"

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// AccountIDFromContext returns the id of the authenticated account.
func AccountIDFromContext(ctx context.Context) (UserAccountID, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return UserAccountID{}, false
	}
	id, err := ParseUserAccountID(claims.UserID())
	if err != nil {
		return UserAccountID{}, false
	}
	return id, true
}

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = RouterClaimsKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}
