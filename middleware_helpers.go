package auth

import (
	"context"

	"github.com/goliatone/go-auth-service/middleware/jwtware"
	"github.com/goliatone/go-router"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter adapts jwtware.AuthClaims to auth.AuthClaims and stores
// the claims in the standard context for the query and command layer.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

// TokenValidatorAdapter exposes a TokenService to the jwt middleware.
func TokenValidatorAdapter(tokens TokenService) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
		claims, err := tokens.Validate(raw)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// NewJWTMiddleware builds the bearer token middleware backed by tokens. Any
// required claims must all be present on the access token.
func NewJWTMiddleware(tokens TokenService, errorHandler router.ErrorHandler, required ...Claim) router.MiddlewareFunc {
	cfg := jwtware.Config{
		TokenValidator:  TokenValidatorAdapter(tokens),
		ErrorHandler:    errorHandler,
		ContextKey:      RouterClaimsKey,
		ContextEnricher: ContextEnricherAdapter,
	}
	for _, claim := range required {
		cfg.RequiredClaims = append(cfg.RequiredClaims, jwtware.RequiredClaim{
			Type:  claim.Type,
			Value: claim.Value,
		})
	}
	return jwtware.New(cfg)
}
