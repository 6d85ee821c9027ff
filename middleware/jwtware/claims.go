package jwtware

import (
	"github.com/golang-jwt/jwt/v5"
)

// MapClaims exposes the claims of a token parsed without the issuing service,
// e.g. by a resource server that only knows the JWKS endpoint.
type MapClaims struct {
	jwt.MapClaims
}

var _ AuthClaims = MapClaims{}

func (m MapClaims) Subject() string {
	sub, _ := m.MapClaims.GetSubject()
	return sub
}

// UserID returns the uid claim, falling back to sub.
func (m MapClaims) UserID() string {
	if uid, ok := m.MapClaims["uid"].(string); ok && uid != "" {
		return uid
	}
	return m.Subject()
}

// HasClaim looks for a {"type","value"} entry in the claims array.
func (m MapClaims) HasClaim(claimType, value string) bool {
	list, ok := m.MapClaims["claims"].([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		t, _ := entry["type"].(string)
		v, _ := entry["value"].(string)
		if t == claimType && v == value {
			return true
		}
	}
	return false
}

// KeyFuncValidator parses tokens with keyFunc and returns MapClaims.
func KeyFuncValidator(keyFunc jwt.Keyfunc, opts ...jwt.ParserOption) TokenValidator {
	return TokenValidatorFunc(func(raw string) (AuthClaims, error) {
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, keyFunc, opts...)
		if err != nil {
			return nil, err
		}
		if !token.Valid {
			return nil, ErrJWTMissingOrMalformed
		}
		return MapClaims{MapClaims: claims}, nil
	})
}
