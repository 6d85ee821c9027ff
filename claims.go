package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the validated contents of an access token
type AuthClaims interface {
	Subject() string
	UserID() string
	HasClaim(claimType, value string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// AccessClaims is the concrete implementation of AuthClaims. It carries the
// account id and the account's claims at issuance time.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID          string  `json:"uid,omitempty"`
	AccountClaim []Claim `json:"claims,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*AccessClaims)(nil)

// Subject returns the subject claim
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account id
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// AccountID parses UserID as an account id.
func (c *AccessClaims) AccountID() (UserAccountID, error) {
	return ParseUserAccountID(c.UserID())
}

// HasClaim reports whether the token carries the given claim
func (c *AccessClaims) HasClaim(claimType, value string) bool {
	return indexOfClaim(c.AccountClaim, Claim{Type: claimType, Value: value}) >= 0
}

// Claims returns a copy of the account claims
func (c *AccessClaims) Claims() []Claim {
	return append([]Claim(nil), c.AccountClaim...)
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
