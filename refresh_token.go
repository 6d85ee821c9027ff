package auth

import "time"

// RefreshToken is the opaque token an account exchanges for new access tokens.
// Revoked tokens keep their value and expiry for audit.
type RefreshToken struct {
	Value     string    `json:"value"`
	IsActive  bool      `json:"is_active"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newRefreshToken(value string, expiresAt time.Time) *RefreshToken {
	return &RefreshToken{
		Value:     value,
		IsActive:  true,
		ExpiresAt: expiresAt.UTC(),
	}
}

// IsUsable reports whether the token is active and not expired at now.
func (t *RefreshToken) IsUsable(now time.Time) bool {
	if t == nil {
		return false
	}
	return t.IsActive && t.ExpiresAt.After(now)
}

func (t *RefreshToken) deactivate() {
	if t != nil {
		t.IsActive = false
	}
}
