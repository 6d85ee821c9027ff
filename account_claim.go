package auth

import "strings"

// Claim is a type/value attribute attached to a user account. Two claims are
// the same claim when both Type and Value match. An empty Value stands for a
// claim that only asserts its type.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// NewClaim returns a claim with surrounding whitespace trimmed from both parts.
func NewClaim(claimType, value string) Claim {
	return Claim{
		Type:  strings.TrimSpace(claimType),
		Value: strings.TrimSpace(value),
	}
}

// Equal reports whether c and other identify the same claim.
func (c Claim) Equal(other Claim) bool {
	return c.Type == other.Type && c.Value == other.Value
}

func (c Claim) String() string {
	if c.Value == "" {
		return c.Type
	}
	return c.Type + "=" + c.Value
}

func indexOfClaim(claims []Claim, claim Claim) int {
	for i, c := range claims {
		if c.Equal(claim) {
			return i
		}
	}
	return -1
}
