package auth

import (
	"fmt"
	"strings"
)

// UserAccountStatus is the lifecycle state of a user account.
type UserAccountStatus string

const (
	UserAccountStatusActive  UserAccountStatus = "active"
	UserAccountStatusLocked  UserAccountStatus = "locked"
	UserAccountStatusDeleted UserAccountStatus = "deleted"
)

// accountTransitions lists the allowed status changes. Deleted has no
// outgoing edges.
var accountTransitions = map[UserAccountStatus]map[UserAccountStatus]struct{}{
	UserAccountStatusActive: {
		UserAccountStatusLocked:  {},
		UserAccountStatusDeleted: {},
	},
	UserAccountStatusLocked: {
		UserAccountStatusActive:  {},
		UserAccountStatusDeleted: {},
	},
}

// CanTransition reports whether an account may move from one status to another.
func CanTransition(from, to UserAccountStatus) bool {
	targets, ok := accountTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s UserAccountStatus) IsTerminal() bool {
	return len(accountTransitions[s]) == 0
}

func (s UserAccountStatus) String() string {
	return string(s)
}

// ParseUserAccountStatus parses a persisted status value.
func ParseUserAccountStatus(raw string) (UserAccountStatus, error) {
	switch status := UserAccountStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case UserAccountStatusActive, UserAccountStatusLocked, UserAccountStatusDeleted:
		return status, nil
	default:
		return "", fmt.Errorf("unknown user account status %q", raw)
	}
}

// checkIfUpdatesAllowed is the status guard shared by every mutator except
// Unlock and Delete.
func checkIfUpdatesAllowed(id UserAccountID, status UserAccountStatus) error {
	switch status {
	case UserAccountStatusLocked:
		return withMetadata(ErrLockedAccountUpdateNotAllowed, map[string]any{
			"user_account_id": id.String(),
		})
	case UserAccountStatusDeleted:
		return withMetadata(ErrDeletedAccountUpdateNotAllowed, map[string]any{
			"user_account_id": id.String(),
		})
	default:
		return nil
	}
}
