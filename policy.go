package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultAdministratorClaim marks an account as an administrator.
var DefaultAdministratorClaim = Claim{Type: "administrator", Value: "true"}

// AdministrationPolicy holds the command level rules that need context the
// aggregate does not have: who is acting and how many administrators remain.
type AdministrationPolicy struct {
	AdministratorClaim       Claim
	ForbidSelfOperation      bool
	ProtectLastAdministrator bool
}

// DefaultAdministrationPolicy enables both checks.
func DefaultAdministrationPolicy() AdministrationPolicy {
	return AdministrationPolicy{
		AdministratorClaim:       DefaultAdministratorClaim,
		ForbidSelfOperation:      true,
		ProtectLastAdministrator: true,
	}
}

// CheckSelfOperation rejects an actor targeting their own account.
func (p AdministrationPolicy) CheckSelfOperation(actor, target UserAccountID) error {
	if !p.ForbidSelfOperation || actor != target {
		return nil
	}
	return withMetadata(ErrSelfOperationNotAllowed, map[string]any{
		"user_account_id": target.String(),
	})
}

// CheckClaimRemoval rejects removing the administrator claim from the last
// active account holding it.
func (p AdministrationPolicy) CheckClaimRemoval(ctx context.Context, reader ReadService, claim Claim) error {
	if !p.ProtectLastAdministrator || !claim.Equal(p.AdministratorClaim) {
		return nil
	}

	count, err := reader.CountActiveClaimHolders(ctx, claim)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count administrators")
	}

	if count < 2 {
		return withMetadata(ErrLastAdministratorRemovalNotAllowed, map[string]any{
			"claim":          claim.String(),
			"administrators": count,
		})
	}

	return nil
}
