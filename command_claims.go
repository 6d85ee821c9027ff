package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
)

type AddClaimMessage struct {
	UserAccountID UserAccountID `json:"user_account_id"`
	Claim         Claim         `json:"claim"`
}

func (e AddClaimMessage) Type() string { return "user_account.claim.add" }

func (e AddClaimMessage) Validate() error {
	return validation.ValidateStruct(&e, validation.Field(&e.Claim))
}

type RemoveClaimMessage struct {
	UserAccountID UserAccountID `json:"user_account_id"`
	Claim         Claim         `json:"claim"`
}

func (e RemoveClaimMessage) Type() string { return "user_account.claim.remove" }

func (e RemoveClaimMessage) Validate() error {
	return validation.ValidateStruct(&e, validation.Field(&e.Claim))
}

type ReplaceClaimMessage struct {
	UserAccountID UserAccountID `json:"user_account_id"`
	Current       Claim         `json:"current"`
	Replacement   Claim         `json:"replacement"`
}

func (e ReplaceClaimMessage) Type() string { return "user_account.claim.replace" }

func (e ReplaceClaimMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Current),
		validation.Field(&e.Replacement),
	)
}

// ClaimsHandler executes the claim commands of an account.
type ClaimsHandler struct {
	handlerDeps
}

func NewClaimsHandler(repo RepositoryManager, opts ...HandlerOption) *ClaimsHandler {
	return &ClaimsHandler{handlerDeps: newHandlerDeps(repo, opts...)}
}

func (h *ClaimsHandler) Add(ctx context.Context, event AddClaimMessage) error {
	event.Claim = NewClaim(event.Claim.Type, event.Claim.Value)
	if err := event.Validate(); err != nil {
		return asValidationError(err)
	}

	err := h.run(ctx, "claim addition", func(ctx context.Context, uow UnitOfWork) error {
		account, err := loadAccount(ctx, uow, event.UserAccountID)
		if err != nil {
			return err
		}
		return account.AddClaim(event.Claim)
	})
	if err != nil {
		return err
	}

	h.recordClaimChange(ctx, event.UserAccountID, ClaimChange{Operation: ClaimOperationAdd, Claim: event.Claim})
	return nil
}

// Remove drops a claim. Removing the administrator claim is refused when the
// account is the last active administrator.
func (h *ClaimsHandler) Remove(ctx context.Context, event RemoveClaimMessage) error {
	event.Claim = NewClaim(event.Claim.Type, event.Claim.Value)
	if err := event.Validate(); err != nil {
		return asValidationError(err)
	}

	err := h.run(ctx, "claim removal", func(ctx context.Context, uow UnitOfWork) error {
		account, err := loadAccount(ctx, uow, event.UserAccountID)
		if err != nil {
			return err
		}

		if account.HasClaim(event.Claim) && account.IsActive() {
			if err := h.policy.CheckClaimRemoval(ctx, h.repo.Reader(), event.Claim); err != nil {
				return err
			}
		}

		return account.RemoveClaim(event.Claim)
	})
	if err != nil {
		return err
	}

	h.recordClaimChange(ctx, event.UserAccountID, ClaimChange{Operation: ClaimOperationRemove, Claim: event.Claim})
	return nil
}

func (h *ClaimsHandler) Replace(ctx context.Context, event ReplaceClaimMessage) error {
	event.Current = NewClaim(event.Current.Type, event.Current.Value)
	event.Replacement = NewClaim(event.Replacement.Type, event.Replacement.Value)
	if err := event.Validate(); err != nil {
		return asValidationError(err)
	}

	err := h.run(ctx, "claim replacement", func(ctx context.Context, uow UnitOfWork) error {
		account, err := loadAccount(ctx, uow, event.UserAccountID)
		if err != nil {
			return err
		}

		if account.HasClaim(event.Current) && account.IsActive() {
			if err := h.policy.CheckClaimRemoval(ctx, h.repo.Reader(), event.Current); err != nil {
				return err
			}
		}

		return account.ReplaceClaim(event.Current, event.Replacement)
	})
	if err != nil {
		return err
	}

	h.recordClaimChange(ctx, event.UserAccountID, ClaimChange{
		Operation:   ClaimOperationReplace,
		Claim:       event.Current,
		Replacement: &event.Replacement,
	})
	return nil
}

func (h *ClaimsHandler) recordClaimChange(ctx context.Context, id UserAccountID, change ClaimChange) {
	recordActivity(ctx, h.activity, h.logger, h.clock, ActivityEvent{
		EventType:     ActivityEventClaimsChanged,
		UserAccountID: id.String(),
		ClaimChange:   &change,
	})
}
