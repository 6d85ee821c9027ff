package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
)

// UpdateUserAccountPasswordMessage sets a password without knowing the
// current one. It is an administrator operation.
type UpdateUserAccountPasswordMessage struct {
	UserAccountID UserAccountID `json:"user_account_id"`
	NewPassword   string        `json:"new_password"`
}

func (e UpdateUserAccountPasswordMessage) Type() string { return "user_account.password.update" }

func (e UpdateUserAccountPasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.NewPassword, passwordRules...),
	)
}

// ChangeCurrentPasswordMessage changes the password of the logged in account.
type ChangeCurrentPasswordMessage struct {
	UserAccountID   UserAccountID `json:"user_account_id"`
	CurrentPassword string        `json:"current_password"`
	NewPassword     string        `json:"new_password"`
}

func (e ChangeCurrentPasswordMessage) Type() string { return "user_account.password.change" }

func (e ChangeCurrentPasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.CurrentPassword, validation.Required),
		validation.Field(&e.NewPassword, passwordRules...),
	)
}

type PasswordHandler struct {
	handlerDeps
}

func NewPasswordHandler(repo RepositoryManager, opts ...HandlerOption) *PasswordHandler {
	return &PasswordHandler{handlerDeps: newHandlerDeps(repo, opts...)}
}

func (h *PasswordHandler) Update(ctx context.Context, event UpdateUserAccountPasswordMessage) error {
	if err := event.Validate(); err != nil {
		return asValidationError(err)
	}

	return h.change(ctx, "password update", event.UserAccountID, event.NewPassword, nil)
}

func (h *PasswordHandler) ChangeCurrent(ctx context.Context, event ChangeCurrentPasswordMessage) error {
	if err := event.Validate(); err != nil {
		return asValidationError(err)
	}

	return h.change(ctx, "password change", event.UserAccountID, event.NewPassword, func(a *UserAccount) error {
		ok, err := h.hasher.Verify(event.CurrentPassword, a.PasswordHash())
		if err != nil {
			return err
		}
		if !ok {
			return withMetadata(ErrIncorrectPassword, map[string]any{"user_account_id": a.ID().String()})
		}
		return nil
	})
}

func (h *PasswordHandler) change(ctx context.Context, operation string, id UserAccountID, password string, check func(*UserAccount) error) error {
	err := h.run(ctx, operation, func(ctx context.Context, uow UnitOfWork) error {
		account, err := loadAccount(ctx, uow, id)
		if err != nil {
			return err
		}

		if check != nil {
			if err := check(account); err != nil {
				return err
			}
		}

		hash, err := h.hasher.Hash(password)
		if err != nil {
			return err
		}

		return account.UpdatePasswordHash(hash)
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, h.activity, h.logger, h.clock, ActivityEvent{
		EventType:     ActivityEventPasswordChanged,
		UserAccountID: id.String(),
		Metadata:      map[string]any{"operation": operation},
	})
	return nil
}
