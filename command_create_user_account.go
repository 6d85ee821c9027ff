package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type CreateUserAccountMessage struct {
	Login    string  `json:"login"`
	Password string  `json:"password"`
	Claims   []Claim `json:"claims,omitempty"`
}

func (e CreateUserAccountMessage) Type() string { return "user_account.create" }

func (e CreateUserAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Login, loginRules...),
		validation.Field(&e.Password, passwordRules...),
		validation.Field(&e.Claims),
	)
}

type CreateUserAccountHandler struct {
	handlerDeps
}

func NewCreateUserAccountHandler(repo RepositoryManager, opts ...HandlerOption) *CreateUserAccountHandler {
	return &CreateUserAccountHandler{handlerDeps: newHandlerDeps(repo, opts...)}
}

// Execute creates the account and returns its id. The read side existence
// check is a fast path; the unique index on login decides concurrent races.
func (h *CreateUserAccountHandler) Execute(ctx context.Context, event CreateUserAccountMessage) (UserAccountID, error) {
	event.Login = strings.TrimSpace(event.Login)
	if err := event.Validate(); err != nil {
		return UserAccountID{}, asValidationError(err)
	}

	exists, err := h.repo.Reader().ExistsByLogin(ctx, event.Login)
	if err != nil {
		return UserAccountID{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check login")
	}
	if exists {
		return UserAccountID{}, withMetadata(ErrLoginAlreadyTaken, map[string]any{"login": event.Login})
	}

	var id UserAccountID
	err = h.run(ctx, "user account creation", func(ctx context.Context, uow UnitOfWork) error {
		hash, err := h.hasher.Hash(event.Password)
		if err != nil {
			return err
		}

		account := CreateUserAccount(event.Login, hash)
		for _, claim := range event.Claims {
			if err := account.AddClaim(claim); err != nil {
				return err
			}
		}

		uow.Accounts().Add(account)
		id = account.ID()
		return nil
	})
	if err != nil {
		return UserAccountID{}, err
	}

	h.logger.Info("user account %s created", id)
	return id, nil
}
