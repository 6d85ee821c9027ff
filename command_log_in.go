package auth

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

type LogInMessage struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (e LogInMessage) Type() string { return "auth.log_in" }

func (e LogInMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Login, loginRules...),
		validation.Field(&e.Password, validation.Required),
	)
}

// TokenPair is returned by successful log in and refresh commands.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LogInHandler struct {
	handlerDeps
}

func NewLogInHandler(repo RepositoryManager, opts ...HandlerOption) *LogInHandler {
	h := &LogInHandler{handlerDeps: newHandlerDeps(repo, opts...)}
	if h.tokens == nil {
		panic("Missing TokenService in log in handler...")
	}
	return h
}

// Execute verifies credentials and issues a new token pair. Unknown logins
// and wrong passwords fail the same way.
func (h *LogInHandler) Execute(ctx context.Context, event LogInMessage) (*TokenPair, error) {
	event.Login = strings.TrimSpace(event.Login)
	if err := event.Validate(); err != nil {
		return nil, asValidationError(err)
	}

	var pair *TokenPair
	var accountID UserAccountID
	err := h.run(ctx, "log in", func(ctx context.Context, uow UnitOfWork) error {
		account, err := uow.Accounts().GetByLogin(ctx, event.Login)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}

		ok, err := h.hasher.Verify(event.Password, account.PasswordHash())
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCredentials
		}

		refresh, err := h.tokens.GenerateRefreshToken()
		if err != nil {
			return err
		}

		if err := account.SetNewRefreshToken(refresh, h.clock.Now().Add(h.tokens.RefreshTokenLifetime())); err != nil {
			return err
		}

		access, err := h.tokens.GenerateAccessToken(account.ID(), account.Claims())
		if err != nil {
			return err
		}

		accountID = account.ID()
		pair = &TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})

	if err != nil {
		recordActivity(ctx, h.activity, h.logger, h.clock, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Login:     event.Login,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return nil, err
	}

	recordActivity(ctx, h.activity, h.logger, h.clock, ActivityEvent{
		EventType:     ActivityEventLoginSuccess,
		Actor:         ActorRef{ID: accountID.String(), Type: "user_account"},
		UserAccountID: accountID.String(),
		Login:         event.Login,
	})

	return pair, nil
}
